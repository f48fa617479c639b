package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hour(h int) *int { return &h }

func TestStore_ToggleDayTwiceRestores(t *testing.T) {
	base := New().ToggleDay(1, "2024-01-02")

	once := base.ToggleDay(1, "2024-01-01")
	assert.True(t, once.IsDaySelected(1, "2024-01-01"))

	twice := once.ToggleDay(1, "2024-01-01")
	assert.False(t, twice.IsDaySelected(1, "2024-01-01"))
	assert.Equal(t, base.Selections(), twice.Selections())
}

func TestStore_MutatorsDoNotTouchReceiver(t *testing.T) {
	s := New().ToggleDay(1, "2024-01-01")
	_ = s.ToggleDay(1, "2024-01-02")
	_ = s.RemoveDevice(1)
	_ = s.Clear()

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.IsDaySelected(1, "2024-01-01"))
}

func TestStore_InvalidInputIgnored(t *testing.T) {
	s := New().
		ToggleDay(1, "not-a-date").
		ToggleHour(1, "2024-01-01", 24).
		ToggleHour(1, "2024-01-01", -1)
	assert.Equal(t, 0, s.Len())
}

func TestStore_ImportDeviceSelections(t *testing.T) {
	s := New().ToggleDay(9, "2024-02-01")
	s = s.ImportDeviceSelections([]int64{1, 2}, []string{"2024-01-01", "2024-01-02", "garbage"})

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, []int64{1, 2, 9}, s.Devices())
	assert.True(t, s.IsDaySelected(2, "2024-01-02"))
}

func TestStore_AddRemoveDeviceDates(t *testing.T) {
	s := New().AddDeviceDates(3, []string{"2024-01-01", "2024-01-02", "2024-01-03"})
	require.Equal(t, 3, s.Len())

	s = s.RemoveDeviceDates(3, []string{"2024-01-02"})
	assert.False(t, s.IsDaySelected(3, "2024-01-02"))
	assert.Equal(t, 2, s.Len())
}

func TestStore_RemoveDayDropsBothGranularities(t *testing.T) {
	s := New().
		ToggleDay(1, "2024-01-01").
		ToggleHour(1, "2024-01-01", 10).
		ToggleHour(1, "2024-01-02", 10)

	s = s.RemoveDay(1, "2024-01-01")
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.IsHourSelected(1, "2024-01-02", 10))
}

func TestStore_SelectionsOrderAndGrouping(t *testing.T) {
	s := FromSelections([]Selection{
		{DeviceID: 2, Date: "2024-01-02"},
		{DeviceID: 1, Date: "2024-01-01", Hour: hour(9)},
		{DeviceID: 1, Date: "2024-01-01", Hour: hour(8)},
		{DeviceID: 1, Date: "2024-01-01"},
	})

	got := s.Selections()
	require.Len(t, got, 4)
	assert.Nil(t, got[0].Hour)
	assert.Equal(t, 8, *got[1].Hour)
	assert.Equal(t, 9, *got[2].Hour)
	assert.Equal(t, int64(2), got[3].DeviceID)

	grouped := s.Grouped()
	assert.Len(t, grouped[1], 3)
	assert.Len(t, grouped[2], 1)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "1-2024-01-01", DayKey(1, "2024-01-01").String())
	assert.Equal(t, "1-2024-01-01-13", HourKey(1, "2024-01-01", 13).String())
	assert.NotEqual(t, DayKey(1, "2024-01-01"), HourKey(1, "2024-01-01", 0))
}

func TestStore_Span(t *testing.T) {
	_, _, ok := New().Span()
	assert.False(t, ok)

	s := New().ToggleDay(2, "2024-03-05").ToggleHour(1, "2024-02-28", 7).ToggleDay(1, "2024-03-01")
	first, last, ok := s.Span()
	require.True(t, ok)
	assert.Equal(t, "2024-02-28", first)
	assert.Equal(t, "2024-03-05", last)
}

func TestStore_Without(t *testing.T) {
	sent := New().ToggleDay(1, "2024-01-01").ToggleHour(2, "2024-01-02", 9)
	current := sent.ToggleHour(2, "2024-01-02", 10)

	left := current.Without(sent)
	assert.Equal(t, []Key{HourKey(2, "2024-01-02", 10)}, left.Keys())
	assert.Equal(t, 3, current.Len(), "receiver is not modified")
}
