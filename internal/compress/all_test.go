package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreserve/internal/model"
	"labreserve/internal/selection"
)

type mapLookup map[int64]model.Device

func (m mapLookup) Get(id int64) (model.Device, bool) {
	d, ok := m[id]
	return d, ok
}

func TestCompressAll_SkipsUnknownDevices(t *testing.T) {
	devices := mapLookup{
		1: {ID: 1, Type: "Router", Name: "R1"},
		2: {ID: 2, Type: "Switch", Name: "SW"},
	}
	store := selection.New().
		ToggleDay(2, "2024-01-01").
		ToggleDay(1, "2024-01-01").
		ToggleDay(1, "2024-01-02").
		ToggleDay(9, "2024-01-01").
		ToggleDay(7, "2024-01-03")

	ranges, skipped := Compressor{}.CompressAll(devices, store.Selections())

	assert.Equal(t, []int64{7, 9}, skipped)
	require.Len(t, ranges, 2)
	assert.Equal(t, "R1", ranges[0].DeviceName)
	assert.Equal(t, "2024-01-01T00:01:00", ranges[0].StartTime)
	assert.Equal(t, "2024-01-02T23:59:00", ranges[0].EndTime)
	assert.Equal(t, "SW", ranges[1].DeviceName)
}

func TestCompressAll_Empty(t *testing.T) {
	ranges, skipped := Compressor{}.CompressAll(mapLookup{}, nil)
	assert.Empty(t, ranges)
	assert.Empty(t, skipped)
}
