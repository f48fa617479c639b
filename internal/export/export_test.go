package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"labreserve/internal/model"
	"labreserve/internal/reconcile"
)

func TestGroups(t *testing.T) {
	groups := reconcile.Merge([]model.GroupedBooking{{
		GroupedBookingID: "g-1",
		OwnerUsername:    "bob",
		Collaborators:    []string{"carol", "dave"},
		Status:           model.StatusApproved,
		CreatedAt:        "2024-01-01T09:00:00",
		Devices: []model.GroupDevice{
			{DeviceID: 1, DeviceType: "Router", DeviceName: "R1", Dates: []string{"2024-01-01", "2024-01-02", "2024-01-05"}},
		},
	}})

	var buf bytes.Buffer
	require.NoError(t, Groups(&buf, groups))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sessions, err := f.GetRows("Sessions")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, sessionColumns, sessions[0])
	assert.Equal(t, []string{"g-1", "APPROVED", "Jan 1 – Jan 5, 2024", "Router - R1", "bob", "carol, dave", "2024-01-01T09:00:00"}, sessions[1])

	devices, err := f.GetRows("Devices")
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, []string{"g-1", "Router - R1", "2024-01-01", "2024-01-02"}, devices[1])
	assert.Equal(t, []string{"g-1", "Router - R1", "2024-01-05", "2024-01-05"}, devices[2])
}

func TestBookings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Bookings(&buf, []model.Booking{{
		ID: 7, DeviceID: 3, DeviceName: "SW", StartTime: "2024-01-01T10:00:00", EndTime: "2024-01-01T11:00:00",
		Status: model.StatusPending, OwnerUsername: "bob",
	}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"7", "SW", "2024-01-01T10:00:00", "2024-01-01T11:00:00", "PENDING", "bob"}, rows[1])
}

func TestWorkbook_RequiresSheet(t *testing.T) {
	wb := NewWorkbook()
	defer wb.Close()
	assert.Error(t, wb.WriteRow([]any{"x"}))

	require.NoError(t, wb.AddSheet("a-very-long-sheet-name-that-exceeds-the-limit"))
	assert.NoError(t, wb.WriteRow([]any{"x"}))
}
