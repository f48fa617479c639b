package repoapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreserve/internal/model"
)

func weekServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/bookings/for-week", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("start"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_ = json.NewEncoder(w).Encode([]model.Booking{{
			ID:        1,
			DeviceID:  4,
			StartTime: "2024-01-01T10:00:00",
			EndTime:   "2024-01-01T11:00:00",
			Status:    model.StatusConfirmed,
		}})
	}))
}

func TestClient_BookingsForWeek(t *testing.T) {
	var hits int32
	srv := weekServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	got, err := c.BookingsForWeek(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].DeviceID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_RedisCacheAndInvalidate(t *testing.T) {
	var hits int32
	srv := weekServer(t, &hits)
	defer srv.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	c.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()
	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := c.BookingsForWeek(ctx, week)
	require.NoError(t, err)
	_, err = c.BookingsForWeek(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second read served from cache")
	assert.True(t, mr.Exists("labreserve:week:2024-01-01"))

	n, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.BookingsForWeek(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_CreateBookings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateBookingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(5), req.UserID)
		assert.Len(t, req.Bookings, 2)
		assert.Equal(t, []string{}, req.Collaborators)

		_ = json.NewEncoder(w).Encode(CreateBookingsResponse{Count: 2, GroupedBookingID: "g-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	resp, err := c.CreateBookings(context.Background(), CreateBookingsRequest{
		UserID:   5,
		Bookings: []model.BookingRange{{DeviceName: "a"}, {DeviceName: "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "g-1", resp.GroupedBookingID)
}

func TestClient_StatusError(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		body       string
		wantDetail string
		temporary  bool
	}{
		{"fastapi detail", http.StatusConflict, `{"detail":"device already booked"}`, "device already booked", false},
		{"message field", http.StatusBadRequest, `{"message":"bad"}`, "bad", false},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body"]}]}`, `[{"loc":["body"]}]`, false},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down", true},
		{"empty", http.StatusInternalServerError, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", time.Second)
			_, err := c.SearchUsers(context.Background(), "al", 5)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.wantDetail, se.Detail)
			assert.Equal(t, tt.temporary, se.Temporary())
		})
	}
}

func TestClient_SearchUsersQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/search", r.URL.Path)
		assert.Equal(t, "bob smith", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]UserCandidate{{ID: 1, Username: "bob smith"}})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "", time.Second).SearchUsers(context.Background(), "bob smith", 10)
	require.NoError(t, err)
	assert.Equal(t, "bob smith", got[0].Username)
}

func TestClient_Favorites(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bookings/favorites/3", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]Favorite{{ID: 9, Name: "lab A"}})
		case http.MethodPut:
			_ = json.NewEncoder(w).Encode(Favorite{ID: 3, Name: "renamed"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/bookings/favorites", func(w http.ResponseWriter, r *http.Request) {
		var fav Favorite
		_ = json.NewDecoder(r.Body).Decode(&fav)
		fav.ID = 11
		_ = json.NewEncoder(w).Encode(fav)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	ctx := context.Background()

	list, err := c.ListFavorites(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "lab A", list[0].Name)

	created, err := c.CreateFavorite(ctx, Favorite{UserID: 3, GroupedBookingID: "g"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)

	renamed, err := c.RenameFavorite(ctx, 3, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Name)

	require.NoError(t, c.DeleteFavorite(ctx, 3))
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	c.UseRateLimit(0.001, 1)

	_, err := c.ListDevices(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListDevices(ctx)
	assert.Error(t, err)
}
