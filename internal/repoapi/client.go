// Package repoapi is the HTTP client for the booking repository service.
package repoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"labreserve/internal/model"
)

// CachePrefix namespaces every key the client writes to Redis.
const CachePrefix = "labreserve:"

// Client calls the booking repository.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client with baseURL and an optional API key.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for read endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit paces outgoing requests to perSecond with the given burst.
func (c *Client) UseRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// BookingsForWeek returns every booking overlapping the 7 days from weekStart.
func (c *Client) BookingsForWeek(ctx context.Context, weekStart time.Time) ([]model.Booking, error) {
	start := weekStart.Format(model.DateLayout)
	endpoint := fmt.Sprintf("%s/bookings/for-week?start=%s", c.baseURL, url.QueryEscape(start))
	cacheKey := weekCacheKey(start)

	var out []model.Booking
	if c.readCache(ctx, cacheKey, &out) {
		return out, nil
	}
	if err := c.doGet(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, out)
	return out, nil
}

// CreateBookings submits one batch of ranges. The write is not idempotent.
func (c *Client) CreateBookings(ctx context.Context, req CreateBookingsRequest) (*CreateBookingsResponse, error) {
	if req.Collaborators == nil {
		req.Collaborators = []string{}
	}
	endpoint := fmt.Sprintf("%s/bookings", c.baseURL)
	var resp CreateBookingsResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserGroups returns the raw grouped sessions visible to userID.
func (c *Client) UserGroups(ctx context.Context, userID int64) ([]model.GroupedBooking, error) {
	endpoint := fmt.Sprintf("%s/bookings/user/%d?grouped=true", c.baseURL, userID)
	cacheKey := groupsCacheKey(userID)

	var out []model.GroupedBooking
	if c.readCache(ctx, cacheKey, &out) {
		return out, nil
	}
	if err := c.doGet(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, out)
	return out, nil
}

// SearchUsers looks up usernames containing q.
func (c *Client) SearchUsers(ctx context.Context, q string, limit int) ([]UserCandidate, error) {
	endpoint := fmt.Sprintf("%s/api/users/search?q=%s&limit=%s",
		c.baseURL, url.QueryEscape(q), strconv.Itoa(limit))
	var out []UserCandidate
	if err := c.doGet(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDevices returns the device inventory.
func (c *Client) ListDevices(ctx context.Context) ([]model.Device, error) {
	endpoint := fmt.Sprintf("%s/api/devices", c.baseURL)
	var out []model.Device
	if err := c.doGet(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFavorites returns a user's saved session templates.
func (c *Client) ListFavorites(ctx context.Context, userID int64) ([]Favorite, error) {
	endpoint := fmt.Sprintf("%s/bookings/favorites/%d", c.baseURL, userID)
	var out []Favorite
	if err := c.doGet(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFavorite stores a session template.
func (c *Client) CreateFavorite(ctx context.Context, fav Favorite) (*Favorite, error) {
	endpoint := fmt.Sprintf("%s/bookings/favorites", c.baseURL)
	var out Favorite
	if err := c.doJSON(ctx, http.MethodPost, endpoint, fav, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameFavorite updates a template's display name.
func (c *Client) RenameFavorite(ctx context.Context, id int64, name string) (*Favorite, error) {
	endpoint := fmt.Sprintf("%s/bookings/favorites/%d", c.baseURL, id)
	var out Favorite
	body := map[string]string{"name": name}
	if err := c.doJSON(ctx, http.MethodPut, endpoint, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFavorite removes a template.
func (c *Client) DeleteFavorite(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/bookings/favorites/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Health checks that the repository answers.
func (c *Client) Health(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/session", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return newStatusError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
