package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sunolegal/internal/auth"
	"sunolegal/internal/models"

	"github.com/redis/go-redis/v9"
)

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an HTTPError with the given code.
func IsStatus(err error, code int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == code
}

// Client talks to the remote legal-assistant backend. Requests carry the bearer
// token of the user in the context; without one they go out unauthenticated.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

type sendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type sendMessageResponse struct {
	Response string `json:"response"`
}

func (c *Client) SendMessage(ctx context.Context, message, sessionID string) (string, error) {
	var resp sendMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat/message", sendMessageRequest{Message: message, SessionID: sessionID}, &resp); err != nil {
		return "", err
	}
	c.dropCache(ctx, historyPath(sessionID), "/api/chat/sessions")
	return resp.Response, nil
}

func historyPath(sessionID string) string {
	return "/api/chat/history/" + url.PathEscape(sessionID)
}

func (c *Client) GetChatHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var wrap struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	if err := c.cachedGet(ctx, historyPath(sessionID), &wrap); err != nil {
		return nil, err
	}
	if wrap.Messages == nil {
		wrap.Messages = []models.ChatMessage{}
	}
	return wrap.Messages, nil
}

func (c *Client) GetUserChats(ctx context.Context) ([]models.ChatSession, error) {
	var wrap struct {
		Sessions []models.ChatSession `json:"sessions"`
	}
	if err := c.cachedGet(ctx, "/api/chat/sessions", &wrap); err != nil {
		return nil, err
	}
	if wrap.Sessions == nil {
		wrap.Sessions = []models.ChatSession{}
	}
	return wrap.Sessions, nil
}

func (c *Client) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return c.doJSON(ctx, http.MethodPost, "/api/bookings", booking, nil)
}

// UpsertBooking mirrors a booking; an already known booking is not an error.
func (c *Client) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	err := c.CreateBooking(ctx, booking)
	if IsStatus(err, http.StatusConflict) {
		return c.UpdateBookingStatus(ctx, booking.ID, booking.Status)
	}
	return err
}

func (c *Client) UpdateBookingStatus(ctx context.Context, bookingID, status string) error {
	body := map[string]string{"status": status}
	return c.doJSON(ctx, http.MethodPut, "/api/bookings/"+url.PathEscape(bookingID)+"/status", body, nil)
}

type verifyPaymentRequest struct {
	BookingID  string `json:"booking_id"`
	PaymentRef string `json:"payment_ref"`
}

// VerifyPayment fails unless the backend confirms the payment.
func (c *Client) VerifyPayment(ctx context.Context, bookingID, paymentRef string) error {
	var resp struct {
		Verified bool   `json:"verified"`
		Reason   string `json:"reason"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/payments/verify", verifyPaymentRequest{BookingID: bookingID, PaymentRef: paymentRef}, &resp); err != nil {
		return err
	}
	if !resp.Verified {
		if resp.Reason == "" {
			resp.Reason = "payment not verified"
		}
		return errors.New(resp.Reason)
	}
	return nil
}

// cacheKey scopes cached responses to the calling user.
func (c *Client) cacheKey(ctx context.Context, path string) string {
	user := auth.UserID(ctx)
	if user == "" {
		user = "anonymous"
	}
	return fmt.Sprintf("backend:%s:%s", user, path)
}

func (c *Client) cachedGet(ctx context.Context, path string, out any) error {
	key := c.cacheKey(ctx, path)
	if c.readCache(ctx, key, out) {
		return nil
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, out); err != nil {
		return err
	}
	c.writeCache(ctx, key, out)
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) dropCache(ctx context.Context, paths ...string) {
	if c.redis == nil {
		return
	}
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		keys = append(keys, c.cacheKey(ctx, p))
	}
	_ = c.redis.Del(ctx, keys...).Err()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if u, ok := auth.UserFromContext(req.Context()); ok && u.Token() != "" {
		req.Header.Set("Authorization", "Bearer "+u.Token())
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
