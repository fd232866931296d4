package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sunolegal/internal/assistant"
	"sunolegal/internal/auth"
	"sunolegal/internal/catalog"
	"sunolegal/internal/config"
	"sunolegal/internal/domain"
	"sunolegal/internal/models"
	"sunolegal/internal/repository"
	"sunolegal/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testJWTSecret = "test-secret"

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Laws: []models.LawScheme{
			{ID: "t1", Title: "Rent Control Act", Type: models.TypeLaw, Category: models.CategoryTenantHousing, ShortSummary: "Caps on rent increases."},
			{ID: "t2", Title: "Model Tenancy Act", Type: models.TypeLaw, Category: models.CategoryTenantHousing},
			{ID: "c1", Title: "Consumer Protection Act", Type: models.TypeLaw, Category: models.CategoryConsumer},
		},
		Lawyers: []models.Lawyer{
			{
				ID: "L1", Name: "Adv. Meera Sharma", PracticeArea: "Tenant Law", City: "Pune", Available: true,
				Packages: []models.LawyerPackage{
					{ID: "p1", Type: models.PackageChat, Name: "Quick Chat", Price: 199, Duration: 15},
					{ID: "p2", Type: models.PackageVideo, Name: "Video Consultation", Price: 799, Duration: 30},
				},
			},
			{
				ID: "L2", Name: "Adv. Rahul Verma", PracticeArea: "Consumer Law", City: "Delhi",
				Packages: []models.LawyerPackage{
					{ID: "p1", Type: models.PackageVoice, Name: "Voice Call", Price: 499, Duration: 20},
				},
			},
		},
	}
}

type testAPI struct {
	server *HTTPServer
	ts     *httptest.Server
	flags  *repository.MemoryFlagStore
}

func newTestAPI(t *testing.T, cfg config.APIConfig, authCfg config.AuthConfig) *testAPI {
	t.Helper()
	logger := zerolog.Nop()

	catalogSvc := service.NewCatalogService(testCatalog(), &logger)
	bookings := service.NewBookingService(repository.NewMemoryBookingRepository(), catalogSvc, nil, nil, &logger)
	flags := repository.NewMemoryFlagStore(0)
	chat := service.NewChatService(nil, assistant.NewResponder(assistant.NewRandPicker(1)), flags, service.ChatLimits{Messages: 2, Window: time.Minute}, &logger)
	profiles := service.NewProfileService(flags, &logger)

	if authCfg.JWTSecret == "" {
		authCfg.JWTSecret = testJWTSecret
	}
	server := NewHTTPServer(cfg, authCfg, Deps{
		Catalog:  catalogSvc,
		Bookings: bookings,
		Chat:     chat,
		Profiles: profiles,
		ReadyChecks: map[string]ReadyCheck{
			"memory": func(context.Context) error { return nil },
		},
	}, &logger)
	server.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testAPI{server: server, ts: ts, flags: flags}
}

func openAPI(t *testing.T) *testAPI {
	return newTestAPI(t, config.APIConfig{Enabled: true}, config.AuthConfig{DemoEnabled: true})
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.ts.URL+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func bearer(t *testing.T, sub string) map[string]string {
	t.Helper()
	token, err := auth.IssueToken(testJWTSecret, sub, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealthAndReady(t *testing.T) {
	api := openAPI(t)

	resp := api.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = api.do(t, http.MethodGet, "/readyz", nil, map[string]string{"X-Request-ID": "req-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get("X-Request-ID"))
}

func TestReadyFailingCheck(t *testing.T) {
	api := openAPI(t)
	api.server.deps.ReadyChecks["redis"] = func(context.Context) error { return errors.New("connection refused") }

	resp := api.do(t, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, map[string]any{"redis": "connection refused"}, body["checks"])
}

func TestCatalogEndpoints(t *testing.T) {
	api := openAPI(t)

	resp := api.do(t, http.MethodGet, "/api/v1/laws?category=tenant-housing&q=rent", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	laws := decode[struct {
		Items []models.LawScheme `json:"items"`
	}](t, resp)
	require.Len(t, laws.Items, 1)
	assert.Equal(t, "t1", laws.Items[0].ID)

	resp = api.do(t, http.MethodGet, "/api/v1/laws/c1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Consumer Protection Act", decode[models.LawScheme](t, resp).Title)

	resp = api.do(t, http.MethodGet, "/api/v1/laws/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/laws/t1/related?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	related := decode[struct {
		Items []models.LawScheme `json:"items"`
	}](t, resp)
	require.Len(t, related.Items, 1)
	assert.Equal(t, "t2", related.Items[0].ID)

	resp = api.do(t, http.MethodGet, "/api/v1/laws/t1/related?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/categories", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cats := decode[struct {
		Categories []models.CategoryCount `json:"categories"`
	}](t, resp)
	assert.Len(t, cats.Categories, len(models.Categories))
}

func TestLawyerEndpoints(t *testing.T) {
	api := openAPI(t)

	resp := api.do(t, http.MethodGet, "/api/v1/lawyers?available=true&max_price=300&unknown_key=1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Lawyers []models.Lawyer `json:"lawyers"`
	}](t, resp)
	require.Len(t, list.Lawyers, 1)
	assert.Equal(t, "L1", list.Lawyers[0].ID)

	resp = api.do(t, http.MethodGet, "/api/v1/lawyers/L2", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Adv. Rahul Verma", decode[models.Lawyer](t, resp).Name)

	resp = api.do(t, http.MethodGet, "/api/v1/lawyers/L9", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	api := openAPI(t)
	owner := bearer(t, "user-7")

	resp := api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"lawyer_id":  "L1",
		"package_id": "p2",
		"status":     models.StatusPending,
	}, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Booking](t, resp)
	assert.Equal(t, "user-7", created.UserID)
	assert.Equal(t, "Video Consultation", created.PackageName)
	assert.Equal(t, int64(799), created.Price)

	path := "/api/v1/bookings/" + created.ID

	resp = api.do(t, http.MethodPost, path+"/status", map[string]string{"status": models.StatusCompleted}, owner)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = api.do(t, http.MethodPost, path+"/payment", map[string]string{"payment_ref": "pay_123"}, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	paid := decode[models.Booking](t, resp)
	assert.Equal(t, models.StatusConfirmed, paid.Status)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)

	resp = api.do(t, http.MethodPost, path+"/status", map[string]string{"status": models.StatusCompleted}, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusCompleted, decode[models.Booking](t, resp).Status)

	resp = api.do(t, http.MethodPost, path+"/status", map[string]string{"status": "archived"}, owner)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodGet, path, nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), decode[models.Booking](t, resp).Version)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[bookingList](t, resp).Bookings, 1)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings/missing", nil, owner)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type bookingList struct {
	Bookings []models.Booking `json:"bookings"`
}

func TestBookingsScopedToOwner(t *testing.T) {
	api := openAPI(t)
	alice, mallory := bearer(t, "alice"), bearer(t, "mallory")

	resp := api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{"lawyer_id": "L1", "package_id": "p1"}, alice)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decode[models.Booking](t, resp)
	path := "/api/v1/bookings/" + booking.ID

	resp = api.do(t, http.MethodGet, "/api/v1/bookings", nil, mallory)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[bookingList](t, resp).Bookings)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings?user_id=alice", nil, mallory)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[bookingList](t, resp).Bookings)

	resp = api.do(t, http.MethodGet, path, nil, mallory)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, http.MethodPost, path+"/status", map[string]string{"status": models.StatusCancelled}, mallory)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, http.MethodPost, path+"/payment", map[string]string{"payment_ref": "pay_1"}, mallory)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, http.MethodGet, path, nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusConfirmed, decode[models.Booking](t, resp).Status)

	// user_id in the body is ignored for signed-in users
	resp = api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{"lawyer_id": "L1", "package_id": "p1", "user_id": "alice"}, mallory)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "mallory", decode[models.Booking](t, resp).UserID)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings", nil, alice)
	assert.Len(t, decode[bookingList](t, resp).Bookings, 1)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBookingsAdminKey(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "app-key", Permissions: []string{PermWriteBookings}},
				{Key: "ops-key", Permissions: []string{PermWriteBookings, PermAdminBookings}},
			},
		},
	}
	api := newTestAPI(t, cfg, config.AuthConfig{})
	app := map[string]string{"x-api-key": "app-key", "Authorization": bearer(t, "alice")["Authorization"]}
	ops := map[string]string{"x-api-key": "ops-key"}

	resp := api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{"lawyer_id": "L1", "package_id": "p1"}, app)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decode[models.Booking](t, resp)

	resp = api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{"lawyer_id": "L1", "package_id": "p2", "user_id": "bob"}, ops)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "bob", decode[models.Booking](t, resp).UserID)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings", nil, ops)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[bookingList](t, resp).Bookings, 2)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings", nil, app)
	assert.Len(t, decode[bookingList](t, resp).Bookings, 1)

	resp = api.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/status", map[string]string{"status": models.StatusCancelled}, ops)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusCancelled, decode[models.Booking](t, resp).Status)

	// without admin permission the key alone names no user to act for
	resp = api.do(t, http.MethodGet, "/api/v1/bookings", nil, map[string]string{"x-api-key": "app-key"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateBookingValidation(t *testing.T) {
	api := openAPI(t)
	user := bearer(t, "u1")

	resp := api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{"lawyer_id": "L1", "price": -5}, user)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{"lawyer_id": "L1", "surprise": true}, user)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid JSON body", decode[map[string]string](t, resp)["error"])
}

func TestExportBookings(t *testing.T) {
	api := openAPI(t)
	user := bearer(t, "u1")

	resp := api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"lawyer_id": "L1", "package_id": "p1",
	}, user)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = api.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"lawyer_id": "L1", "package_id": "p2",
	}, bearer(t, "u2"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings/export", nil, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_20250301_100000.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestChatEndpoints(t *testing.T) {
	api := openAPI(t)
	headers := bearer(t, "user-1")

	resp := api.do(t, http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "my landlord kept the deposit"}, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decode[models.ChatReply](t, resp)
	assert.NotEmpty(t, reply.SessionID)
	assert.NotEmpty(t, reply.Response)
	assert.True(t, reply.Offline)

	resp = api.do(t, http.MethodGet, "/api/v1/chat/sessions/"+reply.SessionID+"/messages", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[struct {
		Messages []models.ChatMessage `json:"messages"`
	}](t, resp)
	assert.Len(t, history.Messages, 2)

	resp = api.do(t, http.MethodGet, "/api/v1/chat/sessions", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessions := decode[struct {
		Sessions []models.ChatSession `json:"sessions"`
	}](t, resp)
	assert.Len(t, sessions.Sessions, 1)

	// limit is two messages per window
	resp = api.do(t, http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "hello", "session_id": reply.SessionID}, headers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = api.do(t, http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "hello again"}, headers)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type unreachableBackend struct{}

var errUnreachable = errors.New("dial tcp 10.0.0.5:443: connection refused")

func (unreachableBackend) SendMessage(context.Context, string, string) (string, error) {
	return "", errUnreachable
}

func (unreachableBackend) GetChatHistory(context.Context, string) ([]models.ChatMessage, error) {
	return nil, errUnreachable
}

func (unreachableBackend) GetUserChats(context.Context) ([]models.ChatSession, error) {
	return nil, errUnreachable
}

func TestChatBackendUnavailable(t *testing.T) {
	api := openAPI(t)
	logger := zerolog.Nop()
	api.server.deps.Chat = service.NewChatService(unreachableBackend{}, assistant.NewResponder(assistant.NewRandPicker(1)), nil, service.ChatLimits{}, &logger)
	headers := bearer(t, "user-1")

	resp := api.do(t, http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "hello"}, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[models.ChatReply](t, resp).Fallback)

	for _, path := range []string{"/api/v1/chat/sessions", "/api/v1/chat/sessions/s1/messages"} {
		resp = api.do(t, http.MethodGet, path, nil, headers)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
		msg := decode[map[string]string](t, resp)["error"]
		assert.Equal(t, domain.ErrAssistantUnavailable.Error(), msg, path)
		assert.NotContains(t, msg, "connection refused", path)
	}
}

func TestInvalidBearerToken(t *testing.T) {
	api := openAPI(t)

	resp := api.do(t, http.MethodGet, "/api/v1/onboarding", nil, map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOnboardingEndpoints(t *testing.T) {
	api := openAPI(t)
	headers := bearer(t, "user-1")

	resp := api.do(t, http.MethodGet, "/api/v1/onboarding", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/onboarding", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[map[string]bool](t, resp)["completed"])

	resp = api.do(t, http.MethodPut, "/api/v1/onboarding", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/onboarding", nil, headers)
	assert.True(t, decode[map[string]bool](t, resp)["completed"])

	resp = api.do(t, http.MethodDelete, "/api/v1/onboarding", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/onboarding", nil, headers)
	assert.False(t, decode[map[string]bool](t, resp)["completed"])
}

func TestDemoFlow(t *testing.T) {
	api := openAPI(t)
	device := map[string]string{"X-Device-ID": "device-42"}

	resp := api.do(t, http.MethodPost, "/api/v1/demo", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/v1/demo", nil, device)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decode[map[string]any](t, resp)
	demoID, _ := started["user_id"].(string)
	assert.True(t, strings.HasPrefix(demoID, "demo-"))

	// the device header now acts as the demo user
	resp = api.do(t, http.MethodPut, "/api/v1/onboarding", nil, device)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done, _, err := api.flags.Get(context.Background(), "onboarding:"+demoID)
	require.NoError(t, err)
	assert.Equal(t, "true", done)

	resp = api.do(t, http.MethodGet, "/api/v1/demo", nil, device)
	assert.Equal(t, true, decode[map[string]any](t, resp)["active"])

	resp = api.do(t, http.MethodDelete, "/api/v1/demo", nil, device)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/demo", nil, device)
	assert.Equal(t, false, decode[map[string]any](t, resp)["active"])
}

func TestDemoDisabled(t *testing.T) {
	api := newTestAPI(t, config.APIConfig{Enabled: true}, config.AuthConfig{DemoEnabled: false})

	resp := api.do(t, http.MethodPost, "/api/v1/demo", nil, map[string]string{"X-Device-ID": "d1"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPAPIKeyAuth(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "catalog-key", Extra: "secret", Permissions: []string{PermReadCatalog}},
			},
		},
	}
	api := newTestAPI(t, cfg, config.AuthConfig{})

	resp := api.do(t, http.MethodGet, "/api/v1/laws", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/laws", nil, map[string]string{"x-api-key": "catalog-key", "x-api-extra": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	good := map[string]string{"x-api-key": "catalog-key", "x-api-extra": "secret"}
	resp = api.do(t, http.MethodGet, "/api/v1/laws", nil, good)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/bookings", nil, good)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// health checks stay open
	resp = api.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPRateLimit(t *testing.T) {
	cfg := config.APIConfig{
		Enabled:   true,
		RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 1},
	}
	api := newTestAPI(t, cfg, config.AuthConfig{})
	key := map[string]string{"x-api-key": "k1"}

	resp := api.do(t, http.MethodGet, "/api/v1/categories", nil, key)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/categories", nil, key)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	api := openAPI(t)

	resp := api.do(t, http.MethodDelete, "/api/v1/laws", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
