package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/fleetledger/internal/alerts"
	"github.com/example/fleetledger/internal/config"
	"github.com/example/fleetledger/internal/ledger"
	"github.com/example/fleetledger/internal/services"
	"github.com/example/fleetledger/internal/signup"
	"github.com/example/fleetledger/internal/stats"
	"github.com/example/fleetledger/internal/store"
	"github.com/example/fleetledger/internal/utils"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type sentBox struct {
	mu   sync.Mutex
	sent []services.Message
}

func (b *sentBox) Name() string { return "test" }

func (b *sentBox) Send(_ context.Context, msg services.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
	return nil
}

type testServer struct {
	app       *fiber.App
	outbox    *sentBox
	uploadDir string
}

func newTestServer(t *testing.T, authLimit int) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppEnv:         "test",
		Timezone:       "UTC",
		UploadMaxBytes: 1 << 20,
		AuthRateLimit:  authLimit,
	}
	clock := utils.NewFixedClock(testNow)
	st := store.NewMemoryStore()
	outbox := &sentBox{}

	issuer, err := signup.NewIssuer(st, store.NewMemoryPending(), utils.NewHasher(bcrypt.MinCost),
		utils.NewTokenSigner("test-secret", 7*24*time.Hour, clock), outbox, clock,
		signup.Options{CodeTTL: 5 * time.Minute, CodeLength: 5, DevEcho: true}, zap.NewNop())
	require.NoError(t, err)

	uploadDir := t.TempDir()
	blobs, err := services.NewDiskStore(uploadDir)
	require.NoError(t, err)

	app := NewApp(Deps{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Issuer:   issuer,
		Ledger:   ledger.NewService(st, clock, zap.NewNop()),
		Stats:    stats.NewEngine(st, clock, time.UTC),
		Alerts:   alerts.NewScanner(st, clock, time.UTC),
		Notifier: outbox,
		Blobs:    blobs,
	})
	return &testServer{app: app, outbox: outbox, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func (s *testServer) json(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(t, req)
}

func (s *testServer) multipart(t *testing.T, path, token string, fields map[string]string, files map[string]string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("documents", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return s.do(t, req)
}

func (s *testServer) register(t *testing.T, phone, email string) string {
	t.Helper()
	status, body := s.json(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"full_name": "Ravi Kumar",
		"phone":     phone,
		"email":     email,
		"password":  "s3cret",
		"address":   "12 MG Road",
		"city":      "Bengaluru",
		"state":     "KA",
		"zip":       "560001",
	})
	require.Equal(t, http.StatusAccepted, status, body)
	code := body["data"].(map[string]any)["code"].(string)

	status, body = s.json(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"phone": phone, "code": code})
	require.Equal(t, http.StatusCreated, status, body)
	return body["token"].(string)
}

func data(body map[string]any) map[string]any {
	return body["data"].(map[string]any)
}

func TestSignupVerifyLogin(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.register(t, "9000000001", "ravi@example.com")
	assert.NotEmpty(t, token)
	require.Len(t, s.outbox.sent, 1)
	assert.True(t, s.outbox.sent[0].Sensitive)

	status, body := s.json(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "9000000001", data(body)["phone"])
	assert.NotContains(t, data(body), "password_hash")

	status, body = s.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{"phone": "9000000001", "password": "s3cret"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])

	status, body = s.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{"phone": "9000000001", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body["message"])

	status, body = s.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{"phone": "9999999999", "password": "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body["message"])
}

func TestSignupErrors(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.json(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"phone": "9000000001"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	status, _ = s.json(t, http.MethodPost, "/api/auth/resend-otp", "", map[string]string{"phone": "9000000001"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.json(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"phone": "9000000001", "code": "12345"})
	assert.Equal(t, http.StatusNotFound, status)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	status, body = s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid request body", body["message"])

	s.register(t, "9000000001", "ravi@example.com")
	status, _ = s.json(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"full_name": "Ravi", "phone": "9000000001", "email": "x@example.com", "password": "p",
		"address": "a", "city": "c", "state": "s", "zip": "z",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 0)

	for _, path := range []string{"/api/vehicles", "/api/dashboard/stats", "/api/alerts", "/api/profile"} {
		status, body := s.json(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "unauthenticated", body["message"])
	}

	status, _ := s.json(t, http.MethodGet, "/api/vehicles", "forged.token.value", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLedgerDashboardAndAlerts(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.register(t, "9000000001", "ravi@example.com")

	status, body := s.json(t, http.MethodPost, "/api/vehicles", token, map[string]any{
		"vehicle_no":     "ka01ab1234",
		"model":          "Tata 1613",
		"tyre_count":     6,
		"emi_amount":     "18500.00",
		"insurance_date": testNow.AddDate(0, 0, 2).Format("2006-01-02"),
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "KA01AB1234", data(body)["vehicle_no"])

	status, _ = s.json(t, http.MethodPost, "/api/vehicles", token, map[string]any{"vehicle_no": "X"})
	require.Equal(t, http.StatusCreated, status)

	status, body = s.json(t, http.MethodPost, "/api/vehicles", token, map[string]any{"vehicle_no": "Y", "tax_date": "16/10/2026"})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = s.json(t, http.MethodPost, "/api/incomes", token, map[string]any{
		"vehicle": "X", "amount": 10000, "payment_status": "paid", "payer_company": "Acme Logistics",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = s.json(t, http.MethodPost, "/api/incomes", token, map[string]any{"vehicle": "X", "amount": "ten"})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = s.json(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"vehicle": "X", "amount": 4000, "category": "fuel",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "at least one document is required")

	status, body = s.multipart(t, "/api/expenses", token,
		map[string]string{"vehicle": "X", "amount": "4000", "category": "fuel", "date": "2026-10-10"},
		map[string]string{"diesel-bill.pdf": "%PDF-1.4"},
	)
	require.Equal(t, http.StatusCreated, status, body)
	docs := data(body)["documents"].([]any)
	require.Len(t, docs, 1)

	status, body = s.multipart(t, "/api/expenses", token,
		map[string]string{"vehicle": "X", "amount": "10", "category": "misc"},
		map[string]string{"run.exe": "MZ"},
	)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = s.json(t, http.MethodGet, "/api/dashboard/stats?vehicleNo=X", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "10000", data(body)["total_income"])
	assert.Equal(t, "4000", data(body)["total_expense"])
	assert.Equal(t, "6000", data(body)["net_profit"])

	status, body = s.json(t, http.MethodGet, "/api/dashboard/stats?vehicleNo=Y", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", data(body)["total_income"])
	assert.Equal(t, "0", data(body)["net_profit"])

	status, body = s.json(t, http.MethodGet, "/api/dashboard/series", token, nil)
	require.Equal(t, http.StatusOK, status)
	series := body["data"].([]any)
	require.Len(t, series, 6)
	last := series[5].(map[string]any)
	assert.Equal(t, "Oct", last["label"])
	assert.Equal(t, "10000", last["income"])
	assert.Equal(t, "4000", last["expense"])

	status, body = s.json(t, http.MethodGet, "/api/alerts", token, nil)
	require.Equal(t, http.StatusOK, status)
	found := body["data"].([]any)
	require.Len(t, found, 1)
	alert := found[0].(map[string]any)
	assert.Equal(t, "KA01AB1234", alert["vehicle_no"])
	assert.Equal(t, "Insurance", alert["type"])
	assert.EqualValues(t, 2, alert["days_left"])
	assert.Equal(t, true, alert["critical"])

	status, _ = s.json(t, http.MethodGet, "/api/alerts?days=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.json(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	overview := data(body)
	assert.Equal(t, "6000", overview["stats"].(map[string]any)["net_profit"])
	assert.Len(t, overview["series"], 6)
	assert.Len(t, overview["alerts"], 1)

	status, body = s.json(t, http.MethodGet, "/api/incomes?status=unpaid", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"])
	assert.EqualValues(t, 0, body["pagination"].(map[string]any)["total_items"])

	status, body = s.json(t, http.MethodGet, "/api/expenses?vehicleNo=x", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestRejectedRecordsLeaveNoUploads(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.register(t, "9000000001", "ravi@example.com")

	status, body := s.multipart(t, "/api/expenses", token,
		map[string]string{"vehicle": "UNKNOWN", "amount": "4000", "category": "fuel"},
		map[string]string{"diesel-bill.pdf": "%PDF-1.4"},
	)
	assert.Equal(t, http.StatusNotFound, status, body)

	status, body = s.multipart(t, "/api/incomes", token,
		map[string]string{"vehicle": "UNKNOWN", "amount": "10"},
		map[string]string{"lr.png": "png"},
	)
	assert.Equal(t, http.StatusNotFound, status, body)

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	status, _ = s.json(t, http.MethodPost, "/api/vehicles", token, map[string]any{"vehicle_no": "X"})
	require.Equal(t, http.StatusCreated, status)

	status, body = s.json(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"vehicle": "X", "amount": 4000, "category": "fuel", "documents": []string{"", "  "},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "at least one document is required")
}

func TestVehicleOwnership(t *testing.T) {
	s := newTestServer(t, 0)
	owner := s.register(t, "9000000001", "ravi@example.com")
	intruder := s.register(t, "9000000002", "sita@example.com")

	status, body := s.json(t, http.MethodPost, "/api/vehicles", owner, map[string]any{"vehicle_no": "X"})
	require.Equal(t, http.StatusCreated, status)
	id := data(body)["id"].(string)

	status, _ = s.json(t, http.MethodPut, "/api/vehicles/"+id, intruder, map[string]any{"model": "stolen"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.json(t, http.MethodDelete, "/api/vehicles/"+id, intruder, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.json(t, http.MethodGet, "/api/vehicles", intruder, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"])

	status, body = s.json(t, http.MethodPut, "/api/vehicles/"+id, owner, map[string]any{"model": "Eicher Pro"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Eicher Pro", data(body)["model"])

	status, _ = s.json(t, http.MethodDelete, "/api/vehicles/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.json(t, http.MethodDelete, "/api/vehicles/"+id, owner, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.json(t, http.MethodDelete, "/api/vehicles/"+id, owner, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNotify(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.register(t, "9000000001", "ravi@example.com")

	status, _ := s.json(t, http.MethodPost, "/api/notify", token, map[string]string{"mobile": "9000000009"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := s.json(t, http.MethodPost, "/api/notify", token, map[string]string{
		"mobile": "9000000009", "message": "Permit for KA01AB1234 expires Friday",
	})
	require.Equal(t, http.StatusOK, status, body)

	last := s.outbox.sent[len(s.outbox.sent)-1]
	assert.Equal(t, "9000000009", last.To)
	assert.False(t, last.Sensitive)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, 2)

	var statuses []int
	for i := 0; i < 3; i++ {
		status, _ := s.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{"phone": fmt.Sprint(i), "password": "x"})
		statuses = append(statuses, status)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, statuses)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.json(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "fleetledger_http_request_duration_seconds")
}
