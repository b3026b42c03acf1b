package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"laporfasilitas.org/internal/admin"
	"laporfasilitas.org/internal/audit"
	"laporfasilitas.org/internal/auth"
	"laporfasilitas.org/internal/report"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T

	authSvc     *auth.Service
	authStore   *auth.InMemoryStore
	auditStore  *audit.InMemoryStore
	reportStore *report.InMemoryStore
	rootAdmin   *auth.User
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("LAPOR_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	authStore := auth.NewInMemoryStore()
	authSvc, err := auth.NewService(authStore)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	auditStore := audit.NewInMemoryStore()
	auditLog, err := audit.NewLog(auditStore, authSvc, audit.NewLocalFanout())
	if err != nil {
		t.Fatalf("audit.NewLog: %v", err)
	}
	adminSvc, err := admin.NewService(authSvc, auditLog)
	if err != nil {
		t.Fatalf("admin.NewService: %v", err)
	}
	reportStore := report.NewInMemoryStore()
	reportSvc, err := report.NewService(reportStore, authSvc, auditLog, nil)
	if err != nil {
		t.Fatalf("report.NewService: %v", err)
	}

	rootAdmin, err := authSvc.CreateAdminAccount(context.Background(), "kepala@kampus.ac.id", "rahasia123", "Kepala Asrama")
	if err != nil {
		t.Fatalf("create root admin: %v", err)
	}

	api := New(Config{
		Auth:    authSvc,
		Admins:  adminSvc,
		Reports: reportSvc,
		Logs:    auditLog,
		Version: "test",
	})
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL:     srv.URL,
		client:      srv.Client(),
		t:           t,
		authSvc:     authSvc,
		authStore:   authStore,
		auditStore:  auditStore,
		reportStore: reportStore,
		rootAdmin:   rootAdmin,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u := c.baseURL + path
	if params != nil {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) obtainToken(email, password string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/token", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token
}

func (c *apiClient) adminHeader() map[string]string {
	token := c.obtainToken("kepala@kampus.ac.id", "rahasia123")
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func validReportBody() map[string]any {
	return map[string]any{
		"reporter_name":      "Budi Santoso",
		"damage_description": "Keran kamar mandi lantai dua bocor terus",
		"location":           "asrama_kampus_2",
		"damage_type":        "air",
	}
}

func validAdminBody() map[string]any {
	return map[string]any{
		"full_name":        "Admin Baru",
		"email":            "baru@kampus.ac.id",
		"password":         "rahasia123",
		"confirm_password": "rahasia123",
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["service"] != "lapor-api" {
		t.Fatalf("unexpected service: %v", body["service"])
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/auth/token", map[string]any{
		"email":    "kepala@kampus.ac.id",
		"password": "salah",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}

	resp = api.post("/v1/auth/token", map[string]any{
		"email":    "kepala@kampus.ac.id",
		"password": "rahasia123",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	raw := decode[map[string]json.RawMessage](t, resp)
	if strings.Contains(string(raw["user"]), "password") {
		t.Fatalf("credential material leaked in login response: %s", raw["user"])
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/admins", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = api.get("/v1/admin/logs", nil, map[string]string{"Authorization": "Bearer garbage"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.StatusCode)
	}
}

func TestForbiddenCallerLeavesNoTrace(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	plain := &auth.User{ID: "mhs-1", Email: "mhs@kampus.ac.id", PasswordHash: mustHash(t, "rahasia123")}
	if err := api.authStore.CreateUserWithRole(ctx, plain, ""); err != nil {
		t.Fatalf("create plain user: %v", err)
	}
	token := api.obtainToken("mhs@kampus.ac.id", "rahasia123")
	header := map[string]string{"Authorization": "Bearer " + token}

	resp := api.post("/v1/admins", validAdminBody(), header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	if _, err := api.authStore.FindUserByEmail(ctx, "baru@kampus.ac.id"); err == nil {
		t.Fatalf("forbidden call created an account")
	}
	if api.auditStore.Len() != 0 {
		t.Fatalf("forbidden call was audited")
	}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

func TestAdminLifecycle(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	// create
	resp := api.post("/v1/admins", validAdminBody(), header)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "/v1/admins/") {
		t.Fatalf("missing Location header: %q", loc)
	}
	created := decode[auth.User](t, resp)

	// duplicate email
	resp = api.post("/v1/admins", validAdminBody(), header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}

	// list
	resp = api.get("/v1/admins", nil, header)
	list := decode[struct {
		Items []auth.User `json:"items"`
	}](t, resp)
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 admins, got %d", len(list.Items))
	}

	// reset password, then the new credential must work
	resp = api.post("/v1/admins/"+created.ID+"/password", map[string]any{
		"new_password":     "ganti-rahasia",
		"confirm_password": "ganti-rahasia",
	}, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for password reset, got %d", resp.StatusCode)
	}
	api.obtainToken("baru@kampus.ac.id", "ganti-rahasia")

	// self-deletion is refused
	resp = api.do(http.MethodDelete, "/v1/admins/"+api.rootAdmin.ID, nil, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for self-deletion, got %d", resp.StatusCode)
	}

	// delete the other admin
	resp = api.do(http.MethodDelete, "/v1/admins/"+created.ID, nil, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	isAdmin, err := api.authSvc.HasRole(context.Background(), created.ID, auth.RoleAdmin)
	if err != nil || isAdmin {
		t.Fatalf("role not revoked: %v", err)
	}
}

func TestResetPasswordTargetNotAdmin(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	plain := &auth.User{ID: "mhs-1", Email: "mhs@kampus.ac.id", PasswordHash: "x"}
	if err := api.authStore.CreateUserWithRole(context.Background(), plain, ""); err != nil {
		t.Fatalf("create plain user: %v", err)
	}

	resp := api.post("/v1/admins/mhs-1/password", map[string]any{
		"new_password":     "ganti-rahasia",
		"confirm_password": "ganti-rahasia",
	}, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-admin target, got %d", resp.StatusCode)
	}
}

func TestReportFlow(t *testing.T) {
	api := newTestAPI(t)

	// submission is public
	resp := api.post("/v1/reports", validReportBody(), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decode[report.Report](t, resp)
	if created.Status != report.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	// listing is public
	resp = api.get("/v1/reports", url.Values{"location": {"asrama_kampus_2"}}, nil)
	list := decode[struct {
		Items []report.Report `json:"items"`
	}](t, resp)
	if len(list.Items) != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", list.Items)
	}

	// stats is public
	resp = api.get("/v1/reports/stats", nil, nil)
	counts := decode[report.Counts](t, resp)
	if counts.Pending != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	// mutation requires a token
	resp = api.do(http.MethodPatch, "/v1/reports/"+created.ID+"/status", map[string]any{"status": "completed"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	header := api.adminHeader()
	resp = api.do(http.MethodPatch, "/v1/reports/"+created.ID+"/status", map[string]any{"status": "completed"}, header)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decode[report.Report](t, resp)
	if updated.Status != report.StatusCompleted {
		t.Fatalf("status not updated: %s", updated.Status)
	}

	resp = api.do(http.MethodDelete, "/v1/reports/"+created.ID, nil, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodDelete, "/v1/reports/"+created.ID, nil, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted report, got %d", resp.StatusCode)
	}
}

func TestAuditLogList(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	resp := api.post("/v1/admins", validAdminBody(), header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create admin: %d", resp.StatusCode)
	}

	second := validAdminBody()
	second["email"] = "kedua@kampus.ac.id"
	resp = api.post("/v1/admins", second, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create second admin: %d", resp.StatusCode)
	}

	resp = api.get("/v1/admin/logs", nil, header)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	list := decode[struct {
		Items []audit.Entry `json:"items"`
	}](t, resp)
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list.Items))
	}
	// newest first
	if list.Items[0].ID <= list.Items[1].ID {
		t.Fatalf("entries out of order: %s, %s", list.Items[0].ID, list.Items[1].ID)
	}
	if list.Items[0].ActorName != "Kepala Asrama" {
		t.Fatalf("unexpected actor name: %s", list.Items[0].ActorName)
	}

	resp = api.get("/v1/admin/logs", url.Values{"limit": {"1"}}, header)
	limited := decode[struct {
		Items []audit.Entry `json:"items"`
	}](t, resp)
	if len(limited.Items) != 1 {
		t.Fatalf("limit ignored: %d", len(limited.Items))
	}

	resp = api.get("/v1/admin/logs", url.Values{"limit": {"9999"}}, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range limit, got %d", resp.StatusCode)
	}
}

func TestAuditLogStream(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseURL+"/v1/admin/logs/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := api.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ":") {
		t.Fatalf("missing stream preamble: %q (%v)", line, err)
	}

	// Trigger an audited action while the stream is open.
	created := api.post("/v1/admins", validAdminBody(), header)
	created.Body.Close()
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create admin: %d", created.StatusCode)
	}

	var eventID, data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "id: "):
			eventID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			var entry audit.Entry
			if err := json.Unmarshal([]byte(data), &entry); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if entry.Action != audit.ActionAddAdmin {
				t.Fatalf("unexpected action: %s", entry.Action)
			}
			if eventID == "" || eventID != entry.ID {
				t.Fatalf("sse id does not match entry id: %q vs %q", eventID, entry.ID)
			}
			return
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(http.MethodPut, "/v1/reports", validReportBody(), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Fatalf("missing Allow header: %q", allow)
	}
}
