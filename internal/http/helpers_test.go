package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/config"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/service"
)

const (
	testInternalSecret = "internal-secret-for-tests-0123456789"
	testJWTSecret      = "jwt-secret-for-tests-0123456789abcdef"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:         config.ServerConfig{Port: "0", Mode: gin.TestMode},
		JWT:            config.JWTConfig{SecretKey: testJWTSecret},
		InternalSecret: testInternalSecret,
	}
}

// stubModule records the last callback and answers with canned results
type stubModule struct {
	calls      []string
	lastParams models.Params
	result     models.Result
}

var _ service.Module = (*stubModule)(nil)

func (m *stubModule) record(name string, params models.Params) models.Result {
	m.calls = append(m.calls, name)
	m.lastParams = params
	return m.result
}

func (m *stubModule) MetaData() models.MetaData {
	return models.MetaData{DisplayName: "Remnawave (V2Ray/Xray)", APIVersion: "1.2", RequireServer: true}
}

func (m *stubModule) ConfigOptions(ctx context.Context) []models.ConfigOption {
	return []models.ConfigOption{{Name: "Internal Squad ID", Type: "text"}}
}

func (m *stubModule) AdminCustomButtons() []models.CustomButton {
	return []models.CustomButton{{Label: "Sync status", Operation: "SyncStatus"}}
}

func (m *stubModule) CreateAccount(ctx context.Context, p models.Params) models.Result {
	return m.record("create", p)
}

func (m *stubModule) SuspendAccount(ctx context.Context, p models.Params) models.Result {
	return m.record("suspend", p)
}

func (m *stubModule) UnsuspendAccount(ctx context.Context, p models.Params) models.Result {
	return m.record("unsuspend", p)
}

func (m *stubModule) TerminateAccount(ctx context.Context, p models.Params) models.Result {
	return m.record("terminate", p)
}

func (m *stubModule) ChangePackage(ctx context.Context, p models.Params) models.Result {
	return m.record("change_package", p)
}

func (m *stubModule) TestConnection(ctx context.Context, p models.Params) models.TestConnectionResult {
	m.record("test_connection", p)
	return models.TestConnectionResult{Success: false, Error: "Authentication failed"}
}

func (m *stubModule) SyncStatus(ctx context.Context, p models.Params) models.Result {
	return m.record("sync_status", p)
}

func (m *stubModule) ResetTraffic(ctx context.Context, p models.Params) models.Result {
	return m.record("reset_traffic", p)
}

func (m *stubModule) ClearIps(ctx context.Context, p models.Params) models.Result {
	return m.record("clear_ips", p)
}

func (m *stubModule) AdminServicesTabFields(ctx context.Context, p models.Params) models.Fields {
	m.record("admin_tab", p)
	return models.Fields{{Label: "Client email", Value: "alice@example.com"}, {Label: "Traffic", Value: "1.00 / 50.00 GB"}}
}

func (m *stubModule) ClientArea(ctx context.Context, p models.Params) models.ClientArea {
	m.record("client_area", p)
	return models.ClientArea{TemplateFile: "clientarea.tpl"}
}

type stubAdmin struct {
	saved    []models.ServerSettings
	settings map[int]models.ServerSettings
	squads   models.SquadListResponse
	saveErr  error
}

func (a *stubAdmin) SaveServerSettings(ctx context.Context, s models.ServerSettings) error {
	if a.saveErr != nil {
		return a.saveErr
	}
	a.saved = append(a.saved, s)
	if a.settings == nil {
		a.settings = map[int]models.ServerSettings{}
	}
	a.settings[s.ServerID] = s
	return nil
}

func (a *stubAdmin) GetServerSettings(ctx context.Context, serverID int) (models.ServerSettings, error) {
	if s, ok := a.settings[serverID]; ok {
		return s, nil
	}
	return models.ServerSettings{ServerID: serverID}, nil
}

func (a *stubAdmin) ListSquads(ctx context.Context, params models.Params) models.SquadListResponse {
	return a.squads
}

type stubCallLog struct {
	serviceID int
	limit     int
	entries   []models.ModuleCallLog
}

func (l *stubCallLog) List(ctx context.Context, serviceID, limit int) ([]models.ModuleCallLog, error) {
	l.serviceID = serviceID
	l.limit = limit
	return l.entries, nil
}

type testServer struct {
	handler http.Handler
	module  *stubModule
	admin   *stubAdmin
	callLog *stubCallLog
}

func newTestServer(t *testing.T, deps Deps) *testServer {
	t.Helper()
	ts := &testServer{
		module:  &stubModule{result: models.Success()},
		admin:   &stubAdmin{},
		callLog: &stubCallLog{},
	}
	if deps.Module == nil {
		deps.Module = ts.module
	}
	if deps.Admin == nil {
		deps.Admin = ts.admin
	}
	if deps.CallLog == nil {
		deps.CallLog = ts.callLog
	}
	ts.handler = NewServer(testConfig(), deps).Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func internalHeaders() map[string]string {
	return map[string]string{"X-Internal-Secret": testInternalSecret}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func adminHeaders(t *testing.T) map[string]string {
	return map[string]string{"Authorization": "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"uid": "operator-1"})}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
