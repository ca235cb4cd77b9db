package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/service"
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Deps{})
	w := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "remnawave-provisioner")
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remnawave_panel_requests_total 1\n"))
	})
	ts := newTestServer(t, Deps{Metrics: metrics})

	w := ts.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "remnawave_panel_requests_total")
}

func TestCallbacks_Lifecycle(t *testing.T) {
	routes := map[string]string{
		"/api/callbacks/create":         "create",
		"/api/callbacks/suspend":        "suspend",
		"/api/callbacks/unsuspend":      "unsuspend",
		"/api/callbacks/terminate":      "terminate",
		"/api/callbacks/change-package": "change_package",
		"/api/callbacks/sync-status":    "sync_status",
		"/api/callbacks/reset-traffic":  "reset_traffic",
		"/api/callbacks/clear-ips":      "clear_ips",
	}

	for path, call := range routes {
		t.Run(call, func(t *testing.T) {
			ts := newTestServer(t, Deps{})
			body := map[string]interface{}{
				"serviceid":      42,
				"serverid":       1,
				"serverpassword": "panel-token",
				"configoption2":  "sq-1",
				"client":         map[string]string{"email": "alice@example.com"},
			}

			w := ts.do(t, http.MethodPost, path, body, internalHeaders())
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var res models.Result
			decode(t, w, &res)
			assert.True(t, res.OK)
			assert.Equal(t, models.SuccessSentinel, res.Message)

			require.Equal(t, []string{call}, ts.module.calls)
			assert.Equal(t, 42, ts.module.lastParams.ServiceID)
			assert.Equal(t, "sq-1", ts.module.lastParams.ConfigOption2)
			assert.Equal(t, "alice@example.com", ts.module.lastParams.Client.Email)
		})
	}
}

func TestCallbacks_FailureStaysInBody(t *testing.T) {
	ts := newTestServer(t, Deps{})
	ts.module.result = models.Failure(service.MsgSquadNotSet)

	w := ts.do(t, http.MethodPost, "/api/callbacks/create", map[string]int{"serviceid": 5}, internalHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	var res models.Result
	decode(t, w, &res)
	assert.False(t, res.OK)
	assert.Equal(t, service.MsgSquadNotSet, res.Message)
}

func TestCallbacks_RequireInternalSecret(t *testing.T) {
	ts := newTestServer(t, Deps{})

	w := ts.do(t, http.MethodPost, "/api/callbacks/create", map[string]int{"serviceid": 5}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/callbacks/create", map[string]int{"serviceid": 5},
		map[string]string{"X-Internal-Secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, ts.module.calls)
}

func TestCallbacks_MalformedBody(t *testing.T) {
	ts := newTestServer(t, Deps{})
	w := ts.do(t, http.MethodPost, "/api/callbacks/suspend", map[string]string{"serviceid": "not-a-number"}, internalHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.module.calls)
}

func TestCallbacks_TestConnection(t *testing.T) {
	ts := newTestServer(t, Deps{})
	w := ts.do(t, http.MethodPost, "/api/callbacks/test-connection", map[string]interface{}{"serverid": 1}, internalHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	var res models.TestConnectionResult
	decode(t, w, &res)
	assert.False(t, res.Success)
	assert.Equal(t, "Authentication failed", res.Error)
}

func TestCallbacks_Metadata(t *testing.T) {
	ts := newTestServer(t, Deps{})

	w := ts.do(t, http.MethodGet, "/api/callbacks/meta", nil, internalHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	var meta models.MetaData
	decode(t, w, &meta)
	assert.Equal(t, "1.2", meta.APIVersion)
	assert.True(t, meta.RequireServer)

	w = ts.do(t, http.MethodGet, "/api/callbacks/config-options", nil, internalHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Squad ID")

	w = ts.do(t, http.MethodGet, "/api/callbacks/buttons", nil, internalHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	var buttons []models.CustomButton
	decode(t, w, &buttons)
	require.Len(t, buttons, 1)
	assert.Equal(t, "SyncStatus", buttons[0].Operation)
}

func TestCallbacks_Display(t *testing.T) {
	ts := newTestServer(t, Deps{})

	w := ts.do(t, http.MethodPost, "/api/callbacks/admin-services-tab", map[string]int{"serviceid": 9}, internalHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	// fields keep their display order
	assert.Equal(t, `{"Client email":"alice@example.com","Traffic":"1.00 / 50.00 GB"}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/callbacks/client-area", map[string]int{"serviceid": 9}, internalHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clientarea.tpl")
}

func TestCallbacks_ServerEdit(t *testing.T) {
	ts := newTestServer(t, Deps{})
	port := 8443
	body := models.ServerSettings{ServerID: 3, Hostname: "panel.example.com", Port: &port, BasePath: "/api", SubDomain: "sub.example.com"}

	w := ts.do(t, http.MethodPost, "/api/callbacks/server-edit", body, internalHeaders())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, ts.admin.saved, 1)
	assert.Equal(t, "panel.example.com", ts.admin.saved[0].Hostname)

	var got models.ServerSettings
	decode(t, w, &got)
	assert.Equal(t, 3, got.ServerID)
	require.NotNil(t, got.Port)
	assert.Equal(t, 8443, *got.Port)
}

func TestCallbacks_ServerEditValidation(t *testing.T) {
	ts := newTestServer(t, Deps{})
	ts.admin.saveErr = &service.ValidationError{Message: service.MsgInvalidServerID}

	w := ts.do(t, http.MethodPost, "/api/callbacks/server-edit", models.ServerSettings{}, internalHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), service.MsgInvalidServerID)
}

func TestAdmin_RequiresJWT(t *testing.T) {
	ts := newTestServer(t, Deps{})

	w := ts.do(t, http.MethodGet, "/api/admin/logs", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/admin/logs", nil, map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad := signToken(t, "another-secret-another-secret-123456", map[string]interface{}{"uid": "x"})
	w = ts.do(t, http.MethodGet, "/api/admin/logs", nil, map[string]string{"Authorization": "Bearer " + bad})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the internal secret does not open the admin API
	w = ts.do(t, http.MethodGet, "/api/admin/logs", nil, internalHeaders())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_ServerSettings(t *testing.T) {
	ts := newTestServer(t, Deps{})
	port := 9443

	w := ts.do(t, http.MethodPut, "/api/admin/servers/7/settings",
		models.ServerSettings{ServerID: 99, Port: &port, SubURIPath: "/s/"}, adminHeaders(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, ts.admin.saved, 1)
	assert.Equal(t, 7, ts.admin.saved[0].ServerID)

	w = ts.do(t, http.MethodGet, "/api/admin/servers/7/settings", nil, adminHeaders(t))
	require.Equal(t, http.StatusOK, w.Code)
	var got models.ServerSettings
	decode(t, w, &got)
	assert.Equal(t, "/s/", got.SubURIPath)

	w = ts.do(t, http.MethodGet, "/api/admin/servers/abc/settings", nil, adminHeaders(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_ListSquads(t *testing.T) {
	ts := newTestServer(t, Deps{})
	ts.admin.squads = models.SquadListResponse{
		Success: true,
		Squads:  []models.SquadOption{{ID: "sq-1", Name: "Default"}},
	}

	w := ts.do(t, http.MethodPost, "/api/admin/squads", map[string]int{"serverid": 1}, adminHeaders(t))
	require.Equal(t, http.StatusOK, w.Code)

	var res models.SquadListResponse
	decode(t, w, &res)
	assert.True(t, res.Success)
	require.Len(t, res.Squads, 1)
	assert.Equal(t, "sq-1", res.Squads[0].ID)
}

func TestAdmin_SquadLimitIsPerServer(t *testing.T) {
	first := newTestServer(t, Deps{})
	second := newTestServer(t, Deps{})
	headers := adminHeaders(t)

	for i := 0; i < 30; i++ {
		w := first.do(t, http.MethodPost, "/api/admin/squads", map[string]int{"serverid": 1}, headers)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := first.do(t, http.MethodPost, "/api/admin/squads", map[string]int{"serverid": 1}, headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = second.do(t, http.MethodPost, "/api/admin/squads", map[string]int{"serverid": 1}, headers)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_ListCallLogs(t *testing.T) {
	ts := newTestServer(t, Deps{})
	ts.callLog.entries = []models.ModuleCallLog{{ID: "a", ServiceID: 4, Action: "create", Status: models.CallStatusFailed}}

	w := ts.do(t, http.MethodGet, "/api/admin/logs?service_id=4&limit=10", nil, adminHeaders(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, ts.callLog.serviceID)
	assert.Equal(t, 10, ts.callLog.limit)

	var out struct {
		Entries []models.ModuleCallLog `json:"entries"`
		Count   int                    `json:"count"`
	}
	decode(t, w, &out)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "create", out.Entries[0].Action)

	w = ts.do(t, http.MethodGet, "/api/admin/logs?service_id=x", nil, adminHeaders(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
