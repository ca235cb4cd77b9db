package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/lock"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/repository"
)

type panelCall struct {
	Route string
	Auth  string
	Body  map[string]interface{}
}

// fakePanel answers registered "METHOD /path" routes and records every call
type fakePanel struct {
	srv *httptest.Server

	mu     sync.Mutex
	calls  []panelCall
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakePanel(t *testing.T) *fakePanel {
	t.Helper()
	f := &fakePanel{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := panelCall{Route: r.Method + " " + r.URL.Path, Auth: r.Header.Get("Authorization")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &call.Body)
		}

		f.mu.Lock()
		f.calls = append(f.calls, call)
		h, ok := f.routes[call.Route]
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"no route ` + call.Route + `"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePanel) on(route string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (f *fakePanel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakePanel) callsTo(route string) []panelCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []panelCall
	for _, c := range f.calls {
		if c.Route == route {
			out = append(out, c)
		}
	}
	return out
}

type lifecycleSpy struct {
	mu      sync.Mutex
	results []string
}

func (s *lifecycleSpy) ObserveLifecycle(action string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome := "ok"
	if !ok {
		outcome = "fail"
	}
	s.results = append(s.results, action+":"+outcome)
}

type testEnv struct {
	p         *Provisioner
	panel     *fakePanel
	servers   *repository.ServerConfigRepository
	services  *repository.ServiceDataRepository
	callLog   *repository.CallLogRepository
	lifecycle *lifecycleSpy
	now       time.Time
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gsqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	schema := repository.NewSchema(db)
	locker := lock.NewMemoryLocker()

	env := &testEnv{
		panel:     newFakePanel(t),
		servers:   repository.NewServerConfigRepository(db, schema, locker),
		services:  repository.NewServiceDataRepository(db, schema, locker),
		callLog:   repository.NewCallLogRepository(db, schema),
		lifecycle: &lifecycleSpy{},
		now:       time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	env.p = NewProvisioner(env.servers, env.services, env.callLog,
		WithLifecycleRecorder(env.lifecycle),
		WithClock(func() time.Time { return env.now }),
	)
	return env
}

// params is a callback bag pointing at the fake panel
func (e *testEnv) params(serviceID int) models.Params {
	return models.Params{
		ServiceID:        serviceID,
		ServerID:         1,
		ClientID:         42,
		ServerHostname:   e.panel.srv.URL,
		ServerPassword:   "panel-token",
		ServerAccessHash: "10",
		ConfigOption2:    "sq-1",
		Client:           models.ClientDetails{Email: "alice@example.com"},
	}
}

func (e *testEnv) provision(t *testing.T, serviceID int, uuid string) {
	t.Helper()
	require.NoError(t, e.services.Save(context.Background(), serviceID, uuid, "alice@example.com", nil))
}

// panelHost is the fake panel address without scheme
func (e *testEnv) panelHost() string {
	return strings.TrimPrefix(e.panel.srv.URL, "http://")
}

func intPtr(v int) *int { return &v }
