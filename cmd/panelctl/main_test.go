package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "panelctl.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PANEL_TOKEN", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")

	// second run only checks
	_, err = run(t, "migrate")
	require.NoError(t, err)
}

func TestServerSetKeepsUnchangedFields(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "server", "set", "3", "--hostname", "panel.example.com", "--port", "8443", "--sub-domain", "sub.example.com")
	require.NoError(t, err)

	_, err = run(t, "server", "set", "3", "--base-path", "panel")
	require.NoError(t, err)

	out, err := run(t, "server", "show", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "panel.example.com")
	assert.Contains(t, out, "8443")
	assert.Contains(t, out, "/panel")
	assert.Contains(t, out, "sub.example.com")

	out, err = run(t, "server", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "HOSTNAME")
	assert.Contains(t, out, "panel.example.com")
}

func TestServerSetClearsPort(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "server", "set", "4", "--port", "9443")
	require.NoError(t, err)
	_, err = run(t, "server", "set", "4", "--port", "0")
	require.NoError(t, err)

	out, err := run(t, "server", "show", "4")
	require.NoError(t, err)
	assert.NotContains(t, out, "9443")
}

func TestServerSingleFieldWriters(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "server", "set", "6", "--hostname", "panel.example.com", "--sub-domain", "sub.example.com")
	require.NoError(t, err)

	out, err := run(t, "server", "set-port", "6", "7443")
	require.NoError(t, err)
	assert.Contains(t, out, "server 6 port updated")

	_, err = run(t, "server", "set-base-path", "6", "api-root/")
	require.NoError(t, err)

	out, err = run(t, "server", "show", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "7443")
	assert.Contains(t, out, "/api-root")
	assert.Contains(t, out, "sub.example.com")
	assert.Contains(t, out, "panel.example.com")

	_, err = run(t, "server", "set-base-path", "6")
	require.NoError(t, err)
	out, err = run(t, "server", "show", "6")
	require.NoError(t, err)
	assert.NotContains(t, out, "/api-root")
	assert.Contains(t, out, "7443")

	_, err = run(t, "server", "set-port", "6", "http")
	require.Error(t, err)
}

func TestServerShowRejectsBadID(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "server", "show", "abc")
	require.Error(t, err)
}

func TestSquads(t *testing.T) {
	setupEnv(t)
	panel := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer panel-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
			return
		}
		if r.URL.Path != "/api/internal-squads" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"internalSquads":[{"uuid":"sq-1","name":"Main"}]}}`))
	}))
	t.Cleanup(panel.Close)

	out, err := run(t, "squads", "--server-id", "1", "--hostname", panel.URL, "--token", "panel-token")
	require.NoError(t, err)
	assert.Contains(t, out, "sq-1")
	assert.Contains(t, out, "Main")

	out, err = run(t, "test-connection", "--server-id", "1", "--hostname", panel.URL, "--token", "panel-token")
	require.NoError(t, err)
	assert.Contains(t, out, "connection OK")

	_, err = run(t, "test-connection", "--server-id", "1", "--hostname", panel.URL, "--token", "wrong")
	require.Error(t, err)
}

func TestLogsEmpty(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "logs", "--service-id", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "ACTION")
}

func TestVersionSkipsStorage(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "panelctl dev")
}
