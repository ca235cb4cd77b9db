package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

func TestServerSettings_SaveAndLoad(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	empty, err := env.p.GetServerSettings(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, models.ServerSettings{ServerID: 4}, empty)

	err = env.p.SaveServerSettings(ctx, models.ServerSettings{
		ServerID:   4,
		Hostname:   "panel.example.com",
		Port:       intPtr(8443),
		BasePath:   "panel",
		SubDomain:  "sub.example.com",
		SubURIPath: "s",
	})
	require.NoError(t, err)

	got, err := env.p.GetServerSettings(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "panel.example.com", got.Hostname)
	assert.Equal(t, 8443, *got.Port)
	assert.Equal(t, "/panel", got.BasePath)
	assert.Equal(t, "sub.example.com", got.SubDomain)
	assert.Nil(t, got.SubPort)
	assert.Equal(t, "/s", got.SubURIPath)
}

func TestServerSettings_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	err := env.p.SaveServerSettings(context.Background(), models.ServerSettings{})
	require.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestConfigOptions_ServerDropdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.servers.SetHostname(ctx, 2, "panel-b.example.com"))
	require.NoError(t, env.servers.SetSubscriptionSettings(ctx, 3, "sub.example.com", nil, ""))

	opts := env.p.ConfigOptions(ctx)
	require.Len(t, opts, 7)
	assert.Equal(t, "Server for Squad List", opts[0].Name)
	assert.Equal(t, map[string]string{
		"0": "-- Select server to load squads --",
		"2": "panel-b.example.com",
		"3": "Server #3",
	}, opts[0].Options)
	assert.Equal(t, "Traffic cap (GB)", opts[2].FriendlyName)
	assert.Equal(t, "50", opts[2].Default)
}

func TestMetaDataAndButtons(t *testing.T) {
	env := newTestEnv(t)

	meta := env.p.MetaData()
	assert.Equal(t, "1.2", meta.APIVersion)
	assert.True(t, meta.RequireServer)

	assert.Equal(t, []models.CustomButton{
		{Label: "Sync status", Operation: "SyncStatus"},
		{Label: "Reset Traffic", Operation: "ResetTraffic"},
		{Label: "Reset IP", Operation: "ClearIps"},
	}, env.p.AdminCustomButtons())
}

func TestListSquads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.panel.on("GET /api/internal-squads", 200, `{"response":{"internalSquads":[{"uuid":"sq-1","name":"Main"}]}}`)

	res := env.p.ListSquads(ctx, models.Params{})
	assert.Equal(t, models.SquadListResponse{Success: false, Error: "Invalid serverid"}, res)

	require.NoError(t, env.servers.SetHostname(ctx, 1, env.panel.srv.URL))
	res = env.p.ListSquads(ctx, models.Params{ServerID: 1, ServerPassword: "panel-token"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []models.SquadOption{{ID: "sq-1", Name: "Main", Remark: "Main"}}, res.Squads)
}
