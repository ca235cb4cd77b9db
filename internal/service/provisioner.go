package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/client"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

// Call log actions
const (
	ActionCreate         = "create"
	ActionSuspend        = "suspend"
	ActionUnsuspend      = "unsuspend"
	ActionTerminate      = "terminate"
	ActionChangePackage  = "change_package"
	ActionTestConnection = "test_connection"
	ActionSyncStatus     = "sync_status"
	ActionResetTraffic   = "reset_traffic"
	ActionClearIps       = "clear_ips"
)

// Provisioner implements Module on top of the panel client and the
// configuration store
type Provisioner struct {
	servers   ServerConfigStore
	services  ServiceDataStore
	callLog   CallLogger
	newClient ClientFactory
	recorder  client.Recorder
	lifecycle LifecycleRecorder

	defaultTimeout time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

var _ Module = (*Provisioner)(nil)

type Option func(*Provisioner)

// WithClientFactory replaces the panel client constructor
func WithClientFactory(f ClientFactory) Option {
	return func(p *Provisioner) { p.newClient = f }
}

// WithRecorder instruments every panel request
func WithRecorder(r client.Recorder) Option {
	return func(p *Provisioner) { p.recorder = r }
}

func WithLifecycleRecorder(r LifecycleRecorder) Option {
	return func(p *Provisioner) { p.lifecycle = r }
}

// WithDefaultTimeout is used when the access hash carries no usable timeout
func WithDefaultTimeout(d time.Duration) Option {
	return func(p *Provisioner) {
		if d >= client.MinTimeout {
			p.defaultTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) { p.now = now }
}

// NewProvisioner creates the lifecycle orchestrator
func NewProvisioner(servers ServerConfigStore, services ServiceDataStore, callLog CallLogger, opts ...Option) *Provisioner {
	p := &Provisioner{
		servers:        servers,
		services:       services,
		callLog:        callLog,
		newClient:      NewPanelClient,
		defaultTimeout: client.DefaultTimeout,
		now:            time.Now,
		logger:         log.With().Str("component", "provisioner").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ==================== Lifecycle ====================

// CreateAccount creates the remote user and records the link
func (p *Provisioner) CreateAccount(ctx context.Context, params models.Params) models.Result {
	return p.finish(ctx, ActionCreate, params, p.createAccount(ctx, params))
}

func (p *Provisioner) createAccount(ctx context.Context, params models.Params) error {
	product := ParseProductConfig(params)
	if product.SquadID == "" {
		return &ValidationError{Message: MsgSquadNotSet}
	}

	existing, err := p.services.Get(ctx, params.ServiceID)
	if err != nil {
		return err
	}
	if existing != nil {
		return &ValidationError{Message: MsgAlreadyProvisioned}
	}

	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		return err
	}

	// 1. Build payload
	email := ClientEmail(params)
	payload := map[string]interface{}{
		"email":            email,
		"internalSquadIds": []string{product.SquadID},
		"dataLimitBytes":   DataLimitBytes(product.TrafficGB),
		"expireAt":         ExpireAtMillis(product.ExpiryDays, product.StartExpiryAfterFirstUse, p.now()),
		"enabled":          true,
	}
	if comment := ClientComment(params, product.CommentFormat); comment != "" {
		payload["name"] = comment
		payload["comment"] = comment
	}
	if product.IPLimit > 0 {
		payload["limitIps"] = product.IPLimit
	}

	// 2. Create remote user
	user, err := p.panel(conn).CreateUser(ctx, payload)
	if err != nil {
		return err
	}
	if user.UUID == "" {
		return &ValidationError{Message: MsgNoUserUUID}
	}

	// 3. Persist link
	squad := product.SquadID
	if err := p.services.Save(ctx, params.ServiceID, user.UUID, email, &squad); err != nil {
		return err
	}

	p.logger.Info().
		Int("service_id", params.ServiceID).
		Int("server_id", conn.ServerID).
		Str("user_uuid", user.UUID).
		Msg("account created")
	return nil
}

// SuspendAccount disables the remote user
func (p *Provisioner) SuspendAccount(ctx context.Context, params models.Params) models.Result {
	return p.finish(ctx, ActionSuspend, params, p.setEnabled(ctx, params, false))
}

// UnsuspendAccount enables the remote user
func (p *Provisioner) UnsuspendAccount(ctx context.Context, params models.Params) models.Result {
	return p.finish(ctx, ActionUnsuspend, params, p.setEnabled(ctx, params, true))
}

func (p *Provisioner) setEnabled(ctx context.Context, params models.Params, enabled bool) error {
	data, err := p.requireRecord(ctx, params, MsgCreateFirst)
	if err != nil {
		return err
	}
	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		return err
	}
	return p.panel(conn).UpdateUser(ctx, data.UserUUID, map[string]interface{}{"enabled": enabled})
}

// TerminateAccount deletes the remote user, then the record. A missing
// record is success; a failed remote delete keeps the record for retry.
func (p *Provisioner) TerminateAccount(ctx context.Context, params models.Params) models.Result {
	return p.finish(ctx, ActionTerminate, params, p.terminateAccount(ctx, params))
}

func (p *Provisioner) terminateAccount(ctx context.Context, params models.Params) error {
	data, err := p.services.Get(ctx, params.ServiceID)
	if err != nil {
		return err
	}
	if data == nil {
		return p.services.Delete(ctx, params.ServiceID)
	}

	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		return err
	}
	if err := p.panel(conn).DeleteUser(ctx, data.UserUUID); err != nil {
		return err
	}
	if err := p.services.Delete(ctx, params.ServiceID); err != nil {
		return err
	}

	p.logger.Info().Int("service_id", params.ServiceID).Str("user_uuid", data.UserUUID).Msg("account terminated")
	return nil
}

// ChangePackage applies the current product limits to the remote user
func (p *Provisioner) ChangePackage(ctx context.Context, params models.Params) models.Result {
	return p.finish(ctx, ActionChangePackage, params, p.changePackage(ctx, params))
}

func (p *Provisioner) changePackage(ctx context.Context, params models.Params) error {
	product := ParseProductConfig(params)
	data, err := p.requireRecord(ctx, params, MsgServiceDataMissing)
	if err != nil {
		return err
	}
	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		return err
	}
	return p.panel(conn).UpdateUser(ctx, data.UserUUID, map[string]interface{}{
		"dataLimitBytes": DataLimitBytes(product.TrafficGB),
		"expireAt":       ExpireAtMillis(product.ExpiryDays, product.StartExpiryAfterFirstUse, p.now()),
		"limitIps":       product.IPLimit,
	})
}

// TestConnection checks the token and that squads can be listed
func (p *Provisioner) TestConnection(ctx context.Context, params models.Params) models.TestConnectionResult {
	err := p.testConnection(ctx, params)
	result := p.finish(ctx, ActionTestConnection, params, err)
	if !result.OK {
		return models.TestConnectionResult{Success: false, Error: result.Message}
	}
	return models.TestConnectionResult{Success: true}
}

func (p *Provisioner) testConnection(ctx context.Context, params models.Params) error {
	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		return err
	}
	api := p.panel(conn)
	if err := api.ValidateCredentials(ctx); err != nil {
		return err
	}
	_, err = api.ListGroups(ctx)
	return err
}

// ==================== Admin buttons ====================

// SyncStatus refreshes the traffic counters of the remote user
func (p *Provisioner) SyncStatus(ctx context.Context, params models.Params) models.Result {
	return p.finish(ctx, ActionSyncStatus, params, p.withRecord(ctx, params, func(api PanelAPI, data *models.ServiceData) error {
		_, err := api.GetTraffic(ctx, data.UserUUID)
		return err
	}))
}

func (p *Provisioner) ResetTraffic(ctx context.Context, params models.Params) models.Result {
	return p.finish(ctx, ActionResetTraffic, params, p.withRecord(ctx, params, func(api PanelAPI, data *models.ServiceData) error {
		return api.ResetTraffic(ctx, data.UserUUID)
	}))
}

// ClearIps revokes the user's access state so connected devices drop
func (p *Provisioner) ClearIps(ctx context.Context, params models.Params) models.Result {
	return p.finish(ctx, ActionClearIps, params, p.withRecord(ctx, params, func(api PanelAPI, data *models.ServiceData) error {
		return api.ClearClientAccessState(ctx, data.UserUUID)
	}))
}

func (p *Provisioner) withRecord(ctx context.Context, params models.Params, fn func(api PanelAPI, data *models.ServiceData) error) error {
	data, err := p.requireRecord(ctx, params, MsgNoServiceData)
	if err != nil {
		return err
	}
	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		return err
	}
	return fn(p.panel(conn), data)
}

// ==================== Helpers ====================

func (p *Provisioner) requireRecord(ctx context.Context, params models.Params, msg string) (*models.ServiceData, error) {
	data, err := p.services.Get(ctx, params.ServiceID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, &NotProvisionedError{ServiceID: params.ServiceID, Message: msg}
	}
	return data, nil
}

// finish converts the outcome to the host's result, writes the call log
// and counts the operation
func (p *Provisioner) finish(ctx context.Context, action string, params models.Params, err error) models.Result {
	result := models.Success()
	status := models.CallStatusSuccess
	if err != nil {
		result = models.Failure(errorMessage(err))
		status = models.CallStatusFailed
		p.logger.Warn().
			Str("action", action).
			Int("service_id", params.ServiceID).
			Int("server_id", params.ServerID).
			Str("error", result.Message).
			Msg("lifecycle operation failed")
	}

	if p.lifecycle != nil {
		p.lifecycle.ObserveLifecycle(action, result.OK)
	}
	if p.callLog != nil {
		if logErr := p.callLog.LogAction(ctx, params.ServiceID, params.ServerID, action, status, result.Message, paramsMap(params)); logErr != nil {
			p.logger.Error().Err(logErr).Str("action", action).Msg("failed to write call log")
		}
	}
	return result
}

// paramsMap flattens the param bag for the call log, which masks credentials
func paramsMap(params models.Params) map[string]interface{} {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
