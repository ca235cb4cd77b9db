package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 30 * time.Second
	MinTimeout     = 5 * time.Second

	apiSuffix = "/api"

	squadsPath = "internal-squads"
	usersPath  = "users"
)

// Recorder observes every panel request. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	ObservePanelRequest(operation string, statusCode int, duration time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) ObservePanelRequest(string, int, time.Duration, error) {}

// Options describe one panel connection
type Options struct {
	BaseURL   string
	Token     string
	VerifyTLS bool
	Timeout   time.Duration
	Recorder  Recorder
}

// RemnawaveClient calls the Remnawave panel API with a bearer token
type RemnawaveClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	recorder   Recorder
	logger     zerolog.Logger
}

// NewRemnawaveClient creates a client. The base URL is normalized to carry a
// scheme and end with /api; timeouts under MinTimeout fall back to DefaultTimeout.
func NewRemnawaveClient(opts Options) *RemnawaveClient {
	timeout := opts.Timeout
	if timeout < MinTimeout {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // per-server opt-out
	}

	recorder := opts.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}

	return &RemnawaveClient{
		baseURL: NormalizeBaseURL(opts.BaseURL),
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		recorder: recorder,
		logger:   log.With().Str("component", "remnawave_client").Logger(),
	}
}

// NormalizeBaseURL adds https:// when no scheme is given and makes the URL
// end with the /api segment
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.HasPrefix(base, "http") {
		base = "https://" + base
	}
	if !strings.HasSuffix(base, apiSuffix) {
		base += apiSuffix
	}
	return base
}

// BaseURL returns the normalized API base URL
func (c *RemnawaveClient) BaseURL() string { return c.baseURL }

// ==================== Records ====================

// Squad is an internal squad (the panel's user group)
type Squad struct {
	ID     string
	Name   string
	Remark string
}

// User is the subset of a remote user the module reads
type User struct {
	UUID                string
	Email               string
	Username            string
	Enabled             *bool
	ExpireAtMillis      int64
	SubscriptionURL     string
	SubscriptionJSONURL string
	Raw                 map[string]interface{}
}

// Traffic counters in bytes; Total is the data limit
type Traffic struct {
	Up    int64
	Down  int64
	Total int64
}

func (t Traffic) Used() int64 { return t.Up + t.Down }

// OnlineUser is an entry of the online list
type OnlineUser struct {
	UUID  string
	Email string
}

func squadFrom(m map[string]interface{}) Squad {
	id := stringOf(m, "id", "uuid")
	name := stringOf(m, "name", "remark", "title")
	if name == "" {
		name = "Squad #" + id
	}
	remark := stringOf(m, "remark")
	if remark == "" {
		remark = name
	}
	return Squad{ID: id, Name: name, Remark: remark}
}

func userFrom(m map[string]interface{}) *User {
	return &User{
		UUID:                stringOf(m, "uuid", "id", "userId"),
		Email:               stringOf(m, "email"),
		Username:            stringOf(m, "username"),
		Enabled:             boolOf(m, "enabled"),
		ExpireAtMillis:      millisOf(m, "expireAt", "expire_at"),
		SubscriptionURL:     stringOf(m, "subscriptionUrl", "subscription_url"),
		SubscriptionJSONURL: stringOf(m, "subscriptionJsonUrl"),
		Raw:                 m,
	}
}

// ==================== Squads ====================

// ValidateCredentials checks the token against the squad list. An explicit
// "success": false in the body counts as an authentication failure.
func (c *RemnawaveClient) ValidateCredentials(ctx context.Context) error {
	data, err := c.do(ctx, "validate_credentials", http.MethodGet, squadsPath, nil)
	if err != nil {
		return err
	}
	if ok, present := data["success"].(bool); present && !ok {
		msg := stringOf(data, "message")
		if msg == "" {
			msg = "Authentication failed"
		}
		return &APIError{Operation: "validate_credentials", StatusCode: http.StatusOK, Message: msg}
	}
	return nil
}

// ListGroups lists internal squads
func (c *RemnawaveClient) ListGroups(ctx context.Context) ([]Squad, error) {
	data, err := c.do(ctx, "list_groups", http.MethodGet, squadsPath, nil)
	if err != nil {
		return nil, err
	}
	items := extractList(data, "internalSquads", "data", "items", "squads", "obj")
	squads := make([]Squad, 0, len(items))
	for _, item := range items {
		squads = append(squads, squadFrom(item))
	}
	return squads, nil
}

// GetGroup gets one internal squad by uuid
func (c *RemnawaveClient) GetGroup(ctx context.Context, id string) (*Squad, error) {
	data, err := c.do(ctx, "get_group", http.MethodGet, squadsPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	squad := squadFrom(extractObject(data, "data", "obj"))
	return &squad, nil
}

// ==================== Users ====================

// CreateUser creates a remote user. Field names of the payload are the caller's responsibility.
func (c *RemnawaveClient) CreateUser(ctx context.Context, payload map[string]interface{}) (*User, error) {
	c.logger.Info().Msg("creating panel user")

	data, err := c.do(ctx, "create_user", http.MethodPost, usersPath, payload)
	if err != nil {
		return nil, err
	}
	user := userFrom(extractObject(data, "data", "user", "obj"))

	c.logger.Info().Str("user_uuid", user.UUID).Msg("panel user created")
	return user, nil
}

// GetUser gets a user by uuid or email
func (c *RemnawaveClient) GetUser(ctx context.Context, uuidOrEmail string) (*User, error) {
	data, err := c.do(ctx, "get_user", http.MethodGet, usersPath+"/"+url.PathEscape(uuidOrEmail), nil)
	if err != nil {
		return nil, err
	}
	return userFrom(extractObject(data, "data", "user", "obj")), nil
}

// ListUsers lists users, optionally filtered by email
func (c *RemnawaveClient) ListUsers(ctx context.Context, email string) ([]*User, error) {
	path := usersPath
	if email != "" {
		path += "?email=" + url.QueryEscape(email)
	}
	data, err := c.do(ctx, "list_users", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	items := extractList(data, "data", "users", "items", "obj")
	users := make([]*User, 0, len(items))
	for _, item := range items {
		users = append(users, userFrom(item))
	}
	return users, nil
}

// UpdateUser patches a user (enable/disable, traffic, expiry)
func (c *RemnawaveClient) UpdateUser(ctx context.Context, uuid string, payload map[string]interface{}) error {
	c.logger.Info().Str("user_uuid", uuid).Msg("updating panel user")
	_, err := c.do(ctx, "update_user", http.MethodPatch, usersPath+"/"+url.PathEscape(uuid), payload)
	return err
}

// DeleteUser deletes a user by uuid
func (c *RemnawaveClient) DeleteUser(ctx context.Context, uuid string) error {
	c.logger.Info().Str("user_uuid", uuid).Msg("deleting panel user")
	_, err := c.do(ctx, "delete_user", http.MethodDelete, usersPath+"/"+url.PathEscape(uuid), nil)
	return err
}

// GetTraffic gets bandwidth counters. Unexpected shapes read as zero.
func (c *RemnawaveClient) GetTraffic(ctx context.Context, uuidOrEmail string) (*Traffic, error) {
	data, err := c.do(ctx, "get_traffic", http.MethodGet, usersPath+"/"+url.PathEscape(uuidOrEmail)+"/bandwidth", nil)
	if err != nil {
		return nil, err
	}
	obj := extractObject(data, "bandwidth", "data", "obj")
	return &Traffic{
		Up:    int64Of(obj, "up", "upload"),
		Down:  int64Of(obj, "down", "download"),
		Total: int64Of(obj, "total", "dataLimitBytes"),
	}, nil
}

// ResetTraffic zeroes a user's traffic counters
func (c *RemnawaveClient) ResetTraffic(ctx context.Context, uuid string) error {
	c.logger.Info().Str("user_uuid", uuid).Msg("resetting panel user traffic")
	_, err := c.do(ctx, "reset_traffic", http.MethodPost,
		usersPath+"/"+url.PathEscape(uuid)+"/actions/reset-traffic", map[string]interface{}{})
	return err
}

// ListOnline lists currently connected users
func (c *RemnawaveClient) ListOnline(ctx context.Context) ([]OnlineUser, error) {
	data, err := c.do(ctx, "list_online", http.MethodGet, usersPath+"/onlines", nil)
	if err != nil {
		return nil, err
	}
	items := extractList(data, "data", "obj", "users")
	online := make([]OnlineUser, 0, len(items))
	for _, item := range items {
		online = append(online, OnlineUser{
			UUID:  stringOf(item, "uuid", "id"),
			Email: stringOf(item, "email"),
		})
	}
	return online, nil
}

// LastOnlineMap maps user identifier (uuid or email) to last-seen epoch millis
func (c *RemnawaveClient) LastOnlineMap(ctx context.Context) (map[string]int64, error) {
	data, err := c.do(ctx, "last_online", http.MethodGet, usersPath+"/last-online", nil)
	if err != nil {
		return nil, err
	}
	obj := extract(unwrapResponse(data, []string{"data", "obj"}), []string{"data", "obj"}, map[string]interface{}{})
	out := make(map[string]int64, len(obj))
	for key, v := range obj {
		out[key] = toInt64(v)
	}
	return out, nil
}

// ClearClientAccessState revokes a user's credentials so active sessions drop
func (c *RemnawaveClient) ClearClientAccessState(ctx context.Context, uuidOrEmail string) error {
	c.logger.Info().Str("user", uuidOrEmail).Msg("revoking panel user access")
	_, err := c.do(ctx, "clear_access_state", http.MethodPost,
		usersPath+"/"+url.PathEscape(uuidOrEmail)+"/actions/revoke",
		map[string]interface{}{"revokeOnlyPasswords": false})
	return err
}

// ==================== Transport ====================

func (c *RemnawaveClient) do(ctx context.Context, operation, method, path string, body interface{}) (map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := &TransportError{Operation: operation, Err: err}
		c.recorder.ObservePanelRequest(operation, 0, time.Since(start), terr)
		c.logger.Warn().Err(err).Str("operation", operation).Msg("panel request failed")
		return nil, terr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		terr := &TransportError{Operation: operation, Err: fmt.Errorf("read response: %w", err)}
		c.recorder.ObservePanelRequest(operation, resp.StatusCode, time.Since(start), terr)
		return nil, terr
	}

	data := decodeBody(raw)
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, raw, resp.StatusCode),
		}
		c.recorder.ObservePanelRequest(operation, resp.StatusCode, time.Since(start), apiErr)
		c.logger.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("error", apiErr.Message).
			Msg("panel returned error")
		return nil, apiErr
	}

	c.recorder.ObservePanelRequest(operation, resp.StatusCode, time.Since(start), nil)
	c.logger.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("panel request completed")
	return data, nil
}

func errorMessage(data map[string]interface{}, raw []byte, status int) string {
	if msg := stringOf(data, "message", "error"); msg != "" {
		return msg
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return fmt.Sprintf("panel returned HTTP %d", status)
}
