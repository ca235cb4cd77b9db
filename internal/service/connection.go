package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/client"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/repository"
)

var (
	// Older installs kept the API port in the access hash as "id,port"
	legacyPortHash = regexp.MustCompile(`^(\d+),(\d+)$`)
	leadingDigits  = regexp.MustCompile(`^\s*(\d+)`)
)

// Connection is the effective panel connection of one callback
type Connection struct {
	ServerID  int
	BaseURL   string
	Token     string
	VerifyTLS bool
	Timeout   time.Duration
}

func (c *Connection) clientOptions(recorder client.Recorder) client.Options {
	return client.Options{
		BaseURL:   c.BaseURL,
		Token:     c.Token,
		VerifyTLS: c.VerifyTLS,
		Timeout:   c.Timeout,
		Recorder:  recorder,
	}
}

// ResolveConnection merges the host-supplied server fields with the stored
// overrides.
//
// When the server id has a stored row, only that row's overrides apply.
// Otherwise the row of a stored server with the same hostname is used. The
// legacy "id,port" access hash is the last port fallback. Without overrides
// the hostname is used as given, https being the default scheme. The
// returned ServerID is always the one the callback carried.
func (p *Provisioner) ResolveConnection(ctx context.Context, params models.Params) (*Connection, error) {
	hostname := strings.TrimSpace(params.ServerHostname)
	if hostname == "" {
		return nil, &ValidationError{Message: MsgHostnameNotSet}
	}

	row, err := p.overridesFor(ctx, params.ServerID, hostname)
	if err != nil {
		return nil, err
	}

	var port *int
	var basePath *string
	if row != nil {
		if row.Port != nil && *row.Port > 0 {
			port = row.Port
		}
		if row.BasePath != nil && strings.TrimSpace(*row.BasePath) != "" {
			basePath = row.BasePath
		}
	}

	if port == nil {
		if m := legacyPortHash.FindStringSubmatch(strings.TrimSpace(params.ServerAccessHash)); m != nil {
			if v, err := strconv.Atoi(m[2]); err == nil && v > 0 {
				port = &v
			}
		}
	}

	baseURL, err := effectiveBaseURL(hostname, port, basePath)
	if err != nil {
		return nil, err
	}

	verify := true
	if params.ServerSecure != nil {
		verify = *params.ServerSecure
	}

	return &Connection{
		ServerID:  params.ServerID,
		BaseURL:   baseURL,
		Token:     params.ServerPassword,
		VerifyTLS: verify,
		Timeout:   p.timeoutFrom(params.ServerAccessHash),
	}, nil
}

// overridesFor returns the override row of the server id, or of the server
// stored with the same hostname when the id has no row. nil when neither
// exists.
func (p *Provisioner) overridesFor(ctx context.Context, serverID int, hostname string) (*models.ServerConfig, error) {
	if serverID > 0 {
		row, err := p.servers.Get(ctx, serverID)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	row, err := p.servers.FindByHostname(ctx, hostname)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return row, err
}

func effectiveBaseURL(hostname string, port *int, basePath *string) (string, error) {
	if !strings.HasPrefix(hostname, "http") {
		hostname = "https://" + hostname
	}
	u, err := url.Parse(hostname)
	if err != nil || u.Hostname() == "" {
		return "", &ValidationError{Message: MsgHostnameNotSet}
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}

	host := u.Host
	if port != nil && *port > 0 {
		host = u.Hostname()
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		host += ":" + strconv.Itoa(*port)
	}
	base := scheme + "://" + host

	if basePath != nil && strings.TrimSpace(*basePath) != "" {
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(strings.TrimSpace(*basePath), "/"), nil
	}
	return base + strings.TrimRight(u.Path, "/"), nil
}

// timeoutFrom reads the leading integer of the access hash as seconds.
// Values under the client minimum fall back to the configured default.
func (p *Provisioner) timeoutFrom(accessHash string) time.Duration {
	m := leadingDigits.FindStringSubmatch(accessHash)
	if m == nil {
		return p.defaultTimeout
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return p.defaultTimeout
	}
	timeout := time.Duration(secs) * time.Second
	if timeout < client.MinTimeout {
		return p.defaultTimeout
	}
	return timeout
}

func (p *Provisioner) panel(conn *Connection) PanelAPI {
	return p.newClient(conn.clientOptions(p.recorder))
}
