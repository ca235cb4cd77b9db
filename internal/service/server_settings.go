package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/repository"
)

// SaveServerSettings persists a server add/edit event: the hostname, the
// API overrides and the subscription link settings
func (p *Provisioner) SaveServerSettings(ctx context.Context, s models.ServerSettings) error {
	if s.ServerID <= 0 {
		return &ValidationError{Message: MsgInvalidServerID}
	}

	if hostname := strings.TrimSpace(s.Hostname); hostname != "" {
		if err := p.servers.SetHostname(ctx, s.ServerID, hostname); err != nil {
			return err
		}
	}
	if err := p.servers.SetPortAndBasePath(ctx, s.ServerID, s.Port, s.BasePath); err != nil {
		return err
	}
	if err := p.servers.SetSubscriptionSettings(ctx, s.ServerID, s.SubDomain, s.SubPort, s.SubURIPath); err != nil {
		return err
	}

	log.Info().
		Str("component", "server_settings").
		Int("server_id", s.ServerID).
		Bool("port_override", s.Port != nil && *s.Port > 0).
		Bool("sub_domain", strings.TrimSpace(s.SubDomain) != "").
		Msg("server settings saved")
	return nil
}

// GetServerSettings returns the stored values for the server form. An
// unknown server yields empty settings.
func (p *Provisioner) GetServerSettings(ctx context.Context, serverID int) (models.ServerSettings, error) {
	out := models.ServerSettings{ServerID: serverID}
	row, err := p.servers.Get(ctx, serverID)
	if errors.Is(err, repository.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, err
	}

	out.Hostname = deref(row.Hostname)
	out.Port = row.Port
	out.BasePath = deref(row.BasePath)
	out.SubDomain = deref(row.SubDomain)
	out.SubPort = row.SubPort
	out.SubURIPath = deref(row.SubURIPath)
	return out, nil
}

// ListSquads loads the internal squads of a server for the product page.
// The caller supplies the server's credentials.
func (p *Provisioner) ListSquads(ctx context.Context, params models.Params) models.SquadListResponse {
	if params.ServerID <= 0 {
		return models.SquadListResponse{Success: false, Error: MsgInvalidServerID}
	}
	if strings.TrimSpace(params.ServerHostname) == "" {
		row, err := p.servers.Get(ctx, params.ServerID)
		if err == nil && row.Hostname != nil {
			params.ServerHostname = *row.Hostname
		}
	}

	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		return models.SquadListResponse{Success: false, Error: errorMessage(err)}
	}
	api := p.panel(conn)
	if err := api.ValidateCredentials(ctx); err != nil {
		return models.SquadListResponse{Success: false, Error: errorMessage(err)}
	}
	squads, err := api.ListGroups(ctx)
	if err != nil {
		return models.SquadListResponse{Success: false, Error: errorMessage(err)}
	}

	out := make([]models.SquadOption, 0, len(squads))
	for _, s := range squads {
		out = append(out, models.SquadOption{ID: s.ID, Name: s.Name, Remark: s.Remark})
	}
	return models.SquadListResponse{Success: true, Squads: out}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
