package service

import (
	"context"
	"strconv"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

const (
	DisplayName = "Remnawave (V2Ray/Xray)"
	APIVersion  = "1.2"
)

func (p *Provisioner) MetaData() models.MetaData {
	return models.MetaData{
		DisplayName:   DisplayName,
		APIVersion:    APIVersion,
		RequireServer: true,
	}
}

// ConfigOptions lists the product fields in slot order. The first slot
// offers the known servers for loading squads.
func (p *Provisioner) ConfigOptions(ctx context.Context) []models.ConfigOption {
	servers := map[string]string{"0": "-- Select server to load squads --"}
	rows, err := p.servers.List(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to list servers for config options")
	}
	for _, row := range rows {
		label := "Server #" + strconv.Itoa(row.ServerID)
		if row.Hostname != nil && *row.Hostname != "" {
			label = *row.Hostname
		}
		servers[strconv.Itoa(row.ServerID)] = label
	}

	return []models.ConfigOption{
		{
			Name:         "Server for Squad List",
			FriendlyName: "Server for Squad List",
			Type:         "dropdown",
			Options:      servers,
			Description:  "Select a Remnawave server to load internal squads. Then choose a squad.",
		},
		{
			Name:         "Internal Squad ID",
			FriendlyName: "Internal Squad ID",
			Type:         "text",
			Size:         "40",
			Description:  "Remnawave Internal Squad UUID. Pick one from the squad list or paste the UUID.",
		},
		{
			Name:         "Traffic (GB)",
			FriendlyName: "Traffic cap (GB)",
			Type:         "text",
			Size:         "10",
			Default:      strconv.Itoa(DefaultTrafficGB),
			Description:  "0 = unlimited.",
		},
		{
			Name:         "Expiry (days)",
			FriendlyName: "Expiry (days)",
			Type:         "text",
			Size:         "10",
			Default:      strconv.Itoa(DefaultExpiryDays),
			Description:  "Validity in days. 0 = no expiry.",
		},
		{
			Name:         "IP limit",
			FriendlyName: "IP limit",
			Type:         "text",
			Size:         "5",
			Default:      strconv.Itoa(DefaultIPLimit),
		},
		{
			Name:         "Client Comment format",
			FriendlyName: "Client Comment format",
			Type:         "text",
			Size:         "80",
			Description:  "Placeholders: {service_id}, {client_id}, {email}. Stored as user note/comment.",
		},
		{
			Name:         "Start expiry after first use",
			FriendlyName: "Start expiry after first use",
			Type:         "yesno",
			Description:  "If Yes, user is created with no expiry (0). Set duration later when they first use.",
		},
	}
}

func (p *Provisioner) AdminCustomButtons() []models.CustomButton {
	return []models.CustomButton{
		{Label: "Sync status", Operation: "SyncStatus"},
		{Label: "Reset Traffic", Operation: "ResetTraffic"},
		{Label: "Reset IP", Operation: "ClearIps"},
	}
}
