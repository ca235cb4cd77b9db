package service

import (
	"bytes"
	"context"
	"html/template"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/client"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

const (
	StatusUnlimited = "Unlimited"
	StatusInactive  = "Inactive"
	StatusActive    = "Active"

	clientAreaTemplate = "clientarea.tpl"
	defaultSubPath     = "/sub/"
	lastOnlineLayout   = "2006-01-02 15:04"
	qrEndpoint         = "https://api.qrserver.com/v1/create-qr-code/?size=120x120&data="
)

var (
	subPathSuffix = regexp.MustCompile(`/sub/?$`)
	apiPathSuffix = regexp.MustCompile(`/api/?$`)
)

var linksFragment = template.Must(template.New("links").Parse(
	`<div class="panel panel-default" style="margin-top:8px"><div class="panel-body">` +
		`<p><strong>User UUID:</strong> <code>{{.UserUUID}}</code></p>` +
		`<p><strong>Subscription URL:</strong><br><input type="text" class="form-control input-sm" value="{{.SubscriptionURL}}" readonly style="max-width:100%"></p>` +
		`<p><img src="{{.SubscriptionQR}}" alt="Sub QR" width="120" height="120"></p>` +
		`<p><strong>Subscription JSON URL:</strong><br><input type="text" class="form-control input-sm" value="{{.SubscriptionJSONURL}}" readonly style="max-width:100%"></p>` +
		`<p><img src="{{.SubscriptionJSONQR}}" alt="Sub JSON QR" width="120" height="120"></p>` +
		`</div></div>`))

// SubscriptionURLs builds the customer-facing subscription links. A
// configured subscription domain wins; otherwise the links hang off the
// panel origin with the /api segment removed.
func SubscriptionURLs(apiBaseURL string, subDomain *string, subPort *int, subURIPath *string, userUUID string) (subURL, jsonURL string) {
	if subDomain != nil && strings.TrimSpace(*subDomain) != "" {
		path := defaultSubPath
		if subURIPath != nil && strings.TrimSpace(*subURIPath) != "" {
			path = strings.TrimRight(strings.TrimSpace(*subURIPath), "/") + "/"
		}
		port := 443
		if subPort != nil && *subPort > 0 {
			port = *subPort
		}
		base := "https://" + strings.TrimSpace(*subDomain) + ":" + strconv.Itoa(port)
		return base + path + userUUID, base + subPathSuffix.ReplaceAllString(path, "/json/") + userUUID
	}

	panelURL := strings.TrimRight(strings.TrimSpace(apiBaseURL), "/")
	if !strings.HasPrefix(panelURL, "http") {
		panelURL = "https://" + panelURL
	}
	base := apiPathSuffix.ReplaceAllString(panelURL, "")
	return base + "/sub/" + userUUID, base + "/json/" + userUUID
}

// TrafficPercent is used/total in percent with one decimal, capped at 100
func TrafficPercent(used, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := math.Round(float64(used)/float64(total)*1000) / 10
	return math.Min(100, math.Max(0, pct))
}

// TrafficStatus labels a user by its data limit
func TrafficStatus(used, total int64) string {
	switch {
	case total == 0:
		return StatusUnlimited
	case used >= total:
		return StatusInactive
	default:
		return StatusActive
	}
}

func toGB(b int64) float64 {
	return math.Round(float64(b)/float64(bytesPerGB)*100) / 100
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(lastOnlineLayout)
}

// SubscriptionInfo reads the remote user and derives the display values
func (p *Provisioner) SubscriptionInfo(ctx context.Context, conn *Connection, data *models.ServiceData) (*models.SubscriptionInfo, error) {
	api := p.panel(conn)

	traffic, err := api.GetTraffic(ctx, data.UserUUID)
	if err != nil {
		return nil, err
	}
	lastOnline, err := api.LastOnlineMap(ctx)
	if err != nil {
		return nil, err
	}
	online, err := api.ListOnline(ctx)
	if err != nil {
		return nil, err
	}
	user, err := api.GetUser(ctx, data.UserUUID)
	if err != nil {
		return nil, err
	}

	used := traffic.Used()
	info := &models.SubscriptionInfo{
		SubID:          data.UserUUID,
		ClientEmail:    data.ClientEmail,
		Status:         TrafficStatus(used, traffic.Total),
		DownGB:         toGB(traffic.Down),
		UpGB:           toGB(traffic.Up),
		TrafficUsedGB:  toGB(used),
		TrafficPercent: TrafficPercent(used, traffic.Total),
		LastOnline:     formatMillis(lastSeen(lastOnline, data)),
		OnlineNow:      isOnline(online, data),
		Expiry:         formatMillis(user.ExpireAtMillis),
		ServiceURIs:    []string{},
	}
	if traffic.Total > 0 {
		info.TrafficTotalGB = toGB(traffic.Total)
		remained := math.Max(0, toGB(traffic.Total-used))
		info.RemainedGB = &remained
	}

	subURL, jsonURL, err := p.subscriptionURLs(ctx, conn, data.UserUUID)
	if err != nil {
		return nil, err
	}
	info.SubscriptionURL = firstNonEmpty(user.SubscriptionURL, subURL)
	info.SubscriptionJSONURL = firstNonEmpty(user.SubscriptionJSONURL, jsonURL)
	return info, nil
}

func (p *Provisioner) subscriptionURLs(ctx context.Context, conn *Connection, userUUID string) (string, string, error) {
	var (
		domain, path *string
		port         *int
		err          error
	)
	if conn.ServerID > 0 {
		if domain, err = p.servers.GetSubDomain(ctx, conn.ServerID); err != nil {
			return "", "", err
		}
		if domain != nil {
			if port, err = p.servers.GetSubPort(ctx, conn.ServerID); err != nil {
				return "", "", err
			}
			if path, err = p.servers.GetSubURIPath(ctx, conn.ServerID); err != nil {
				return "", "", err
			}
		}
	}
	sub, js := SubscriptionURLs(client.NormalizeBaseURL(conn.BaseURL), domain, port, path, userUUID)
	return sub, js, nil
}

func lastSeen(m map[string]int64, data *models.ServiceData) int64 {
	if ts, ok := m[data.ClientEmail]; ok {
		return ts
	}
	return m[data.UserUUID]
}

func isOnline(online []client.OnlineUser, data *models.ServiceData) bool {
	for _, o := range online {
		if (o.UUID != "" && o.UUID == data.UserUUID) || (o.Email != "" && o.Email == data.ClientEmail) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ==================== Displays ====================

// AdminServicesTabFields renders the admin service page rows. Failures
// degrade to a placeholder row.
func (p *Provisioner) AdminServicesTabFields(ctx context.Context, params models.Params) models.Fields {
	data, err := p.services.Get(ctx, params.ServiceID)
	if err != nil {
		return models.Fields{{Label: "Remnawave Error", Value: errorMessage(err)}}
	}
	if data == nil {
		return models.Fields{
			{Label: "Remnawave Status", Value: MsgNotProvisioned},
			{Label: "Traffic", Value: "-"},
			{Label: "Last online", Value: "-"},
		}
	}

	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		return models.Fields{{Label: "Remnawave Error", Value: errorMessage(err)}}
	}
	info, err := p.SubscriptionInfo(ctx, conn, data)
	if err != nil {
		p.logger.Warn().Err(err).Int("service_id", params.ServiceID).Msg("failed to load subscription data")
		return models.Fields{{Label: "Remnawave Status", Value: MsgLoadFailed}}
	}

	total := "∞"
	if info.TrafficTotalGB > 0 {
		total = formatGB(info.TrafficTotalGB) + " GB"
	}
	onlineNow := "No"
	if info.OnlineNow {
		onlineNow = "Yes"
	}

	links, err := renderLinks(data.UserUUID, info.SubscriptionURL, info.SubscriptionJSONURL)
	if err != nil {
		return models.Fields{{Label: "Remnawave Error", Value: err.Error()}}
	}

	return models.Fields{
		{Label: "Client email", Value: template.HTMLEscapeString(info.ClientEmail)},
		{Label: "Traffic", Value: formatGB(info.TrafficUsedGB) + " GB / " + total},
		{Label: "Last online", Value: info.LastOnline},
		{Label: "Online now", Value: onlineNow},
		{Label: "Status", Value: info.Status},
		{Label: "Subscription &amp; links", Value: links},
	}
}

func formatGB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func renderLinks(userUUID, subURL, jsonURL string) (string, error) {
	var buf bytes.Buffer
	err := linksFragment.Execute(&buf, map[string]string{
		"UserUUID":            userUUID,
		"SubscriptionURL":     subURL,
		"SubscriptionQR":      qrEndpoint + url.QueryEscape(subURL),
		"SubscriptionJSONURL": jsonURL,
		"SubscriptionJSONQR":  qrEndpoint + url.QueryEscape(jsonURL),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ClientArea returns the customer overview template and its variables
func (p *Provisioner) ClientArea(ctx context.Context, params models.Params) models.ClientArea {
	vars := models.ClientAreaVars{
		ServiceURIs: []string{},
		ConfigLinks: []string{},
		Expiry:      "-",
	}
	area := func() models.ClientArea {
		return models.ClientArea{TemplateFile: clientAreaTemplate, TemplateVariables: vars}
	}

	data, err := p.services.Get(ctx, params.ServiceID)
	if err != nil {
		p.logger.Warn().Err(err).Int("service_id", params.ServiceID).Msg("failed to load service data")
		vars.Error = MsgLoadFailed
		return area()
	}
	if data == nil {
		vars.Error = MsgClientNotReady
		return area()
	}

	conn, err := p.ResolveConnection(ctx, params)
	if err != nil {
		vars.Error = MsgLoadFailed
		return area()
	}
	info, err := p.SubscriptionInfo(ctx, conn, data)
	if err != nil {
		p.logger.Warn().Err(err).Int("service_id", params.ServiceID).Msg("failed to load subscription data")
		vars.Error = MsgLoadFailed
		return area()
	}

	vars.ClientEmail = info.ClientEmail
	vars.TrafficUsedGB = info.TrafficUsedGB
	vars.TrafficTotalGB = info.TrafficTotalGB
	vars.TrafficPercent = info.TrafficPercent
	vars.LastOnline = info.LastOnline
	vars.OnlineNow = info.OnlineNow
	vars.SubscriptionURL = info.SubscriptionURL
	vars.SubscriptionJSONURL = info.SubscriptionJSONURL
	vars.ServiceURIs = info.ServiceURIs
	vars.ConfigLinks = append([]string{info.SubscriptionURL}, info.ServiceURIs...)
	vars.SubID = info.SubID
	vars.Status = info.Status
	vars.RemainedGB = info.RemainedGB
	vars.Expiry = info.Expiry
	return area()
}
