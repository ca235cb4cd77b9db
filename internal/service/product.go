package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

// Defaults for blank or invalid product fields. An explicit 0 keeps its
// meaning.
const (
	DefaultTrafficGB  = 50
	DefaultExpiryDays = 30
	DefaultIPLimit    = 2

	bytesPerGB = int64(1024 * 1024 * 1024)
)

// Order-time configurable options that may carry the traffic cap
var trafficOptionNames = []string{"Traffic cap (GB)", "Traffic (GB)"}

// ParseProductConfig reads the product setup from the numbered option slots
func ParseProductConfig(params models.Params) models.ProductConfig {
	traffic := strings.TrimSpace(params.ConfigOption3)
	if traffic == "" {
		for _, name := range trafficOptionNames {
			if v := strings.TrimSpace(params.ConfigOptions[name]); v != "" {
				traffic = v
				break
			}
		}
	}

	flag := strings.TrimSpace(params.ConfigOption7)
	if flag == "" {
		flag = strings.TrimSpace(params.ConfigOption8)
	}

	return models.ProductConfig{
		ServerForList:            intOr(params.ConfigOption1, 0),
		SquadID:                  strings.TrimSpace(params.ConfigOption2),
		TrafficGB:                intOr(traffic, DefaultTrafficGB),
		ExpiryDays:               intOr(params.ConfigOption4, DefaultExpiryDays),
		IPLimit:                  intOr(params.ConfigOption5, DefaultIPLimit),
		CommentFormat:            params.ConfigOption6,
		StartExpiryAfterFirstUse: truthy(flag),
	}
}

// intOr parses the leading non-negative integer of s. Blank, negative and
// unparseable values give def.
func intOr(s string, def int) int {
	m := leadingDigits.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return def
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return def
	}
	return v
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes", "true", "1":
		return true
	}
	return false
}

// DataLimitBytes converts a GB cap to bytes; 0 means unlimited
func DataLimitBytes(gb int) int64 {
	if gb <= 0 {
		return 0
	}
	return int64(gb) * bytesPerGB
}

// ExpireAtMillis is the expiry timestamp for a new period, 0 for none
func ExpireAtMillis(days int, startAfterFirstUse bool, now time.Time) int64 {
	if startAfterFirstUse || days <= 0 {
		return 0
	}
	return (now.Unix() + int64(days)*86400) * 1000
}

// ClientEmail is the remote identity of a service. The fallback address
// format is shared with users already created on existing panels.
func ClientEmail(params models.Params) string {
	if email := strings.TrimSpace(params.Client.Email); email != "" {
		return email
	}
	return fmt.Sprintf("whmcs_%d@client.local", params.ServiceID)
}

// ClientComment expands the comment format placeholders
func ClientComment(params models.Params, format string) string {
	clientID := ""
	if params.ClientID > 0 {
		clientID = strconv.Itoa(params.ClientID)
	}
	email := strings.TrimSpace(params.Client.Email)
	r := strings.NewReplacer(
		"{service_id}", strconv.Itoa(params.ServiceID),
		"{client_id}", clientID,
		"${email}", email,
		"{email}", email,
	)
	return strings.TrimSpace(r.Replace(format))
}
