package models

import (
	"bytes"
	"encoding/json"
)

// SuccessSentinel is the literal the billing host expects from a successful mutation
const SuccessSentinel = "success"

// ==================== Callback results ====================

// Result is returned by mutating callbacks: OK with the success sentinel,
// or not OK with a human-readable message
type Result struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
}

func Success() Result { return Result{OK: true, Message: SuccessSentinel} }

func Failure(message string) Result { return Result{OK: false, Message: message} }

// String renders the host's string contract: "success" or the error text
func (r Result) String() string { return r.Message }

// TestConnectionResult is returned by the connection test callback
type TestConnectionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Field is one label/value pair of an admin display
type Field struct {
	Label string
	Value string
}

// Fields keeps insertion order and marshals to a JSON object in that order
type Fields []Field

func (f Fields) Get(label string) (string, bool) {
	for _, field := range f {
		if field.Label == label {
			return field.Value, true
		}
	}
	return "", false
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ==================== Status rendering ====================

// SubscriptionInfo is the derived view of a provisioned remote user
type SubscriptionInfo struct {
	SubID               string   `json:"sub_id"`
	ClientEmail         string   `json:"client_email"`
	Status              string   `json:"status"`
	DownGB              float64  `json:"down_gb"`
	UpGB                float64  `json:"up_gb"`
	TrafficUsedGB       float64  `json:"traffic_used_gb"`
	TrafficTotalGB      float64  `json:"traffic_total_gb"`
	TrafficPercent      float64  `json:"traffic_percent"`
	RemainedGB          *float64 `json:"remained_gb"`
	LastOnline          string   `json:"last_online"`
	OnlineNow           bool     `json:"online_now"`
	Expiry              string   `json:"expiry"`
	SubscriptionURL     string   `json:"subscription_url"`
	SubscriptionJSONURL string   `json:"subscription_json_url"`
	ServiceURIs         []string `json:"service_uris"`
}

// ClientArea is the customer-facing overview replacement
type ClientArea struct {
	TemplateFile      string         `json:"tabOverviewReplacementTemplate"`
	TemplateVariables ClientAreaVars `json:"templateVariables"`
}

type ClientAreaVars struct {
	ClientEmail         string   `json:"client_email"`
	TrafficUsedGB       float64  `json:"traffic_used_gb"`
	TrafficTotalGB      float64  `json:"traffic_total_gb"`
	TrafficPercent      float64  `json:"traffic_percent"`
	LastOnline          string   `json:"last_online"`
	OnlineNow           bool     `json:"online_now"`
	SubscriptionURL     string   `json:"subscription_url"`
	SubscriptionJSONURL string   `json:"subscription_json_url"`
	ServiceURIs         []string `json:"service_uris"`
	ConfigLinks         []string `json:"config_links"`
	SubID               string   `json:"sub_id"`
	Status              string   `json:"status"`
	RemainedGB          *float64 `json:"remained_gb"`
	Expiry              string   `json:"expiry"`
	Error               string   `json:"error"`
}

// ==================== Admin DTOs ====================

// SquadOption is one entry of the squad picker on the product page
type SquadOption struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Remark string `json:"remark"`
}

type SquadListResponse struct {
	Success bool          `json:"success"`
	Squads  []SquadOption `json:"squads,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ServerSettings is the payload of a server add/edit event and the
// prefill data of the server form
type ServerSettings struct {
	ServerID   int    `json:"server_id"`
	Hostname   string `json:"hostname"`
	Port       *int   `json:"port"`
	BasePath   string `json:"base_path"`
	SubDomain  string `json:"sub_domain"`
	SubPort    *int   `json:"sub_port"`
	SubURIPath string `json:"sub_uri_path"`
}

// ==================== Module metadata ====================

type MetaData struct {
	DisplayName   string `json:"DisplayName"`
	APIVersion    string `json:"APIVersion"`
	RequireServer bool   `json:"RequireServer"`
}

// ConfigOption describes one product configuration field
type ConfigOption struct {
	Name         string            `json:"name"`
	FriendlyName string            `json:"FriendlyName"`
	Type         string            `json:"Type"`
	Size         string            `json:"Size,omitempty"`
	Default      string            `json:"Default,omitempty"`
	Description  string            `json:"Description,omitempty"`
	Options      map[string]string `json:"Options,omitempty"`
}

// CustomButton maps an admin button label to its callback
type CustomButton struct {
	Label     string `json:"label"`
	Operation string `json:"operation"`
}
