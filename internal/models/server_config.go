package models

// ServerConfig holds per-server connection overrides. Rows are created on the
// first write for a server and never removed automatically.
type ServerConfig struct {
	ServerID int `gorm:"column:server_id;primaryKey;autoIncrement:false"`

	// Hostname as last reported by a server add/edit event; used to find the
	// row when a callback arrives without a server id
	Hostname *string `gorm:"column:hostname;size:255;index"`

	// API connection overrides
	Port     *int    `gorm:"column:port"`
	BasePath *string `gorm:"column:base_path;size:255"`

	// Customer-facing subscription link settings
	SubDomain  *string `gorm:"column:sub_domain;size:255"`
	SubPort    *int    `gorm:"column:sub_port"`
	SubURIPath *string `gorm:"column:sub_uri_path;size:255"`
}

func (ServerConfig) TableName() string { return "mod_remnawave_server_config" }
