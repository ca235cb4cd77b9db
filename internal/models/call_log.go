package models

import "time"

// Call log status constants
const (
	CallStatusSuccess = "success"
	CallStatusFailed  = "failed"
)

// ModuleCallLog records a lifecycle operation for later admin inspection
type ModuleCallLog struct {
	ID        string                 `gorm:"column:id;primaryKey;size:36" json:"id"`
	ServiceID int                    `gorm:"column:service_id;index" json:"service_id"`
	ServerID  int                    `gorm:"column:server_id" json:"server_id"`
	Action    string                 `gorm:"column:action;size:64;not null" json:"action"`
	Status    string                 `gorm:"column:status;size:16;not null" json:"status"`
	Message   string                 `gorm:"column:message;type:text" json:"message"`
	Request   map[string]interface{} `gorm:"column:request;serializer:json" json:"request,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;index" json:"created_at"`
}

func (ModuleCallLog) TableName() string { return "mod_remnawave_call_log" }
