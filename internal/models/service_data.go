package models

import "time"

// ServiceData links a billing service to its remote panel user. A row exists
// only while the remote account exists.
type ServiceData struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ServiceID   int       `gorm:"column:service_id;uniqueIndex;not null"`
	SquadID     *string   `gorm:"column:squad_id;size:64"`
	UserUUID    string    `gorm:"column:user_uuid;size:64;not null"`
	ClientEmail string    `gorm:"column:client_email;size:255;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (ServiceData) TableName() string { return "mod_remnawave_service_data" }
