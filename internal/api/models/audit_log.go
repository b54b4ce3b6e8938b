package models

import "time"

type AuditLog struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    *string   `json:"user_id,omitempty" gorm:"type:uuid;index"`
	Action    string    `json:"action" gorm:"not null;index"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
