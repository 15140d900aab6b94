package model

import (
	"time"
)

// Audit actions
const (
	AuditCreateServer  = "CREATE_SERVER"
	AuditDeleteServer  = "DELETE_SERVER"
	AuditCreateNode    = "CREATE_NODE"
	AuditEditNode      = "EDIT_NODE"
	AuditDeleteNode    = "DELETE_NODE"
	AuditCreateUser    = "CREATE_USER"
	AuditBanUser       = "BAN_USER"
	AuditUnbanUser     = "UNBAN_USER"
	AuditDeleteUser    = "DELETE_USER"
	AuditCreateNestBit = "CREATE_NESTBIT"
	AuditDeleteNestBit = "DELETE_NESTBIT"
	AuditEditTheme     = "EDIT_THEME"
	AuditSetTheme      = "SET_THEME"
)

// AuditEntry records an administrative action
type AuditEntry struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time `gorm:"column:timestamp;index" json:"timestamp"`
	Admin     string    `gorm:"column:admin;type:varchar(128);not null" json:"admin"`
	Action    string    `gorm:"column:action;type:varchar(64);not null;index" json:"action"`
	Details   string    `gorm:"column:details;type:text" json:"details"`
}

// TableName specifies the table name for AuditEntry
func (AuditEntry) TableName() string {
	return "audit_logs"
}
