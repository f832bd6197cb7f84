package models

import "time"

// Audit actions.
const (
	ActionTemplateGenerated = "TEMPLATE_GENERATED"
	ActionProofGenerated    = "PROOF_GENERATED"
	ActionProductRegistered = "PRODUCT_REGISTERED"
)

// AuditEntry is an append-only history record. Timestamp is assigned by the store.
type AuditEntry struct {
	ID        string    `json:"id,omitempty" mapstructure:"id" gorm:"primaryKey;type:varchar(36)"`
	Action    string    `json:"action" mapstructure:"action" gorm:"type:varchar(40)"`
	Subject   string    `json:"subject" mapstructure:"subject" gorm:"type:varchar(255)"`
	User      string    `json:"user,omitempty" mapstructure:"user" gorm:"type:varchar(36)"`
	Timestamp time.Time `json:"-" mapstructure:"-" gorm:"autoCreateTime"`
}

// Asset is an uploaded artwork file stored verbatim.
type Asset struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Filename    string `gorm:"type:varchar(255)"`
	ContentType string `gorm:"type:varchar(100)"`
	Data        []byte
	CreatedAt   time.Time
}
