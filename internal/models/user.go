package models

// User is the acting operator as known to the item store.
type User struct {
	ID           string `json:"id" mapstructure:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string `json:"email" mapstructure:"email" gorm:"type:varchar(255)"`
	Organization string `json:"organization" mapstructure:"organization" gorm:"type:varchar(36);index"`
}
