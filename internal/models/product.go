package models

import "time"

// Product is a catalog entry describing the printable area of a promotional item.
// Width and Height are in centimeters.
type Product struct {
	ID           string    `json:"id" mapstructure:"id" gorm:"primaryKey;type:varchar(36)"`
	Status       string    `json:"status" mapstructure:"status" gorm:"type:varchar(20);index"`
	Name         string    `json:"name" mapstructure:"name" gorm:"type:varchar(100)"`
	SKU          string    `json:"sku" mapstructure:"sku" gorm:"type:varchar(64);index"`
	Width        float64   `json:"width" mapstructure:"width"`
	Height       float64   `json:"height" mapstructure:"height"`
	TemplateKind string    `json:"template_kind" mapstructure:"template_kind" gorm:"type:varchar(20)"`
	CreatedAt    time.Time `json:"date_created" mapstructure:"-"`
}

const (
	ProductStatusPublished = "published"
	TemplateKindRectangle  = "rectangular"
)

// ProductRegistration is the request body for registering a product.
// Dimensions are capped at the largest printable page side (508 cm).
type ProductRegistration struct {
	Name   string  `json:"name" validate:"required,min=1,max=100"`
	SKU    string  `json:"sku" validate:"omitempty,max=64"`
	Width  float64 `json:"width" validate:"finite,gt=0,lte=508"`
	Height float64 `json:"height" validate:"finite,gt=0,lte=508"`
}
