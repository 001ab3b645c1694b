package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Settings supplies the restaurant profile plus the default service/tax
// percentages used when an order's own stored percentage is absent.
type Settings struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	RestaurantName  string              `bson:"restaurant_name" json:"restaurant_name"`
	Phone           string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Address         string              `bson:"address,omitempty" json:"address,omitempty"`
	Email           string              `bson:"email,omitempty" json:"email,omitempty"`
	Website         string              `bson:"website,omitempty" json:"website,omitempty"`
	Currency        string              `bson:"currency" json:"currency"`
	TaxPercent      float64             `bson:"tax_percent" json:"tax_percent"`
	ServicePercent  float64             `bson:"service_percent" json:"service_percent"`
	FooterText      string              `bson:"footer_text,omitempty" json:"footer_text,omitempty"`
	ShowQR          bool                `bson:"show_qr" json:"show_qr"`
	Language        string              `bson:"language,omitempty" json:"language,omitempty"`
	KassirPrinterID *primitive.ObjectID `bson:"kassir_printer_id,omitempty" json:"kassir_printer_id,omitempty"`
	KassirPrinterIP string              `bson:"kassir_printer_ip,omitempty" json:"kassir_printer_ip,omitempty"`
	AutoPrint       bool                `bson:"auto_print_receipt" json:"auto_print_receipt"`
	IsActive        bool                `bson:"is_active" json:"is_active"`
	CreatedAt       time.Time           `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt       time.Time           `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		RestaurantName: "SORA RESTAURANT",
		Currency:       "UZS",
		TaxPercent:     0,
		ServicePercent: 10,
		FooterText:     "Rahmat! Yana tashrif buyuring!",
		AutoPrint:      true,
		IsActive:       true,
	}
}
