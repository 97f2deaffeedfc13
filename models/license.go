package models

import (
	"time"
)

// LicenseKeyPrefix prefixes every generated license key
const LicenseKeyPrefix = "NORD-"

// License is an issued customer license key
type License struct {
	ID               int64     `json:"id" db:"id"`
	CustomerName     string    `json:"customer_name" db:"customer_name"`
	TechnicalContact string    `json:"technical_contact" db:"technical_contact"`
	TechnicalEmail   string    `json:"technical_email" db:"technical_email"`
	BusinessContact  string    `json:"business_contact" db:"business_contact"`
	BusinessEmail    string    `json:"business_email" db:"business_email"`
	GeneratedKey     string    `json:"generated_key" db:"generated_key"`
	CreatedBy        *int64    `json:"created_by" db:"created_by"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the License model
func (License) TableName() string {
	return "licenses"
}

// CreateLicenseRequest is the payload for issuing a license key
type CreateLicenseRequest struct {
	CustomerName     string `json:"customer_name" validate:"required,max=255"`
	TechnicalContact string `json:"technical_contact" validate:"max=255"`
	TechnicalEmail   string `json:"technical_email" validate:"omitempty,email,max=255"`
	BusinessContact  string `json:"business_contact" validate:"max=255"`
	BusinessEmail    string `json:"business_email" validate:"omitempty,email,max=255"`
}
