package models

import (
	"time"
)

// Contact is a directory entry. JSON names follow the browser client's field names.
type Contact struct {
	ID                int64     `json:"id" db:"id"`
	FirstName         string    `json:"firstName" db:"firstName"`
	LastName          string    `json:"lastName" db:"lastName"`
	Title             string    `json:"title" db:"title"`
	Function          string    `json:"function" db:"function"`
	CompanyName       string    `json:"companyName" db:"companyName"`
	WorkEmail         string    `json:"workEmail" db:"workEmail"`
	PersonalEmail     string    `json:"personalEmail" db:"personalEmail"`
	PhoneNumber       string    `json:"phoneNumber" db:"phoneNumber"`
	Products          string    `json:"products" db:"products"`
	EscalationContact string    `json:"escalationContact" db:"escalationContact"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Contact model
func (Contact) TableName() string {
	return "contacts"
}

// IsEscalation reports whether the contact is flagged for escalations
func (c *Contact) IsEscalation() bool {
	return c.EscalationContact == "Y"
}

// ContactInput is the payload for creating a contact
type ContactInput struct {
	FirstName         string `json:"firstName" validate:"max=255"`
	LastName          string `json:"lastName" validate:"max=255"`
	Title             string `json:"title" validate:"max=255"`
	Function          string `json:"function" validate:"max=255"`
	CompanyName       string `json:"companyName" validate:"max=255"`
	WorkEmail         string `json:"workEmail" validate:"omitempty,email,max=255"`
	PersonalEmail     string `json:"personalEmail" validate:"omitempty,email,max=255"`
	PhoneNumber       string `json:"phoneNumber" validate:"max=64"`
	Products          string `json:"products" validate:"max=1024"`
	EscalationContact string `json:"escalationContact" validate:"omitempty,oneof=Y N"`
}

// ToContact converts the input into a new Contact, defaulting the escalation flag to N
func (in *ContactInput) ToContact() *Contact {
	escalation := in.EscalationContact
	if escalation == "" {
		escalation = "N"
	}
	now := time.Now().UTC()
	return &Contact{
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Title:             in.Title,
		Function:          in.Function,
		CompanyName:       in.CompanyName,
		WorkEmail:         in.WorkEmail,
		PersonalEmail:     in.PersonalEmail,
		PhoneNumber:       in.PhoneNumber,
		Products:          in.Products,
		EscalationContact: escalation,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ContactPatch is a partial update; nil fields keep their stored values
type ContactPatch struct {
	FirstName         *string `json:"firstName" validate:"omitempty,max=255"`
	LastName          *string `json:"lastName" validate:"omitempty,max=255"`
	Title             *string `json:"title" validate:"omitempty,max=255"`
	Function          *string `json:"function" validate:"omitempty,max=255"`
	CompanyName       *string `json:"companyName" validate:"omitempty,max=255"`
	WorkEmail         *string `json:"workEmail" validate:"omitempty,email,max=255"`
	PersonalEmail     *string `json:"personalEmail" validate:"omitempty,email,max=255"`
	PhoneNumber       *string `json:"phoneNumber" validate:"omitempty,max=64"`
	Products          *string `json:"products" validate:"omitempty,max=1024"`
	EscalationContact *string `json:"escalationContact" validate:"omitempty,oneof=Y N"`
}

// Apply copies the non-nil fields of p onto c
func (p *ContactPatch) Apply(c *Contact) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.FirstName, p.FirstName)
	set(&c.LastName, p.LastName)
	set(&c.Title, p.Title)
	set(&c.Function, p.Function)
	set(&c.CompanyName, p.CompanyName)
	set(&c.WorkEmail, p.WorkEmail)
	set(&c.PersonalEmail, p.PersonalEmail)
	set(&c.PhoneNumber, p.PhoneNumber)
	set(&c.Products, p.Products)
	set(&c.EscalationContact, p.EscalationContact)
}
