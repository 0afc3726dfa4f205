package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/enums"
)

// Tenant is one storefront served by the platform.
type Tenant struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Slug         string             `gorm:"column:slug;not null;uniqueIndex"`
	Name         string             `gorm:"column:name;not null"`
	Subdomain    string             `gorm:"column:subdomain;not null;uniqueIndex"`
	Domain       *string            `gorm:"column:domain;uniqueIndex"`
	Status       enums.TenantStatus `gorm:"column:status;not null"`
	BusinessName string             `gorm:"column:business_name"`
	ContactEmail string             `gorm:"column:contact_email;not null"`
	ContactPhone *string            `gorm:"column:contact_phone"`
	EmailFrom    *string            `gorm:"column:email_from"`
	Theme        TenantTheme        `gorm:"column:theme;type:jsonb;serializer:json;not null"`
	Features     TenantFeatures     `gorm:"column:features;type:jsonb;serializer:json;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TenantTheme carries presentation settings handed to the storefront frontend.
type TenantTheme struct {
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	AccentColor    string `json:"accentColor,omitempty"`
	HeadingFont    string `json:"headingFont,omitempty"`
	BodyFont       string `json:"bodyFont,omitempty"`
	Layout         string `json:"layout,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
}

// TenantFeatures toggles optional storefront capabilities.
type TenantFeatures struct {
	Shop       bool `json:"shop"`
	Newsletter bool `json:"newsletter"`
	Contact    bool `json:"contact"`
}

func (t *Tenant) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
