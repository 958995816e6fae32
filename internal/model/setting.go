package model

import "time"

// Setting keys
const (
	SettingCourierConfig = "courier_config"
	SettingBrandLogo     = "brand_logo"
)

// Setting is a single key/value row holding admin configuration
type Setting struct {
	Key       string    `gorm:"column:setting_key;type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `gorm:"type:varchar(64)" json:"updated_by,omitempty"`
}

// DefaultCourierBaseURL is the Steadfast API root used until an admin changes it
const DefaultCourierBaseURL = "https://portal.steadfast.com.bd/api/v1"

// CourierConfig holds the Steadfast account credentials
type CourierConfig struct {
	APIKey          string `json:"api_key"`
	SecretKey       string `json:"secret_key"`
	BaseURL         string `json:"base_url" validate:"required,url"`
	WebhookURL      string `json:"webhook_url" validate:"omitempty,url"`
	AccountEmail    string `json:"account_email" validate:"omitempty,email"`
	AccountPassword string `json:"account_password"`
}

func DefaultCourierConfig() CourierConfig {
	return CourierConfig{BaseURL: DefaultCourierBaseURL}
}

// IsConfigured reports whether either API keys or account credentials are present
func (c CourierConfig) IsConfigured() bool {
	return (c.APIKey != "" && c.SecretKey != "") || (c.AccountEmail != "" && c.AccountPassword != "")
}

const maskedSecret = "********"

// Masked hides secrets for API responses
func (c CourierConfig) Masked() CourierConfig {
	if c.SecretKey != "" {
		c.SecretKey = maskedSecret
	}
	if c.AccountPassword != "" {
		c.AccountPassword = maskedSecret
	}
	return c
}

// MergeSecrets keeps the stored secret when an update echoes back the masked placeholder
func (c CourierConfig) MergeSecrets(stored CourierConfig) CourierConfig {
	if c.SecretKey == maskedSecret {
		c.SecretKey = stored.SecretKey
	}
	if c.AccountPassword == maskedSecret {
		c.AccountPassword = stored.AccountPassword
	}
	return c
}
