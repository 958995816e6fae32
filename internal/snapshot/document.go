// Package snapshot exports and imports the whole admin dataset in the
// keyed layout the browser panel kept in local storage.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage keys of the browser layout
const (
	KeySession       = "baburchi_user_session"
	KeyModerators    = "baburchi_moderators"
	KeyOrders        = "baburchi_orders"
	KeyCourierConfig = "baburchi_courier_config"
	KeyProducts      = "baburchi_products"
	KeyBrandLogo     = "baburchi_brand_logo"
	KeyLeads         = "baburchi_leads"
)

var ErrInvalidDocument = errors.New("invalid snapshot document")

type ProductRecord struct {
	ID    string  `json:"id"`
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock *int    `json:"stock,omitempty"`
}

type UserRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type OrderItemRecord struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderRecord struct {
	ID              string            `json:"id"`
	ModeratorID     string            `json:"moderatorId"`
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	CustomerAddress string            `json:"customerAddress"`
	Items           []OrderItemRecord `json:"items"`
	TotalAmount     float64           `json:"totalAmount"`
	Status          string            `json:"status"`
	CreatedAt       string            `json:"createdAt"`
	Notes           string            `json:"notes,omitempty"`
	SteadfastID     *string           `json:"steadfastId,omitempty"`
	CourierStatus   *string           `json:"courierStatus,omitempty"`
}

type LeadRecord struct {
	ID            string `json:"id"`
	ModeratorID   string `json:"moderatorId"`
	AssignedDate  string `json:"assignedDate"`
	Status        string `json:"status"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	Note          string `json:"note,omitempty"`
}

type CourierConfigRecord struct {
	APIKey          string `json:"apiKey"`
	SecretKey       string `json:"secretKey"`
	BaseURL         string `json:"baseUrl"`
	WebhookURL      string `json:"webhookUrl"`
	AccountEmail    string `json:"accountEmail"`
	AccountPassword string `json:"accountPassword"`
}

// Document is one complete dump. Nil slices mean the key was absent.
type Document struct {
	Session       *UserRecord
	Moderators    []UserRecord
	Orders        []OrderRecord
	CourierConfig *CourierConfigRecord
	Products      []ProductRecord
	Leads         []LeadRecord
	BrandLogo     string
}

// MarshalJSON writes every present key as raw JSON
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{})
	if d.Session != nil {
		out[KeySession] = d.Session
	}
	if d.Moderators != nil {
		out[KeyModerators] = d.Moderators
	}
	if d.Orders != nil {
		out[KeyOrders] = d.Orders
	}
	if d.CourierConfig != nil {
		out[KeyCourierConfig] = d.CourierConfig
	}
	if d.Products != nil {
		out[KeyProducts] = d.Products
	}
	if d.Leads != nil {
		out[KeyLeads] = d.Leads
	}
	if d.BrandLogo != "" {
		out[KeyBrandLogo] = d.BrandLogo
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts values either as JSON or as JSON text wrapped in a string,
// the way local storage returns them.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	*d = Document{}
	fields := []struct {
		key    string
		target interface{}
	}{
		{KeySession, &d.Session},
		{KeyModerators, &d.Moderators},
		{KeyOrders, &d.Orders},
		{KeyCourierConfig, &d.CourierConfig},
		{KeyProducts, &d.Products},
		{KeyLeads, &d.Leads},
	}
	for _, f := range fields {
		value, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := decodeValue(value, f.target); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, f.key, err)
		}
	}

	if value, ok := raw[KeyBrandLogo]; ok && !isNull(value) {
		if err := json.Unmarshal(value, &d.BrandLogo); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, KeyBrandLogo, err)
		}
	}
	return nil
}

func decodeValue(value json.RawMessage, target interface{}) error {
	if isNull(value) {
		return nil
	}
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return err
		}
		trimmed = []byte(inner)
	}
	return json.Unmarshal(trimmed, target)
}

func isNull(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
