package courier

import (
	"encoding/json"
	"strings"

	"baburchi-admin/internal/model"
)

// WebhookPayload is a Steadfast delivery-status callback
type WebhookPayload struct {
	NotificationType string      `json:"notification_type"`
	ConsignmentID    json.Number `json:"consignment_id"`
	Invoice          string      `json:"invoice"`
	Status           string      `json:"status"`
	TrackingMessage  string      `json:"tracking_message"`
	UpdatedAt        string      `json:"updated_at"`
}

// MapDeliveryStatus converts a courier status into the order status it implies.
// The second result is false for statuses that only update tracking.
func MapDeliveryStatus(status string) (model.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "delivered", "partial_delivered":
		return model.OrderDelivered, true
	case "cancelled":
		return model.OrderCancelled, true
	}
	return "", false
}
