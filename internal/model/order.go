package model

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// orderTransitions lists the statuses reachable from each status.
// DELIVERED and CANCELLED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderDelivered, OrderCancelled},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo reports whether next may follow s. Re-applying the current status is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CourierSyncState guards the one-way push of an order to the courier
type CourierSyncState string

const (
	SyncUnsynced CourierSyncState = "UNSYNCED"
	SyncInFlight CourierSyncState = "IN_FLIGHT"
	SyncSynced   CourierSyncState = "SYNCED"
)

type Order struct {
	BaseModel
	ModeratorID     string      `gorm:"type:varchar(64);index;not null" json:"moderator_id"`
	CustomerName    string      `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone   string      `gorm:"type:varchar(20);index;not null" json:"customer_phone"`
	CustomerAddress string      `gorm:"type:text;not null" json:"customer_address"`
	Items           []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount     int64       `gorm:"not null" json:"total_amount"`
	Status          OrderStatus `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	Notes           string      `gorm:"type:text" json:"notes"`

	// Courier
	SteadfastID          *string          `gorm:"type:varchar(64);index" json:"steadfast_id,omitempty"`
	CourierStatus        *string          `gorm:"type:varchar(50)" json:"courier_status,omitempty"`
	TrackingCode         *string          `gorm:"type:varchar(64)" json:"tracking_code,omitempty"`
	CourierSyncState     CourierSyncState `gorm:"type:varchar(20);not null;default:UNSYNCED" json:"courier_sync_state"`
	CourierSyncStartedAt *time.Time       `json:"-"`
}

// OrderItem is a cart line with the unit price captured at order time
type OrderItem struct {
	ID          string `gorm:"type:varchar(64);primaryKey" json:"id"`
	OrderID     string `gorm:"type:varchar(64);index;not null" json:"-"`
	Position    int    `gorm:"not null;default:0" json:"-"`
	ProductID   string `gorm:"type:varchar(64);index;not null" json:"product_id"`
	ProductName string `gorm:"type:varchar(255)" json:"product_name"`
	Quantity    int    `gorm:"not null" json:"quantity"`
	Price       int64  `gorm:"not null" json:"price"`
}

// LineTotal is price × quantity
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// ComputeTotal sums the line totals of the order's items
func (o *Order) ComputeTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	return total
}

func (o *Order) IsSynced() bool {
	return o.SteadfastID != nil && *o.SteadfastID != ""
}
