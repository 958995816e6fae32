package model

type MovementType string

const (
	MovementIn     MovementType = "IN"     // restock
	MovementOut    MovementType = "OUT"    // sold through an order
	MovementAdjust MovementType = "ADJUST" // manual catalog edit
)

// StockMovement is an append-only record of every stock change
type StockMovement struct {
	BaseModel
	ProductID  string       `gorm:"type:varchar(64);index;not null" json:"product_id"`
	Type       MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity   int          `gorm:"not null" json:"quantity"` // signed for ADJUST
	StockAfter int          `gorm:"not null" json:"stock_after"`
	OrderID    *string      `gorm:"type:varchar(64);index" json:"order_id,omitempty"`
	Note       string       `gorm:"type:varchar(255)" json:"note,omitempty"`
}
