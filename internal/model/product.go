package model

// DefaultStock is applied when a product is created or imported without a stock level
const DefaultStock = 50

type Product struct {
	BaseModel
	SKU   string `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Name  string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Price int64  `gorm:"not null;default:0" json:"price" validate:"gte=0"`
	Stock int    `gorm:"not null;default:0" json:"stock" validate:"gte=0"`
}
