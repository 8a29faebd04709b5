package domain

import "time"

// MovementType is the direction of an inventory movement.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// Valid reports whether the movement type is one of the known directions.
func (m MovementType) Valid() bool {
	return m == MovementIn || m == MovementOut
}

// Product represents a product in the inventory
type Product struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	Price        float64   `json:"price" db:"price"`
	CurrentStock int       `json:"current_stock" db:"current_stock"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Tag represents a label that can be attached to any number of products
type Tag struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// InventoryMovement is one immutable entry in the stock ledger. Movements are
// only ever inserted; a product's current_stock must equal the net sum of its
// movements after every committed transaction.
type InventoryMovement struct {
	ID        int64        `json:"id" db:"id"`
	ProductID int64        `json:"product_id" db:"product_id"`
	Type      MovementType `json:"type" db:"type"`
	Quantity  int          `json:"quantity" db:"quantity"`
	Reason    string       `json:"reason" db:"reason"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// ProductView is a product together with its distinct tag names.
type ProductView struct {
	Product
	Tags []string `json:"tags"`
}

// TagProduct is the reduced product shape returned when listing a tag's products.
type TagProduct struct {
	ID           int64   `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Price        float64 `json:"price" db:"price"`
	CurrentStock int     `json:"current_stock" db:"current_stock"`
}

// TagWithProducts is a tag together with the products it is attached to.
type TagWithProducts struct {
	Tag
	Products []TagProduct `json:"products"`
}
