package types

import (
	"fmt"
	"time"
)

type Product struct {
	ID         string    `json:"id" db:"id"`
	SupplierID string    `json:"supplierID" db:"supplier_id"`
	Name       string    `json:"name" db:"name"`
	Price      float64   `json:"price" db:"price"`
	ImageURL   string    `json:"imageURL" db:"image_url"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Snapshot copies the fields a product message embeds.
// The snapshot is not live-linked: later product edits do not change it.
func (p Product) Snapshot(at time.Time) ProductSnapshot {
	return ProductSnapshot{
		ProductID:  p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Image:      p.ImageURL,
		CapturedAt: at,
	}
}

type ProductSnapshot struct {
	ProductID  string    `json:"productID"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Image      string    `json:"image"`
	CapturedAt time.Time `json:"capturedAt"`
}

// InterestMessage is the opening line of a product conversation.
func (p Product) InterestMessage() string {
	return fmt.Sprintf("Bonjour, je suis intéressé par votre produit : %s", p.Name)
}
