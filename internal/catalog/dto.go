package catalog

import "github.com/google/uuid"

// VariantDetail flattens a variant with the product fields the cart and
// checkout flows validate against.
type VariantDetail struct {
	VariantID   uuid.UUID `json:"variant_id"`
	ProductID   uuid.UUID `json:"product_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	ProductName string    `json:"product_name"`
	VariantName string    `json:"variant_name"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	IsListed    bool      `json:"is_listed"`
}
