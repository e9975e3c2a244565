package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a seller listing. Catalog CRUD lives in another service;
// this side only reads it to validate carts and checkouts.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID  uuid.UUID        `gorm:"column:seller_id;type:uuid;not null"`
	Name      string           `gorm:"column:name;not null"`
	IsListed  bool             `gorm:"column:is_listed;not null;default:true"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
