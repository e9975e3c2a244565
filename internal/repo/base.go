// Package repo holds the plumbing shared by the domain repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM handle for a repository and knows how to swap it for
// a transaction. Domain repositories embed it and run queries through DB.
type Base struct {
	db *gorm.DB
}

// NewBase wraps the given connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx, ready for a query chain.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Rebind returns a Base running on tx. A nil tx keeps the current handle, so
// callers can pass through an optional transaction unconditionally.
func (b Base) Rebind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}
