package services

import (
	"context"

	"gorm.io/gorm"
)

// runInTx runs fn inside the caller's transaction when one is supplied, and
// opens a fresh one otherwise. Every structural write goes through here so a
// single operation either fully commits or leaves nothing behind.
func runInTx(ctx context.Context, db *gorm.DB, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return db.WithContext(ctx).Transaction(fn)
}
