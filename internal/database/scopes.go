package database

import (
	"gorm.io/gorm"
)

// Paginate applies offset and limit to a GORM query. Zero values leave the
// query unbounded.
func Paginate(offset, limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if offset > 0 {
			db = db.Offset(offset)
		}
		if limit > 0 {
			db = db.Limit(limit)
		}
		return db
	}
}

// Newest orders rows by creation time, newest first.
func Newest(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}
