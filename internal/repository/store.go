// internal/repository/store.go
package repository

import "gorm.io/gorm"

// Store is the postgres-backed persistence used by every service.
// Lookups return gorm.ErrRecordNotFound for missing rows.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func like(s string) string {
	return "%" + s + "%"
}
