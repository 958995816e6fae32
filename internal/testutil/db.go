// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"baburchi-admin/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory SQLite database private to the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// SeedProduct inserts a product with a fixed id
func SeedProduct(t *testing.T, db *gorm.DB, id, sku, name string, price int64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{SKU: sku, Name: name, Price: price, Stock: stock}
	p.ID = id
	require.NoError(t, db.Create(p).Error)
	return p
}

// SeedUser inserts a user whose password is "password"
func SeedUser(t *testing.T, db *gorm.DB, id, name, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: email, Role: role, IsActive: true}
	u.ID = id
	require.NoError(t, u.SetPassword("password"))
	require.NoError(t, db.Create(u).Error)
	return u
}
