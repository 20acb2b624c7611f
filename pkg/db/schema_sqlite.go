package db

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
)

// sqliteSchema mirrors the goose migrations for the embedded driver. Money is
// stored as TEXT so decimals round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('customer','attendant','manager')),
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  price TEXT NOT NULL,
  available INTEGER NOT NULL DEFAULT 1,
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  status TEXT NOT NULL DEFAULT 'placed' CHECK (status IN ('placed','preparing','ready','completed','cancelled')),
  total TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders (user_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status);`,
	`CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL REFERENCES products(id),
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE INDEX IF NOT EXISTS idx_order_line_items_order ON order_line_items (order_id);`,
}

// ApplySQLiteSchema creates the canteen tables on an embedded database.
func ApplySQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("applying sqlite schema: %w", err)
		}
	}
	return nil
}

// DefaultMenu is the catalog seeded on a fresh database.
func DefaultMenu() []models.Product {
	item := func(id int64, name, category, price string, available bool) models.Product {
		return models.Product{
			ID:        id,
			Name:      name,
			Category:  category,
			Price:     decimal.RequireFromString(price),
			Available: available,
		}
	}
	return []models.Product{
		item(1, "X-Burger", "lanches", "18.00", true),
		item(2, "X-Salada", "lanches", "20.00", true),
		item(3, "Misto Quente", "lanches", "9.50", true),
		item(4, "Coxinha", "salgados", "6.00", true),
		item(5, "Pastel de Carne", "salgados", "8.00", true),
		item(6, "Pão de Queijo", "salgados", "4.50", true),
		item(7, "Suco Natural", "bebidas", "10.00", true),
		item(8, "Refrigerante Lata", "bebidas", "6.00", true),
		item(9, "Café Expresso", "bebidas", "5.00", true),
		item(10, "Prato Feito", "pratos", "25.00", true),
		item(11, "Açaí 300ml", "sobremesas", "15.00", true),
		item(12, "Bolo de Pote", "sobremesas", "9.00", false),
	}
}

// SeedMenu inserts DefaultMenu, leaving existing rows untouched.
func SeedMenu(ctx context.Context, conn *gorm.DB) error {
	menu := DefaultMenu()
	return conn.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&menu).Error
}
