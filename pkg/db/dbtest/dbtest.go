// Package dbtest opens isolated in-memory sqlite databases carrying the
// storefront schema for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
)

var schema = []string{
	`CREATE TABLE tenants (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  subdomain TEXT NOT NULL UNIQUE,
  domain TEXT UNIQUE,
  status TEXT NOT NULL,
  business_name TEXT NOT NULL DEFAULT '',
  contact_email TEXT NOT NULL,
  contact_phone TEXT,
  email_from TEXT,
  theme TEXT NOT NULL,
  features TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  slug TEXT NOT NULL,
  name TEXT NOT NULL,
  summary TEXT,
  price TEXT NOT NULL,
  image TEXT,
  stock INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, slug)
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  status TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_phone TEXT,
  shipping_address TEXT NOT NULL,
  items TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  shipping TEXT NOT NULL,
  tax TEXT NOT NULL,
  total TEXT NOT NULL,
  currency TEXT NOT NULL,
  external_session_id TEXT NOT NULL,
  external_payment_id TEXT,
  tracking_number TEXT,
  shipping_carrier TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT orders_order_number_key UNIQUE (order_number),
  CONSTRAINT orders_external_session_id_key UNIQUE (external_session_id)
);`,
	`CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  email TEXT NOT NULL,
  name TEXT,
  phone TEXT,
  source TEXT NOT NULL,
  subscribed_to_newsletter INTEGER NOT NULL DEFAULT 0,
  subscribed_at DATETIME,
  total_orders INTEGER NOT NULL DEFAULT 0,
  total_spent TEXT NOT NULL DEFAULT '0',
  last_order_date DATETIME,
  default_address TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, email)
);`,
	`CREATE TABLE admin_users (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, email)
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

// Open returns a fresh database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(nil))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// SeedTenant inserts an active tenant with the given slug.
func SeedTenant(t *testing.T, conn *gorm.DB, slug string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		Slug:         slug,
		Name:         strings.ToUpper(slug[:1]) + slug[1:],
		Subdomain:    slug,
		Status:       enums.TenantStatusActive,
		ContactEmail: "hello@" + slug + ".example.com",
		Features:     models.TenantFeatures{Shop: true, Newsletter: true, Contact: true},
	}
	if err := conn.Create(tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}
