package migrations

import (
	"gorm.io/gorm"

	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/pkg/migration"
	"github.com/kumarketplace/marketplace/pkg/queue"
)

func init() {
	migration.Register("20240101000001_create_users_table", &CreateUsersTable{})
	migration.Register("20240101000002_create_orders_table", &CreateOrdersTable{})
	migration.Register("20240101000003_create_order_items_table", &CreateOrderItemsTable{})
	migration.Register("20240101000004_create_failed_jobs_table", &CreateFailedJobsTable{})
}

// -------- 0001: users --------

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("users")
}

// -------- 0002: orders --------

type CreateOrdersTable struct{}

func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{})
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("orders")
}

// -------- 0003: order_items --------

type CreateOrderItemsTable struct{}

func (m *CreateOrderItemsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.OrderItem{})
}

func (m *CreateOrderItemsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("order_items")
}

// -------- 0004: failed_jobs --------

type CreateFailedJobsTable struct{}

func (m *CreateFailedJobsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&queue.FailedJobRecord{})
}

func (m *CreateFailedJobsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("failed_jobs")
}
