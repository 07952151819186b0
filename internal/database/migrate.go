package database

import (
	"database/sql"
	"fmt"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iliyamo/vehicle-rental/internal/model"
)

// Models lists every table the MySQL backend owns, in dependency order.
func Models() []any {
	return []any{
		&model.User{},
		&model.RefreshToken{},
		&model.Vehicle{},
		&model.Reservation{},
		&model.Payment{},
		&model.Invoice{},
		&model.SupportTicket{},
	}
}

// Migrate creates or widens the schema from the model structs.  gorm reuses
// the existing pool instead of opening its own, and is used for nothing but
// migrations; queries go through database/sql.
func Migrate(db *sql.DB) error {
	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: db}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("gorm open: %w", err)
	}
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
