package dbmysql

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gosocialchat/internal/config"
)

// NewMySQL returns a GORM DB instance connected to MySQL and a cleanup func that
// closes the pool.
func NewMySQL(cfg *config.Config) (*gorm.DB, func(), error) {
	dsn := cfg.DSN()

	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:      logger.Default.LogMode(logLevel),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("sql.DB error: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	slog.Info("connected to MySQL",
		"host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.DatabaseName)

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			slog.Warn("closing MySQL pool", "error", err)
		}
	}
	return db, cleanup, nil
}

// Models lists every table owned by chat-svc, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Conversation{},
		&Participant{},
		&Message{},
		&Reaction{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
