package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"adisyon-backend/internal/config"
	"adisyon-backend/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = Open(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.DBLogLevel)
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate hatası: %v", err)
	}

	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}

// Open sürücüye göre bağlantı açar. Zamanlar her zaman UTC yazılır.
func Open(driver, dsn, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("desteklenmeyen veritabanı sürücüsü: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(logLevel)),
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB alınamadı: %w", err)
	}
	if driver == "sqlite" {
		// tek bağlantı: in-memory veritabanı bağlantı kapanınca kaybolur
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.Table{},
		&models.Category{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.StockLog{},
	)
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}
