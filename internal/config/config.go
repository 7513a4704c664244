package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultDSN     = "host=localhost user=postgres password=postgres dbname=adisyon port=5432 sslmode=disable"
	defaultCORS    = "http://localhost:5173"
	defaultZone    = "Europe/Istanbul"
	istanbulOffset = 3 * 60 * 60
)

type Config struct {
	HTTPPort     string
	RealtimePort string // websocket

	DatabaseDriver string // postgres | mysql | sqlite
	DatabaseDSN    string
	DBLogLevel     string // silent | error | warn | info

	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins string

	RestaurantTZ     string
	Location         *time.Location
	SweepInterval    time.Duration
	ReservationGrace time.Duration

	AMQPURL      string // boşsa AMQP yayını kapalı
	AMQPExchange string

	SeedFile      string
	AdminUsername string
	AdminPassword string
}

func Load() *Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[INFO] .env dosyası okunamadı, sadece environment değişkenleri kullanılacak: %v", err)
	}
	v.AutomaticEnv()

	cfg, err := FromViper(v)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// FromViper varsayılanları uygular ve güvenlik kontrollerini yapar.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("REALTIME_PORT", "8081")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ALLOWED_ORIGINS", defaultCORS)
	v.SetDefault("RESTAURANT_TZ", defaultZone)
	v.SetDefault("RESERVATION_SWEEP_INTERVAL", "5m")
	v.SetDefault("RESERVATION_GRACE", "30m")
	v.SetDefault("AMQP_EXCHANGE", "staff_notifications_fanout")
	v.SetDefault("ADMIN_USERNAME", "admin")

	cfg := &Config{
		HTTPPort:         v.GetString("HTTP_PORT"),
		RealtimePort:     v.GetString("REALTIME_PORT"),
		DatabaseDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		DBLogLevel:       v.GetString("DB_LOG_LEVEL"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTTTL:           v.GetDuration("JWT_TTL"),
		CORSOrigins:      v.GetString("CORS_ALLOWED_ORIGINS"),
		RestaurantTZ:     v.GetString("RESTAURANT_TZ"),
		SweepInterval:    v.GetDuration("RESERVATION_SWEEP_INTERVAL"),
		ReservationGrace: v.GetDuration("RESERVATION_GRACE"),
		AMQPURL:          v.GetString("AMQP_URL"),
		AMQPExchange:     v.GetString("AMQP_EXCHANGE"),
		SeedFile:         v.GetString("SEED_FILE"),
		AdminUsername:    v.GetString("ADMIN_USERNAME"),
		AdminPassword:    v.GetString("ADMIN_PASSWORD"),
	}

	// Production güvenlik kontrolleri
	if cfg.JWTSecret == "" {
		return nil, errors.New("[FATAL] JWT_SECRET environment değişkeni tanımlanmamış! Production için zorunludur.")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("[FATAL] JWT_SECRET en az 32 karakter olmalıdır! Güvenlik riski.")
	}
	switch cfg.DatabaseDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, errors.New("[FATAL] DB_DRIVER postgres, mysql veya sqlite olmalıdır.")
	}
	if cfg.SweepInterval <= 0 || cfg.ReservationGrace <= 0 {
		return nil, errors.New("[FATAL] RESERVATION_SWEEP_INTERVAL ve RESERVATION_GRACE pozitif süre olmalıdır.")
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 24 * time.Hour
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN varsayılan değer kullanılıyor, production için mutlaka kendi veritabanı bağlantı bilgisini tanımla.")
	}
	if cfg.CORSOrigins == defaultCORS {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için mutlaka kendi domain'ini tanımla.")
	}

	loc, err := time.LoadLocation(cfg.RestaurantTZ)
	if err != nil {
		log.Printf("[WARN] RESTAURANT_TZ (%s) yüklenemedi, UTC+3 kullanılacak: %v", cfg.RestaurantTZ, err)
		loc = time.FixedZone("UTC+3", istanbulOffset)
	}
	cfg.Location = loc

	return cfg, nil
}

// CORSOriginList virgülle ayrılmış origin listesini temizler
func (c *Config) CORSOriginList() []string {
	origins := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
