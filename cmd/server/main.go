package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/config"
	"adisyon-backend/internal/database"
	"adisyon-backend/internal/metrics"
	"adisyon-backend/internal/notify"
	"adisyon-backend/internal/tables"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("Sunucu hata ile kapandı: %v", err)
		os.Exit(1)
	}
	log.Println("Sunucu kapatıldı")
}

// run sunucuyu ayağa kaldırır; dönmeden önce tüm defer'lar çalışır.
func run() error {
	cfg := config.Load()
	database.Init(cfg)
	db := database.DB

	if cfg.SeedFile != "" {
		sf, err := database.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("seed dosyası okunamadı: %w", err)
		}
		if err := database.Seed(db, sf); err != nil {
			return fmt.Errorf("seed hatası: %w", err)
		}
	}
	if cfg.AdminPassword != "" {
		created, err := database.EnsureAdmin(db, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("admin hesabı oluşturulamadı: %w", err)
		}
		if created {
			log.Printf("İlk Admin hesabı oluşturuldu: %s", cfg.AdminUsername)
		}
	}

	m := metrics.New()
	hub := notify.NewHub()
	defer hub.Close()

	sinks := notify.Multi{hub}
	if cfg.AMQPURL != "" {
		pub, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("[WARN] AMQP bağlantısı kurulamadı, sadece websocket kullanılacak: %v", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
			log.Printf("AMQP yayını aktif (exchange: %s)", cfg.AMQPExchange)
		}
	}

	svc := newServices(cfg, db, m, sinks)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
	}))

	registerRoutes(app, svc)

	realtime := &http.Server{
		Addr:              ":" + cfg.RealtimePort,
		Handler:           realtimeMux(svc.auth, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	sweeper := tables.NewSweeper(svc.tables, cfg.SweepInterval, sinks)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("HTTP API :%s adresinde dinleniyor", cfg.HTTPPort)
		return app.Listen(":" + cfg.HTTPPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	g.Go(func() error {
		log.Printf("Websocket :%s adresinde dinleniyor", cfg.RealtimePort)
		if err := realtime.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return realtime.Shutdown(sctx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	return g.Wait()
}

// realtimeMux personel websocket'i. gorilla/websocket net/http bağlantısı ister.
// Websocket oturumu ?token= ya da oturum çerezi ile doğrulanır.
func realtimeMux(authSvc *auth.Service, hub *notify.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/staff", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			if c, err := r.Cookie(auth.SessionCookie); err == nil {
				token = c.Value
			}
		}
		p, err := authSvc.Authenticate(r.Context(), token)
		if err != nil {
			http.Error(w, "Oturum geçersiz", http.StatusUnauthorized)
			return
		}
		log.Printf("Personel bağlandı: %s (%s)", p.Username, p.Role)
		hub.ServeWS(w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
