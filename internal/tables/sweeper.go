package tables

import (
	"context"
	"log"
	"time"

	"adisyon-backend/internal/notify"
)

// Sweeper rezervasyon temizliğini sabit aralıkla çalıştırır.
type Sweeper struct {
	svc         *Service
	interval    time.Duration
	broadcaster notify.Broadcaster
}

func NewSweeper(svc *Service, interval time.Duration, b notify.Broadcaster) *Sweeper {
	if b == nil {
		b = notify.Nop{}
	}
	return &Sweeper{svc: svc, interval: interval, broadcaster: b}
}

// Run ctx iptal edilene kadar çalışır. Bir turdaki hata sonraki turları durdurmaz.
func (sw *Sweeper) Run(ctx context.Context) error {
	log.Printf("Rezervasyon temizleyici başladı (aralık: %s, tolerans: %s)", sw.interval, sw.svc.grace)
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Rezervasyon temizleyici durduruldu")
			return nil
		case <-ticker.C:
			sw.tick(ctx)
		}
	}
}

func (sw *Sweeper) tick(ctx context.Context) {
	n, err := sw.svc.Sweep(ctx)
	if err != nil {
		log.Printf("Rezervasyon temizliği sırasında hata: %v", err)
		return
	}
	if n == 0 {
		return
	}
	if err := sw.broadcaster.Broadcast(ctx, notify.Event{
		Type:    notify.EventReservationExpired,
		Message: "Süresi geçen rezervasyonlar temizlendi",
	}); err != nil {
		log.Printf("Rezervasyon bildirimi gönderilemedi: %v", err)
	}
}
