package tables

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/audit"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/metrics"
	"adisyon-backend/internal/models"

	"gorm.io/gorm"
)

const (
	MinCapacity = 1
	MaxCapacity = 20

	// reservationLeeway geçmiş saat kontrolünde tanınan pay
	reservationLeeway = 5 * time.Minute
)

type Service struct {
	db      *gorm.DB
	loc     *time.Location
	grace   time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(db *gorm.DB, loc *time.Location, grace time.Duration, m *metrics.Metrics) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, loc: loc, grace: grace, metrics: m, now: time.Now}
}

func (s *Service) Location() *time.Location { return s.loc }

type ListResult struct {
	Tables        []models.Table
	OccupiedCount int
}

// List önce süresi geçmiş rezervasyonları temizler, sonra masaları ada göre döner.
func (s *Service) List(ctx context.Context) (*ListResult, error) {
	if _, err := s.Sweep(ctx); err != nil {
		log.Printf("Rezervasyon temizliği başarısız: %v", err)
	}

	var tables []models.Table
	if err := s.db.WithContext(ctx).Order("name").Find(&tables).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	res := &ListResult{Tables: tables}
	for _, t := range tables {
		if t.Status == models.TableOccupied {
			res.OccupiedCount++
		}
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Table, error) {
	var t models.Table
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("Masa bulunamadı.")
		}
		return nil, apperr.Wrap(err, "")
	}
	return &t, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Principal, name string, capacity int) (*models.Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("Masa adı boş olamaz.")
	}
	if capacity < MinCapacity || capacity > MaxCapacity {
		return nil, apperr.Validationf("Kapasite %d ile %d arasında olmalıdır.", MinCapacity, MaxCapacity)
	}

	table := models.Table{Name: name, Capacity: capacity, Status: models.TableEmpty}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Table{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflictf("'%s' adında bir masa zaten var.", name)
		}
		if err := tx.Create(&table).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "table",
			EntityID:    table.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Masa oluşturuldu: %s (%d kişilik)", table.Name, table.Capacity),
			After:       table,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return &table, nil
}

type ReserveInput struct {
	Name       string
	Phone      string
	GuestCount int
	Time       string // "15:04" (bugün, restoran saati) ya da "2006-01-02T15:04"
}

// Reserve sadece boş masayı rezerve eder; dört rezervasyon alanı tek update ile yazılır.
func (s *Service) Reserve(ctx context.Context, actor auth.Principal, id uint, in ReserveInput) (*models.Table, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	if name == "" {
		return nil, apperr.Validationf("Rezervasyon adı boş olamaz.")
	}
	if phone == "" {
		return nil, apperr.Validationf("Telefon numarası boş olamaz.")
	}

	now := s.now()
	at, err := ParseReservationTime(in.Time, now, s.loc)
	if err != nil {
		return nil, err
	}
	if at.Before(now.Add(-reservationLeeway)) {
		return nil, apperr.Validationf("Rezervasyon saati geçmiş bir saat olamaz.")
	}
	atUTC := at.UTC()

	var table models.Table
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&table, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Masa bulunamadı.")
			}
			return err
		}
		if table.Status != models.TableEmpty {
			return apperr.Conflictf("Yalnızca boş masalar rezerve edilebilir.")
		}
		if in.GuestCount < 1 || in.GuestCount > table.Capacity {
			return apperr.Validationf("Kişi sayısı 1 ile %d arasında olmalıdır.", table.Capacity)
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ?", id, models.TableEmpty).
			Updates(map[string]any{
				"status":                  models.TableReserved,
				"reservation_name":        name,
				"reservation_phone":       phone,
				"reservation_guest_count": in.GuestCount,
				"reservation_time":        atUTC,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("Yalnızca boş masalar rezerve edilebilir.")
		}

		table.Status = models.TableReserved
		table.ReservationName = &name
		table.ReservationPhone = &phone
		table.ReservationGuestCount = &in.GuestCount
		table.ReservationTime = &atUTC

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "table",
			EntityID:    table.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%s rezerve edildi: %s, %d kişi, %s", table.Name, name, in.GuestCount, at.Format("02.01.2006 15:04")),
			After:       table,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	s.metrics.ReservationMade()
	return &table, nil
}

// CancelReserve rezervasyonu kaldırır. Masa zaten boşsa (örn. temizlik önce davrandıysa)
// hata vermez, changed=false döner.
func (s *Service) CancelReserve(ctx context.Context, actor auth.Principal, id uint) (changed bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := models.ClearedReservation()
		updates["status"] = models.TableEmpty

		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ?", id, models.TableReserved).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var table models.Table
			if err := tx.First(&table, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("Masa bulunamadı.")
				}
				return err
			}
			if table.Status == models.TableOccupied {
				return apperr.Conflictf("Bu masa zaten rezerve değil.")
			}
			return nil
		}

		changed = true
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "table",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: "Rezervasyon iptal edildi",
		})
	})
	if err != nil {
		return false, apperr.Wrap(err, "")
	}
	return changed, nil
}

// Delete dolu (açık adisyonlu) masayı silmez.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Masa bulunamadı.")
			}
			return err
		}

		res := tx.Where("id = ? AND status <> ?", id, models.TableOccupied).Delete(&models.Table{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("Açık adisyonu olan masa silinemez.")
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "table",
			EntityID:    table.ID,
			Action:      models.AuditActionDelete,
			Description: "Masa silindi: " + table.Name,
			Before:      table,
		})
	})
	return apperr.Wrap(err, "")
}

// AcknowledgeWaiter garson çağrısını kapatır; masa tekrar çağırabilir.
func (s *Service) AcknowledgeWaiter(ctx context.Context, id uint) (*models.Table, error) {
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Table{}).Where("id = ?", id).Update("is_waiter_called", false).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return s.Get(ctx, id)
}

// Sweep süresi (grace dahil) geçmiş rezervasyonları tek koşullu update ile boşaltır.
// Tekrar çalıştırmak güvenlidir.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.grace)
	db := s.db.WithContext(ctx)
	cond := "status = ? AND reservation_time IS NOT NULL AND reservation_time <= ?"

	var expired []models.Table
	if err := db.Select("id", "name").Where(cond, models.TableReserved, cutoff).Find(&expired).Error; err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	updates := models.ClearedReservation()
	updates["status"] = models.TableEmpty
	res := db.Model(&models.Table{}).Where(cond, models.TableReserved, cutoff).Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}

	for _, t := range expired {
		log.Printf("Rezervasyon süresi doldu, masa boşaltıldı: %s (#%d)", t.Name, t.ID)
	}
	n := int(res.RowsAffected)
	if n > 0 {
		log.Printf("%d masanın süresi geçmiş rezervasyonu temizlendi", n)
	}
	s.metrics.ReservationsExpired(n)
	return n, nil
}

// ParseReservationTime "15:04" (bugün) veya "2006-01-02T15:04" biçimini restoran saatinde yorumlar.
func ParseReservationTime(v string, now time.Time, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, apperr.Validationf("Rezervasyon saati boş olamaz.")
	}

	if clock, err := time.ParseInLocation("15:04", v, loc); err == nil {
		local := now.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validationf("Geçersiz rezervasyon saati.")
}
