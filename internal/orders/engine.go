package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/audit"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/metrics"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/stock"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const openFailedMessage = "Adisyon açılırken hata oluştu. Tekrar deneyin."

var forUpdate = clause.Locking{Strength: "UPDATE"}

// Engine adisyon yaşam döngüsünün tek giriş noktası. Her geçiş tek transaction'dır;
// adisyon ve masa satırları FOR UPDATE ile kilitlenir.
type Engine struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewEngine(db *gorm.DB, m *metrics.Metrics) *Engine {
	return &Engine{db: db, metrics: m, now: time.Now}
}

type LineInput struct {
	MenuItemID uint   `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note"`
}

type OpenOrderInput struct {
	TableID  uint
	OpenedBy string
	Note     string
	Lines    []LineInput
}

type OpenResult struct {
	Order *models.Order
	// Redirected masada zaten açık adisyon vardı, yenisi açılmadı
	Redirected bool
}

// OpenOrder masaya adisyon açar. Masada açık adisyon varsa onu döner.
func (e *Engine) OpenOrder(ctx context.Context, actor auth.Principal, in OpenOrderInput) (*OpenResult, error) {
	openedBy := strings.TrimSpace(in.OpenedBy)
	if openedBy == "" {
		openedBy = actor.FullName
	}
	if openedBy == "" {
		return nil, apperr.Validationf("Adisyonu açan kişi belirtilmelidir.")
	}
	if len(in.Lines) == 0 {
		return nil, apperr.Validationf("En az bir ürün seçmelisiniz.")
	}

	var res OpenResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.Clauses(forUpdate).First(&table, in.TableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Masa bulunamadı.")
			}
			return err
		}

		existing, err := openOrderFor(tx, table.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			res = OpenResult{Order: existing, Redirected: true}
			return nil
		}

		now := e.now().UTC()
		order := models.Order{
			TableID:   table.ID,
			TableName: table.Name,
			Status:    models.OrderOpen,
			OpenedBy:  openedBy,
			Note:      strings.TrimSpace(in.Note),
			OpenedAt:  now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var total float64
		items := make([]models.OrderItem, 0, len(in.Lines))
		for _, line := range in.Lines {
			item, err := e.addLine(tx, &order, line, now)
			if err != nil {
				return err
			}
			total += item.LineTotal
			items = append(items, *item)
		}
		order.TotalAmount = models.RoundMoney(total)
		if err := tx.Model(&order).Update("total_amount", order.TotalAmount).Error; err != nil {
			return err
		}

		updates := models.ClearedReservation()
		updates["status"] = models.TableOccupied
		if err := tx.Model(&table).Updates(updates).Error; err != nil {
			return err
		}

		order.Items = items
		res.Order = &order
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s için adisyon açıldı (₺%.2f)", table.Name, order.TotalAmount),
			After:       order,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, openFailedMessage)
	}

	if !res.Redirected {
		e.metrics.OrderOpened()
	}
	return &res, nil
}

// AddItem açık adisyona güncel fiyattan ürün ekler.
func (e *Engine) AddItem(ctx context.Context, actor auth.Principal, orderID uint, line LineInput) (*models.OrderItem, error) {
	var added *models.OrderItem
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID, "Adisyon veya ürün bulunamadı.")
		if err != nil {
			return err
		}
		if order.Status != models.OrderOpen {
			return apperr.Conflictf("Kapalı adisyona ürün eklenemez.")
		}

		now := e.now().UTC()
		item, err := e.addLine(tx, order, line, now)
		if err != nil {
			return err
		}
		order.TotalAmount = models.RoundMoney(order.TotalAmount + item.LineTotal)
		if err := tx.Model(order).Update("total_amount", order.TotalAmount).Error; err != nil {
			return err
		}

		added = item
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Adisyon #%d: %d x ürün #%d eklendi (₺%.2f)", order.ID, item.Quantity, item.MenuItemID, item.LineTotal),
			After:       item,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return added, nil
}

// UpdateItemStatus kalem durumunu değiştirir. İptal terminaldir; tutarı düşer ve stoğu geri ekler.
func (e *Engine) UpdateItemStatus(ctx context.Context, actor auth.Principal, itemID uint, status models.OrderItemStatus) (*models.OrderItem, error) {
	if !status.Valid() {
		return nil, apperr.Validationf("Geçersiz durum.")
	}

	var item models.OrderItem
	cancelled := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Sipariş kalemi bulunamadı.")
			}
			return err
		}
		order, err := lockOrder(tx, item.OrderID, "Adisyon bulunamadı.")
		if err != nil {
			return err
		}
		// kilit sonrası güncel hali
		if err := tx.First(&item, itemID).Error; err != nil {
			return err
		}

		if item.Status == status {
			return nil
		}
		if item.Status == models.ItemCancelled {
			return apperr.Conflictf("İptal edilmiş kalemin durumu değiştirilemez.")
		}

		prev := item.Status
		if status == models.ItemCancelled {
			if err := e.cancelLine(tx, order, &item); err != nil {
				return err
			}
			cancelled = true
		} else if err := tx.Model(&item).Update("status", status).Error; err != nil {
			return err
		}
		item.Status = status

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "order_item",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Adisyon #%d kalem #%d: %s → %s", order.ID, item.ID, prev, status),
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	if cancelled {
		e.metrics.ItemCancelled()
	}
	return &item, nil
}

type PaymentInput struct {
	PayerName string
	Method    string
	Amount    float64
	Discount  float64
}

type PaymentResult struct {
	Order     *models.Order
	Payment   *models.Payment
	Paid      float64
	NetTotal  float64
	Remaining float64
	Closed    bool
}

// AddPayment kısmi ya da tam ödeme ekler. Kalan tutarı aşan ödeme reddedilir;
// toplam ödeme net tutara ulaştığında adisyon kapanır ve masa boşalır.
func (e *Engine) AddPayment(ctx context.Context, actor auth.Principal, orderID uint, in PaymentInput) (*PaymentResult, error) {
	amount := models.RoundMoney(in.Amount)
	discount := models.RoundMoney(in.Discount)
	if amount <= 0 {
		return nil, apperr.Validationf("Ödeme tutarı 0'dan büyük olmalıdır.")
	}
	if discount < 0 {
		return nil, apperr.Validationf("İndirim tutarı negatif olamaz.")
	}
	method := models.ParsePaymentMethod(in.Method)

	var res PaymentResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID, "Adisyon bulunamadı.")
		if err != nil {
			return err
		}
		if order.Status != models.OrderOpen {
			return apperr.Conflictf("Bu adisyon zaten kapatılmış.")
		}
		if discount > order.TotalAmount {
			return apperr.Validationf("İndirim tutarı toplam tutarı aşamaz.")
		}

		paid, err := paidAmount(tx, order.ID)
		if err != nil {
			return err
		}
		net := models.RoundMoney(order.TotalAmount - discount)
		remaining := models.RoundMoney(net - paid)
		if amount > remaining+models.MoneyTolerance {
			return apperr.Validationf("Ödeme tutarı kalan tutarı (₺%.2f) aşamaz.", remaining)
		}

		now := e.now().UTC()
		payment := models.Payment{
			OrderID: order.ID,
			Method:  method,
			Amount:  amount,
			Note:    strings.TrimSpace(in.PayerName),
			PaidAt:  now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		order.DiscountAmount = discount
		if err := tx.Model(order).Update("discount_amount", discount).Error; err != nil {
			return err
		}

		paid = models.RoundMoney(paid + amount)
		res = PaymentResult{
			Order:     order,
			Payment:   &payment,
			Paid:      paid,
			NetTotal:  net,
			Remaining: max(models.RoundMoney(net-paid), 0),
		}
		if paid >= net-models.MoneyTolerance {
			if err := closeOrder(tx, order, models.OrderPaid, now); err != nil {
				return err
			}
			res.Closed = true
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "payment",
			EntityID:    payment.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Adisyon #%d: %s ₺%.2f ödeme (indirim ₺%.2f)", order.ID, method.Label(), amount, discount),
			After:       payment,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	e.metrics.PaymentReceived(string(method), amount)
	if res.Closed {
		e.metrics.OrderClosed(string(models.OrderPaid), res.Order.ClosedAt.Sub(res.Order.OpenedAt))
	}
	return &res, nil
}

type CloseResult struct {
	Order   *models.Order
	Payment *models.Payment
	Change  float64
}

// Close kalan tutarı tek ödemeyle kapatır ve para üstünü hesaplar.
// Önceden kısmi ödeme yoksa kalan tutar adisyon toplamıdır.
func (e *Engine) Close(ctx context.Context, actor auth.Principal, orderID uint, method string, amount float64) (*CloseResult, error) {
	amount = models.RoundMoney(amount)
	pm := models.ParsePaymentMethod(method)

	var res CloseResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID, "Adisyon bulunamadı.")
		if err != nil {
			return err
		}
		if order.Status != models.OrderOpen {
			return apperr.Conflictf("Bu adisyon zaten kapatılmış.")
		}

		paid, err := paidAmount(tx, order.ID)
		if err != nil {
			return err
		}
		due := max(models.RoundMoney(order.TotalAmount-order.DiscountAmount-paid), 0)
		if amount+models.MoneyTolerance < due {
			return apperr.Validationf("Ödeme tutarı toplam tutardan az olamaz.")
		}

		now := e.now().UTC()
		change := max(models.RoundMoney(amount-due), 0)
		payment := models.Payment{
			OrderID:     order.ID,
			Method:      pm,
			Amount:      amount,
			ChangeGiven: change,
			PaidAt:      now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if err := closeOrder(tx, order, models.OrderPaid, now); err != nil {
			return err
		}

		res = CloseResult{Order: order, Payment: &payment, Change: change}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Adisyon #%d kapatıldı: %s ₺%.2f, para üstü ₺%.2f", order.ID, pm.Label(), amount, change),
			After:       payment,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	e.metrics.PaymentReceived(string(pm), res.Payment.Collected())
	e.metrics.OrderClosed(string(models.OrderPaid), res.Order.ClosedAt.Sub(res.Order.OpenedAt))
	return &res, nil
}

// Cancel açık adisyonu iptal eder; iptal edilmemiş kalemlerin stoğu iade edilir ve masa boşalır.
func (e *Engine) Cancel(ctx context.Context, actor auth.Principal, orderID uint, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)

	var order *models.Order
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID, "Adisyon bulunamadı.")
		if err != nil {
			return err
		}
		if order.Status != models.OrderOpen {
			return apperr.Conflictf("Yalnızca açık adisyonlar iptal edilebilir.")
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ? AND status <> ?", order.ID, models.ItemCancelled).Find(&items).Error; err != nil {
			return err
		}
		now := e.now().UTC()
		for _, it := range items {
			var mi models.MenuItem
			if err := tx.Clauses(forUpdate).First(&mi, it.MenuItemID).Error; err != nil {
				return err
			}
			if _, err := stock.Restock(tx, &mi, it.ConsumedQty, order.ID, fmt.Sprintf("Adisyon #%d iptal", order.ID), now); err != nil {
				return err
			}
		}

		if reason != "" {
			order.Note = strings.TrimSpace(order.Note + " [İptal: " + reason + "]")
			if err := tx.Model(order).Update("note", order.Note).Error; err != nil {
				return err
			}
		}
		if err := closeOrder(tx, order, models.OrderCancelled, now); err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Adisyon #%d iptal edildi (₺%.2f) %s", order.ID, order.TotalAmount, reason),
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	e.metrics.OrderClosed(string(models.OrderCancelled), order.ClosedAt.Sub(order.OpenedAt))
	return order, nil
}

// addLine tek kalem oluşturur ve takipli ürünün stoğunu düşer. Toplamı çağıran günceller.
func (e *Engine) addLine(tx *gorm.DB, order *models.Order, line LineInput, now time.Time) (*models.OrderItem, error) {
	var mi models.MenuItem
	if err := tx.Clauses(forUpdate).First(&mi, line.MenuItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("Adisyon veya ürün bulunamadı.")
		}
		return nil, err
	}
	if mi.IsDeleted || !mi.IsAvailable {
		return nil, apperr.Conflictf("'%s' şu anda satışta değil.", mi.Name)
	}

	qty := line.Quantity
	if qty < 1 {
		qty = 1
	}
	item := models.OrderItem{
		OrderID:    order.ID,
		MenuItemID: mi.ID,
		Quantity:   qty,
		UnitPrice:  mi.Price,
		LineTotal:  models.RoundMoney(mi.Price * float64(qty)),
		Note:       strings.TrimSpace(line.Note),
		Status:     models.ItemPending,
		AddedAt:    now,
	}

	logEntry, err := stock.Consume(tx, &mi, qty, order.ID, now)
	if err != nil {
		return nil, err
	}
	if logEntry != nil {
		item.ConsumedQty = -logEntry.QuantityChange
		e.metrics.StockMovement(logEntry.MovementType)
	}
	if err := tx.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// cancelLine kalemi iptal eder, tutarı düşer, stoğu iade eder. Sadece açık adisyonda.
func (e *Engine) cancelLine(tx *gorm.DB, order *models.Order, item *models.OrderItem) error {
	if order.Status != models.OrderOpen {
		return apperr.Conflictf("Kapalı adisyondaki kalem iptal edilemez.")
	}

	paid, err := paidAmount(tx, order.ID)
	if err != nil {
		return err
	}
	newTotal := max(models.RoundMoney(order.TotalAmount-item.LineTotal), 0)
	if paid > newTotal-order.DiscountAmount+models.MoneyTolerance {
		return apperr.Conflictf("Ödemesi alınmış tutarın altına düşürecek kalem iptal edilemez.")
	}

	if err := tx.Model(item).Update("status", models.ItemCancelled).Error; err != nil {
		return err
	}
	order.TotalAmount = newTotal
	if err := tx.Model(order).Update("total_amount", newTotal).Error; err != nil {
		return err
	}

	var mi models.MenuItem
	if err := tx.Clauses(forUpdate).First(&mi, item.MenuItemID).Error; err != nil {
		return err
	}
	_, err = stock.Restock(tx, &mi, item.ConsumedQty, order.ID, fmt.Sprintf("Adisyon #%d kalem iptali", order.ID), e.now().UTC())
	return err
}

func lockOrder(tx *gorm.DB, id uint, notFound string) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(forUpdate).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("%s", notFound)
		}
		return nil, err
	}
	return &order, nil
}

func openOrderFor(tx *gorm.DB, tableID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Where("table_id = ? AND status = ?", tableID, models.OrderOpen).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// paidAmount para üstü düşülmüş tahsilat toplamı
func paidAmount(tx *gorm.DB, orderID uint) (float64, error) {
	var payments []models.Payment
	if err := tx.Where("order_id = ?", orderID).Find(&payments).Error; err != nil {
		return 0, err
	}
	var sum float64
	for _, p := range payments {
		sum += p.Collected()
	}
	return models.RoundMoney(sum), nil
}

// closeOrder adisyonu terminal duruma alır ve masayı boşaltır
func closeOrder(tx *gorm.DB, order *models.Order, status models.OrderStatus, now time.Time) error {
	order.Status = status
	order.ClosedAt = &now
	if err := tx.Model(order).Updates(map[string]any{
		"status":    status,
		"closed_at": now,
	}).Error; err != nil {
		return err
	}
	return tx.Model(&models.Table{}).
		Where("id = ? AND status = ?", order.TableID, models.TableOccupied).
		Update("status", models.TableEmpty).Error
}
