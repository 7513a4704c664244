package orders

import (
	"context"
	"testing"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	garson  = auth.Principal{UserID: 2, Username: "ali", FullName: "Ali Garson", Role: models.RoleGarson}
	kasiyer = auth.Principal{UserID: 3, Username: "ayse", FullName: "Ayşe Kasiyer", Role: models.RoleKasiyer}
	admin   = auth.Principal{UserID: 1, Username: "admin", FullName: "Yönetici", Role: models.RoleAdmin}

	fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	db     *gorm.DB
	engine *Engine
	table  *models.Table
	cay    *models.MenuItem // takipsiz, 15.00
	tost   *models.MenuItem // stok 10, 45.50
	kola   *models.MenuItem // stok 2, 30.00
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	cat := testutil.CreateCategory(t, db, "İçecekler", 1)

	e := NewEngine(db, nil)
	e.now = testutil.Clock(fixedNow)

	return &fixture{
		db:     db,
		engine: e,
		table:  testutil.CreateTable(t, db, "Masa 1", 4),
		cay:    testutil.CreateMenuItem(t, db, cat, "Çay", 15, -1, 0),
		tost:   testutil.CreateMenuItem(t, db, cat, "Tost", 45.5, 10, 3),
		kola:   testutil.CreateMenuItem(t, db, cat, "Kola", 30, 2, 0),
	}
}

func (f *fixture) open(t *testing.T, lines ...LineInput) *models.Order {
	t.Helper()
	res, err := f.engine.OpenOrder(context.Background(), garson, OpenOrderInput{TableID: f.table.ID, Lines: lines})
	require.NoError(t, err)
	require.False(t, res.Redirected)
	return res.Order
}

// assertTableConsistent masa dolu ise tam bir açık adisyon, değilse hiç yok
func assertTableConsistent(t *testing.T, db *gorm.DB, tableID uint) {
	t.Helper()
	table := testutil.Reload[models.Table](t, db, tableID)
	var open int64
	require.NoError(t, db.Model(&models.Order{}).Where("table_id = ? AND status = ?", tableID, models.OrderOpen).Count(&open).Error)
	if table.Status == models.TableOccupied {
		assert.EqualValues(t, 1, open)
	} else {
		assert.EqualValues(t, 0, open)
	}
}

func TestOpenOrderTotalsAndTable(t *testing.T) {
	f := newFixture(t)

	name, phone, guests := "Ahmet", "555", 2
	rt := fixedNow.Add(time.Hour)
	require.NoError(t, f.db.Model(f.table).Updates(map[string]any{
		"status":                  models.TableReserved,
		"reservation_name":        name,
		"reservation_phone":       phone,
		"reservation_guest_count": guests,
		"reservation_time":        rt,
	}).Error)

	order := f.open(t,
		LineInput{MenuItemID: f.cay.ID, Quantity: 2},
		LineInput{MenuItemID: f.tost.ID, Quantity: 1, Note: "bol kaşarlı"},
		LineInput{MenuItemID: f.cay.ID, Quantity: 0},
	)

	assert.Equal(t, "Ali Garson", order.OpenedBy)
	assert.Equal(t, "Masa 1", order.TableName)
	assert.InDelta(t, 90.5, order.TotalAmount, 0.001)
	require.Len(t, order.Items, 3)
	assert.Equal(t, 1, order.Items[2].Quantity, "adet en az 1")

	var sum float64
	for _, it := range order.Items {
		sum += it.LineTotal
		assert.Equal(t, models.ItemPending, it.Status)
	}
	assert.InDelta(t, order.TotalAmount, sum, 0.001)

	table := testutil.Reload[models.Table](t, f.db, f.table.ID)
	assert.Equal(t, models.TableOccupied, table.Status)
	assert.Nil(t, table.ReservationName)
	assert.Nil(t, table.ReservationTime)

	tost := testutil.Reload[models.MenuItem](t, f.db, f.tost.ID)
	assert.Equal(t, 9, tost.StockQuantity)

	var logs []models.StockLog
	require.NoError(t, f.db.Find(&logs).Error)
	require.Len(t, logs, 1, "takipsiz ürün için log yazılmaz")
	assert.Equal(t, models.MovementOut, logs[0].MovementType)
	assert.Equal(t, -1, logs[0].QuantityChange)
	require.NotNil(t, logs[0].OrderID)
	assert.Equal(t, order.ID, *logs[0].OrderID)

	assertTableConsistent(t, f.db, f.table.ID)
}

func TestOpenOrderRedirectsToExisting(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, LineInput{MenuItemID: f.cay.ID, Quantity: 1})

	res, err := f.engine.OpenOrder(context.Background(), kasiyer, OpenOrderInput{
		TableID: f.table.ID,
		Lines:   []LineInput{{MenuItemID: f.tost.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, res.Redirected)
	assert.Equal(t, first.ID, res.Order.ID)

	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 10, testutil.Reload[models.MenuItem](t, f.db, f.tost.ID).StockQuantity, "yönlendirmede stok düşmez")
}

func TestOpenOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.OpenOrder(ctx, garson, OpenOrderInput{TableID: f.table.ID})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.engine.OpenOrder(ctx, auth.Principal{}, OpenOrderInput{TableID: f.table.ID, Lines: []LineInput{{MenuItemID: f.cay.ID}}})
	assert.True(t, apperr.Is(err, apperr.Validation), "açan kişi boş")

	_, err = f.engine.OpenOrder(ctx, garson, OpenOrderInput{TableID: 999, Lines: []LineInput{{MenuItemID: f.cay.ID}}})
	assert.True(t, apperr.Is(err, apperr.NotFound))

	require.NoError(t, f.db.Model(f.cay).Update("is_available", false).Error)
	_, err = f.engine.OpenOrder(ctx, garson, OpenOrderInput{
		TableID: f.table.ID,
		Lines:   []LineInput{{MenuItemID: f.tost.ID, Quantity: 1}, {MenuItemID: f.cay.ID, Quantity: 1}},
	})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	// geri alındı
	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
	assert.Equal(t, 10, testutil.Reload[models.MenuItem](t, f.db, f.tost.ID).StockQuantity)
	assert.Equal(t, models.TableEmpty, testutil.Reload[models.Table](t, f.db, f.table.ID).Status)
}

func TestStockClampsAtZero(t *testing.T) {
	f := newFixture(t)
	order := f.open(t, LineInput{MenuItemID: f.kola.ID, Quantity: 5})

	assert.InDelta(t, 150.0, order.TotalAmount, 0.001, "stok yetmese de satış kaydedilir")

	kola := testutil.Reload[models.MenuItem](t, f.db, f.kola.ID)
	assert.Equal(t, 0, kola.StockQuantity)
	assert.False(t, kola.IsAvailable)

	var log models.StockLog
	require.NoError(t, f.db.Where("menu_item_id = ?", f.kola.ID).First(&log).Error)
	assert.Equal(t, -2, log.QuantityChange)
	assert.Equal(t, 0, log.NewStock)

	_, err := f.engine.AddItem(context.Background(), garson, order.ID, LineInput{MenuItemID: f.kola.ID, Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.Conflict), "satışta olmayan ürün eklenemez")
}

// stockNet adisyonun bir ürün için stok hareketlerinin toplamı
func stockNet(t *testing.T, db *gorm.DB, orderID, menuItemID uint) int {
	t.Helper()
	var logs []models.StockLog
	require.NoError(t, db.Where("order_id = ? AND menu_item_id = ?", orderID, menuItemID).Find(&logs).Error)
	net := 0
	for _, l := range logs {
		net += l.QuantityChange
	}
	return net
}

func TestCancelClampedLineRestoresConsumedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.kola.ID, Quantity: 5}, LineInput{MenuItemID: f.cay.ID, Quantity: 1})
	line := order.Items[0]
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, 2, line.ConsumedQty)
	assert.Equal(t, 0, order.Items[1].ConsumedQty, "takipsiz ürün stok düşmez")

	_, err := f.engine.UpdateItemStatus(ctx, garson, line.ID, models.ItemCancelled)
	require.NoError(t, err)

	kola := testutil.Reload[models.MenuItem](t, f.db, f.kola.ID)
	assert.Equal(t, 2, kola.StockQuantity)
	assert.Zero(t, stockNet(t, f.db, order.ID, f.kola.ID))

	var in models.StockLog
	require.NoError(t, f.db.Where("order_id = ? AND movement_type = ?", order.ID, models.MovementIn).First(&in).Error)
	assert.Equal(t, 2, in.QuantityChange)
}

func TestCancelOrderClampedRestoresConsumedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.kola.ID, Quantity: 5}, LineInput{MenuItemID: f.tost.ID, Quantity: 12})

	_, err := f.engine.Cancel(ctx, admin, order.ID, "")
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.Reload[models.MenuItem](t, f.db, f.kola.ID).StockQuantity)
	assert.Equal(t, 10, testutil.Reload[models.MenuItem](t, f.db, f.tost.ID).StockQuantity)
	assert.Zero(t, stockNet(t, f.db, order.ID, f.kola.ID))
	assert.Zero(t, stockNet(t, f.db, order.ID, f.tost.ID))
}

func TestAddItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.cay.ID, Quantity: 1})

	// fiyat değişikliği sonraki kalemlere yansır
	require.NoError(t, f.db.Model(f.cay).Update("price", 17.5).Error)
	item, err := f.engine.AddItem(ctx, garson, order.ID, LineInput{MenuItemID: f.cay.ID, Quantity: 2})
	require.NoError(t, err)
	assert.InDelta(t, 17.5, item.UnitPrice, 0.001)
	assert.InDelta(t, 35.0, item.LineTotal, 0.001)

	got, err := f.engine.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, got.TotalAmount, 0.001)
	assert.InDelta(t, 15.0, got.Items[0].UnitPrice, 0.001)

	_, err = f.engine.AddItem(ctx, garson, 999, LineInput{MenuItemID: f.cay.ID})
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.Equal(t, "Adisyon veya ürün bulunamadı.", err.Error())

	_, err = f.engine.Cancel(ctx, admin, order.ID, "")
	require.NoError(t, err)
	_, err = f.engine.AddItem(ctx, garson, order.ID, LineInput{MenuItemID: f.cay.ID})
	require.Error(t, err)
	assert.Equal(t, "Kapalı adisyona ürün eklenemez.", err.Error())
}

func TestAddPaymentSplitAndClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.cay.ID, Quantity: 4}, LineInput{MenuItemID: f.kola.ID, Quantity: 1})
	require.InDelta(t, 90.0, order.TotalAmount, 0.001)

	_, err := f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{Amount: 0})
	assert.Equal(t, "Ödeme tutarı 0'dan büyük olmalıdır.", err.Error())
	_, err = f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{Amount: 10, Discount: -1})
	assert.Equal(t, "İndirim tutarı negatif olamaz.", err.Error())

	res, err := f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{PayerName: "Ahmet", Method: "card", Amount: 50, Discount: 10})
	require.NoError(t, err)
	assert.False(t, res.Closed)
	assert.InDelta(t, 80.0, res.NetTotal, 0.001)
	assert.InDelta(t, 30.0, res.Remaining, 0.001)
	assert.Equal(t, models.PaymentCreditCard, res.Payment.Method)

	_, err = f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{Amount: 30.5, Discount: 10})
	require.Error(t, err)
	assert.Equal(t, "Ödeme tutarı kalan tutarı (₺30.00) aşamaz.", err.Error())

	res, err = f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{Method: "cash", Amount: 30, Discount: 10})
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.Zero(t, res.Remaining)

	got := testutil.Reload[models.Order](t, f.db, order.ID)
	assert.Equal(t, models.OrderPaid, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.Equal(t, models.TableEmpty, testutil.Reload[models.Table](t, f.db, f.table.ID).Status)

	_, err = f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{Amount: 5})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
	assert.Equal(t, "Bu adisyon zaten kapatılmış.", err.Error())

	var payments int64
	f.db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&payments)
	assert.EqualValues(t, 2, payments)
	assertTableConsistent(t, f.db, f.table.ID)
}

func TestCloseComputesChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.tost.ID, Quantity: 1}, LineInput{MenuItemID: f.cay.ID, Quantity: 2})
	require.InDelta(t, 75.5, order.TotalAmount, 0.001)

	_, err := f.engine.Close(ctx, kasiyer, order.ID, "cash", 70)
	require.Error(t, err)
	assert.Equal(t, "Ödeme tutarı toplam tutardan az olamaz.", err.Error())

	res, err := f.engine.Close(ctx, kasiyer, order.ID, "cash", 100)
	require.NoError(t, err)
	assert.InDelta(t, 24.5, res.Change, 0.001)
	assert.InDelta(t, 75.5, res.Payment.Collected(), 0.001)
	assert.Equal(t, models.OrderPaid, res.Order.Status)

	_, err = f.engine.Close(ctx, kasiyer, order.ID, "cash", 100)
	require.Error(t, err)
	assert.Equal(t, "Bu adisyon zaten kapatılmış.", err.Error())

	// masa boşaldı, yeni adisyon açılabilir
	second := f.open(t, LineInput{MenuItemID: f.cay.ID, Quantity: 1})
	assert.NotEqual(t, order.ID, second.ID)
	assertTableConsistent(t, f.db, f.table.ID)
}

func TestCloseAfterPartialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.cay.ID, Quantity: 4})

	_, err := f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{Amount: 20})
	require.NoError(t, err)

	res, err := f.engine.Close(ctx, kasiyer, order.ID, "debit_card", 40)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Change, 0.001)
	assert.Equal(t, models.PaymentDebitCard, res.Payment.Method)
}

func TestCancelItemReversesLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.tost.ID, Quantity: 2}, LineInput{MenuItemID: f.cay.ID, Quantity: 1})
	tostLine := order.Items[0]

	_, err := f.engine.UpdateItemStatus(ctx, garson, tostLine.ID, "burnt")
	assert.True(t, apperr.Is(err, apperr.Validation))

	item, err := f.engine.UpdateItemStatus(ctx, garson, tostLine.ID, models.ItemPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.ItemPreparing, item.Status)

	item, err = f.engine.UpdateItemStatus(ctx, garson, tostLine.ID, models.ItemCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCancelled, item.Status)

	got := testutil.Reload[models.Order](t, f.db, order.ID)
	assert.InDelta(t, 15.0, got.TotalAmount, 0.001)
	assert.Equal(t, 10, testutil.Reload[models.MenuItem](t, f.db, f.tost.ID).StockQuantity)

	var in models.StockLog
	require.NoError(t, f.db.Where("movement_type = ?", models.MovementIn).First(&in).Error)
	assert.Equal(t, 2, in.QuantityChange)

	_, err = f.engine.UpdateItemStatus(ctx, garson, tostLine.ID, models.ItemServed)
	assert.True(t, apperr.Is(err, apperr.Conflict), "iptal terminal")
}

func TestCancelItemBelowPaidRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.tost.ID, Quantity: 1}, LineInput{MenuItemID: f.cay.ID, Quantity: 1})

	_, err := f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{Amount: 40})
	require.NoError(t, err)

	_, err = f.engine.UpdateItemStatus(ctx, garson, order.Items[0].ID, models.ItemCancelled)
	assert.True(t, apperr.Is(err, apperr.Conflict))
	assert.InDelta(t, 60.5, testutil.Reload[models.Order](t, f.db, order.ID).TotalAmount, 0.001)
}

func TestCancelOrderRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.open(t, LineInput{MenuItemID: f.tost.ID, Quantity: 3}, LineInput{MenuItemID: f.kola.ID, Quantity: 1})

	_, err := f.engine.UpdateItemStatus(ctx, garson, order.Items[1].ID, models.ItemCancelled)
	require.NoError(t, err)
	assert.Equal(t, 2, testutil.Reload[models.MenuItem](t, f.db, f.kola.ID).StockQuantity)

	cancelled, err := f.engine.Cancel(ctx, admin, order.ID, "müşteri vazgeçti")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Contains(t, cancelled.Note, "müşteri vazgeçti")

	assert.Equal(t, 10, testutil.Reload[models.MenuItem](t, f.db, f.tost.ID).StockQuantity)
	assert.Equal(t, 2, testutil.Reload[models.MenuItem](t, f.db, f.kola.ID).StockQuantity, "iptal kalem iki kez iade edilmez")
	assert.Equal(t, models.TableEmpty, testutil.Reload[models.Table](t, f.db, f.table.ID).Status)

	_, err = f.engine.Cancel(ctx, admin, order.ID, "")
	assert.True(t, apperr.Is(err, apperr.Conflict))
	assertTableConsistent(t, f.db, f.table.ID)
}

func TestReadSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	none, err := f.engine.OpenOrderForTable(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	order := f.open(t, LineInput{MenuItemID: f.cay.ID, Quantity: 2})
	found, err := f.engine.OpenOrderForTable(ctx, f.table.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, order.ID, found.ID)
	require.Len(t, found.Items, 1)
	require.NotNil(t, found.Items[0].MenuItem)
	assert.Equal(t, "Çay", found.Items[0].MenuItem.Name)

	active, err := f.engine.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = f.engine.AddPayment(ctx, kasiyer, order.ID, PaymentInput{Amount: 10})
	require.NoError(t, err)
	got, err := f.engine.Get(ctx, order.ID)
	require.NoError(t, err)
	sum := Summarize(got)
	assert.InDelta(t, 10.0, sum.Paid, 0.001)
	assert.InDelta(t, 20.0, sum.Remaining, 0.001)

	_, err = f.engine.Close(ctx, kasiyer, order.ID, "cash", 20)
	require.NoError(t, err)

	active, err = f.engine.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	past, err := f.engine.ListPast(ctx)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Len(t, past[0].Payments, 2)

	_, err = f.engine.Get(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
