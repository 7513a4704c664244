package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	istanbul = time.FixedZone("UTC+3", 3*60*60)
	// 2026-03-10 12:00 restoran saati
	fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
)

func utc(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

type dataset struct {
	db    *gorm.DB
	svc   *Service
	cay   *models.MenuItem
	kebap *models.MenuItem
}

// seed: bugün ödenmiş bir adisyon (Masa 1), dün ödenmiş bir adisyon (Bahçe 2),
// bugün iptal edilmiş bir adisyon ve adisyon dışı bir stok çıkışı.
func seed(t *testing.T) *dataset {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewService(db, istanbul)
	svc.now = testutil.Clock(fixedNow)

	icecek := testutil.CreateCategory(t, db, "İçecek", 1)
	yemek := testutil.CreateCategory(t, db, "Yemek", 2)
	cay := testutil.CreateMenuItem(t, db, icecek, "Çay", 15, -1, 0)
	kebap := testutil.CreateMenuItem(t, db, yemek, "Kebap", 200, 8, 4)

	a := models.Order{
		TableID: 1, TableName: "Masa 1", Status: models.OrderPaid, OpenedBy: "Ali",
		TotalAmount: 230, DiscountAmount: 10,
		OpenedAt: utc(10, 7, 0), ClosedAt: ptr(utc(10, 8, 0)),
		Items: []models.OrderItem{
			{MenuItemID: cay.ID, Quantity: 2, UnitPrice: 15, LineTotal: 30, Status: models.ItemServed, AddedAt: utc(10, 7, 0)},
			{MenuItemID: kebap.ID, Quantity: 1, UnitPrice: 200, LineTotal: 200, Status: models.ItemServed, AddedAt: utc(10, 7, 0)},
			{MenuItemID: cay.ID, Quantity: 1, UnitPrice: 15, LineTotal: 15, Status: models.ItemCancelled, AddedAt: utc(10, 7, 5)},
		},
		Payments: []models.Payment{
			{Method: models.PaymentCash, Amount: 250, ChangeGiven: 30, PaidAt: utc(10, 8, 0)},
		},
	}
	b := models.Order{
		TableID: 2, TableName: "Bahçe 2", Status: models.OrderPaid, OpenedBy: "Ayşe",
		TotalAmount: 400,
		OpenedAt:    utc(9, 17, 0), ClosedAt: ptr(utc(9, 18, 0)),
		Items: []models.OrderItem{
			{MenuItemID: kebap.ID, Quantity: 2, UnitPrice: 200, LineTotal: 400, Status: models.ItemServed, AddedAt: utc(9, 17, 0)},
		},
		Payments: []models.Payment{
			{Method: models.PaymentCreditCard, Amount: 400, PaidAt: utc(9, 18, 0)},
		},
	}
	c := models.Order{
		TableID: 1, TableName: "Masa 1", Status: models.OrderCancelled, OpenedBy: "Ali",
		TotalAmount: 45,
		OpenedAt:    utc(10, 6, 0), ClosedAt: ptr(utc(10, 6, 30)),
		Items: []models.OrderItem{
			{MenuItemID: cay.ID, Quantity: 3, UnitPrice: 15, LineTotal: 45, Status: models.ItemPending, AddedAt: utc(10, 6, 0)},
		},
	}
	for _, o := range []*models.Order{&a, &b, &c} {
		require.NoError(t, db.Create(o).Error)
	}

	logs := []models.StockLog{
		{MenuItemID: kebap.ID, MovementType: models.MovementCorrection, QuantityChange: 12, PreviousStock: 0, NewStock: 12, CreatedAt: utc(8, 10, 0)},
		{MenuItemID: kebap.ID, OrderID: &b.ID, MovementType: models.MovementOut, QuantityChange: -2, PreviousStock: 12, NewStock: 10, CreatedAt: utc(9, 17, 0)},
		{MenuItemID: kebap.ID, MovementType: models.MovementOut, QuantityChange: -2, PreviousStock: 10, NewStock: 8, Note: ptr("yandı"), CreatedAt: utc(10, 5, 0)},
	}
	require.NoError(t, db.Create(&logs).Error)

	return &dataset{db: db, svc: svc, cay: cay, kebap: kebap}
}

func mustRange(t *testing.T, svc *Service, preset string) Range {
	t.Helper()
	r, err := svc.Range(preset, "", "")
	require.NoError(t, err)
	return r
}

func TestResolveRange(t *testing.T) {
	cases := []struct {
		preset, from, to string
		wantFrom         time.Time
		wantTo           time.Time
	}{
		{"", "", "", utc(9, 21, 0), utc(10, 21, 0)},
		{"today", "", "", utc(9, 21, 0), utc(10, 21, 0)},
		{"yesterday", "", "", utc(8, 21, 0), utc(9, 21, 0)},
		{"week", "", "", utc(3, 21, 0), utc(10, 21, 0)},
		{"month", "", "", time.Date(2026, 2, 28, 21, 0, 0, 0, time.UTC), utc(10, 21, 0)},
		{"custom", "2026-03-01", "2026-03-01", time.Date(2026, 2, 28, 21, 0, 0, 0, time.UTC), utc(1, 21, 0)},
	}
	for _, tc := range cases {
		r, err := ResolveRange(tc.preset, tc.from, tc.to, fixedNow, istanbul)
		require.NoError(t, err, tc.preset)
		assert.Equal(t, tc.wantFrom, r.From, tc.preset)
		assert.Equal(t, tc.wantTo, r.To, tc.preset)
	}

	r, _ := ResolveRange("week", "", "", fixedNow, istanbul)
	assert.Len(t, r.Days(), 7)
	assert.Equal(t, "04.03.2026 - 10.03.2026", r.Label())
	assert.Equal(t, 6, r.DayIndex(utc(10, 8, 0)))
	assert.Equal(t, 5, r.DayIndex(utc(9, 20, 59)))
	assert.Equal(t, 6, r.DayIndex(utc(9, 21, 0)), "yerel gece yarısı")
	assert.Equal(t, -1, r.DayIndex(utc(10, 21, 0)))

	for _, bad := range [][3]string{
		{"custom", "", "2026-03-01"},
		{"custom", "2026-03-05", "2026-03-01"},
		{"custom", "2026-03-01", "dün"},
		{"decade", "", ""},
	} {
		_, err := ResolveRange(bad[0], bad[1], bad[2], fixedNow, istanbul)
		assert.True(t, apperr.Is(err, apperr.Validation), "%v", bad)
	}
}

func TestSales(t *testing.T) {
	d := seed(t)
	ctx := context.Background()

	rep, err := d.svc.Sales(ctx, mustRange(t, d.svc, PresetToday), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.03"}, rep.Labels)
	assert.InDelta(t, 230, rep.TotalGross, 0.001)
	assert.InDelta(t, 10, rep.TotalDiscount, 0.001)
	assert.InDelta(t, 220, rep.TotalCollected, 0.001, "para üstü düşülür")
	assert.Equal(t, 1, rep.OrderCount)
	assert.InDelta(t, 220, rep.AverageTicket, 0.001)

	rep, err = d.svc.Sales(ctx, mustRange(t, d.svc, PresetToday), true)
	require.NoError(t, err)
	assert.InDelta(t, 275, rep.TotalGross, 0.001)
	assert.Equal(t, 1, rep.OrderCount)

	rep, err = d.svc.Sales(ctx, mustRange(t, d.svc, PresetWeek), false)
	require.NoError(t, err)
	require.Len(t, rep.Gross, 7)
	assert.InDelta(t, 400, rep.Gross[5], 0.001)
	assert.InDelta(t, 230, rep.Gross[6], 0.001)
	assert.InDelta(t, 400, rep.Collected[5], 0.001)
	assert.InDelta(t, 220, rep.Collected[6], 0.001)
	assert.Zero(t, rep.Gross[0])
	assert.Equal(t, 2, rep.OrderCount)
}

func TestPaymentBreakdown(t *testing.T) {
	d := seed(t)

	list, err := d.svc.PaymentBreakdown(context.Background(), mustRange(t, d.svc, PresetWeek))
	require.NoError(t, err)
	require.Len(t, list, len(models.PaymentMethods))

	assert.Equal(t, models.PaymentCash, list[0].Method)
	assert.Equal(t, "Nakit", list[0].Label)
	assert.Equal(t, 1, list[0].Count)
	assert.InDelta(t, 220, list[0].Amount, 0.001)
	assert.InDelta(t, 35.48, list[0].Percent, 0.001)

	assert.Equal(t, models.PaymentCreditCard, list[1].Method)
	assert.InDelta(t, 64.52, list[1].Percent, 0.001)
	assert.Zero(t, list[2].Amount)
}

func TestTopProductsAndCategories(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	week := mustRange(t, d.svc, PresetWeek)

	top, err := d.svc.TopProducts(ctx, week, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Kebap", top[0].Name)
	assert.Equal(t, 3, top[0].Quantity)
	assert.InDelta(t, 600, top[0].Revenue, 0.001)
	assert.Equal(t, "Çay", top[1].Name)
	assert.Equal(t, 2, top[1].Quantity, "iptal kalem ve iptal adisyon sayılmaz")

	top, err = d.svc.TopProducts(ctx, week, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	cats, err := d.svc.CategorySales(ctx, week)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Yemek", cats[0].Name)
	assert.InDelta(t, 600, cats[0].Revenue, 0.001)
	assert.InDelta(t, 95.24, cats[0].Percent, 0.001)
	assert.Equal(t, "İçecek", cats[1].Name)
	assert.InDelta(t, 4.76, cats[1].Percent, 0.001)
}

func TestHourly(t *testing.T) {
	d := seed(t)

	hours, err := d.svc.Hourly(context.Background())
	require.NoError(t, err)
	require.Len(t, hours, 24)
	assert.Equal(t, "11:00", hours[11].Label)
	assert.InDelta(t, 220, hours[11].Amount, 0.001)

	var total float64
	for _, h := range hours {
		total += h.Amount
	}
	assert.InDelta(t, 220, total, 0.001, "dünkü ödeme dahil değil")
}

func TestWaste(t *testing.T) {
	d := seed(t)

	rep, err := d.svc.Waste(context.Background(), mustRange(t, d.svc, PresetToday))
	require.NoError(t, err)
	assert.InDelta(t, 60, rep.OrderWasteTotal, 0.001)
	assert.InDelta(t, 400, rep.StockLogWasteTotal, 0.001, "adisyon kaynaklı çıkış sayılmaz")
	assert.InDelta(t, 460, rep.TotalLoss, 0.001)
	assert.Len(t, rep.Lines, 3)

	require.Len(t, rep.TopProducts, 2)
	assert.Equal(t, "Kebap", rep.TopProducts[0].Name)
	assert.Equal(t, 2, rep.TopProducts[0].Quantity)
	assert.Equal(t, "Çay", rep.TopProducts[1].Name)
	assert.Equal(t, 4, rep.TopProducts[1].Quantity)
}

func TestTableReport(t *testing.T) {
	d := seed(t)

	stats, err := d.svc.TableReport(context.Background(), mustRange(t, d.svc, PresetWeek))
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "Bahçe 2", stats[0].TableName)
	assert.InDelta(t, 400, stats[0].Revenue, 0.001)
	assert.Equal(t, "Masa 1", stats[1].TableName)
	assert.Equal(t, 1, stats[1].OrderCount, "iptal adisyon sayılmaz")
	assert.InDelta(t, 220, stats[1].Revenue, 0.001)
	assert.InDelta(t, 60, stats[1].AverageMinutes, 0.001)
}

func TestStockTrend(t *testing.T) {
	d := seed(t)
	ctx := context.Background()

	trend, err := d.svc.StockTrend(ctx, d.kebap.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"08.03", "09.03", "10.03"}, trend.Labels)
	assert.Equal(t, []int{12, 10, 8}, trend.Stocks)

	trend, err = d.svc.StockTrend(ctx, d.kebap.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, trend.Stocks)

	trend, err = d.svc.StockTrend(ctx, d.cay.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, trend.Stocks, "hareketsiz ürün güncel stoğu gösterir")

	_, err = d.svc.StockTrend(ctx, 999, 7)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestExportCSV(t *testing.T) {
	d := seed(t)
	ctx := context.Background()
	today := mustRange(t, d.svc, PresetToday)

	file, err := d.svc.Export(ctx, ExportSales, FormatCSV, today)
	require.NoError(t, err)
	assert.Equal(t, "sales-raporu-20260310-1200.csv", file.Name)
	assert.True(t, strings.HasPrefix(string(file.Data), "\uFEFF"))
	body := string(file.Data)
	assert.Contains(t, body, "Tarih;Brüt Ciro;Tahsilat\n")
	assert.Contains(t, body, "10.03;230.00;220.00\n")

	file, err = d.svc.Export(ctx, ExportStock, FormatCSV, today)
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), "SKU-0002;Kebap;Yemek;8;4;")

	_, err = d.svc.Export(ctx, "profit", FormatCSV, today)
	assert.True(t, apperr.Is(err, apperr.Validation))
	_, err = d.svc.Export(ctx, ExportSales, "pdf", today)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestExportXLSX(t *testing.T) {
	d := seed(t)

	file, err := d.svc.Export(context.Background(), ExportWaste, FormatXLSX, mustRange(t, d.svc, PresetToday))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("İptal ve Fire")
	require.NoError(t, err)
	require.Len(t, rows, 5, "başlık + 3 satır + toplam")
	assert.Equal(t, []string{"Tarih", "Kaynak", "Ürün", "Adet", "Kayıp", "Not"}, rows[0])
	assert.Equal(t, "Toplam", rows[4][0])
}
