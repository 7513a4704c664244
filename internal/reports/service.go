// Package reports adisyon, ödeme ve stok kayıtları üzerinden salt okunur raporlar üretir.
// Toplamalar Go tarafında yapılır; sorgular postgres, mysql ve sqlite'ta aynı çalışır.
package reports

import (
	"context"
	"errors"
	"sort"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/models"

	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewService(db *gorm.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, loc: loc, now: time.Now}
}

func (s *Service) Range(preset, from, to string) (Range, error) {
	return ResolveRange(preset, from, to, s.now(), s.loc)
}

// closedOrders aralıkta kapanan adisyonlar, kalemleriyle
func (s *Service) closedOrders(ctx context.Context, r Range, includeCancelled bool) ([]models.Order, error) {
	statuses := []models.OrderStatus{models.OrderPaid}
	if includeCancelled {
		statuses = append(statuses, models.OrderCancelled)
	}
	var list []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.MenuItem").
		Where("status IN ? AND closed_at >= ? AND closed_at < ?", statuses, r.From, r.To).
		Order("closed_at ASC").
		Find(&list).Error
	return list, err
}

func (s *Service) payments(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	var list []models.Payment
	err := s.db.WithContext(ctx).
		Where("paid_at >= ? AND paid_at < ?", from, to).
		Order("paid_at ASC").
		Find(&list).Error
	return list, err
}

type SalesReport struct {
	Range          string    `json:"range"`
	Labels         []string  `json:"labels"`
	Gross          []float64 `json:"grossData"`
	Collected      []float64 `json:"collectedData"`
	TotalGross     float64   `json:"totalGross"`
	TotalDiscount  float64   `json:"totalDiscount"`
	TotalCollected float64   `json:"totalCollected"`
	OrderCount     int       `json:"orderCount"`
	AverageTicket  float64   `json:"averageTicket"`
}

// Sales günlük brüt ciro (kapanan adisyon toplamları) ve tahsilat serisi
func (s *Service) Sales(ctx context.Context, r Range, includeCancelled bool) (*SalesReport, error) {
	orders, err := s.closedOrders(ctx, r, includeCancelled)
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	pays, err := s.payments(ctx, r.From, r.To)
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	days := r.Days()
	rep := &SalesReport{
		Range:     r.Label(),
		Labels:    make([]string, len(days)),
		Gross:     make([]float64, len(days)),
		Collected: make([]float64, len(days)),
	}
	for i, d := range days {
		rep.Labels[i] = d.Format("02.01")
	}

	for _, o := range orders {
		if o.ClosedAt == nil {
			continue
		}
		if i := r.DayIndex(*o.ClosedAt); i >= 0 {
			rep.Gross[i] += o.TotalAmount
		}
		rep.TotalGross += o.TotalAmount
		rep.TotalDiscount += o.DiscountAmount
		if o.Status == models.OrderPaid {
			rep.OrderCount++
		}
	}
	for _, p := range pays {
		if i := r.DayIndex(p.PaidAt); i >= 0 {
			rep.Collected[i] += p.Collected()
		}
		rep.TotalCollected += p.Collected()
	}

	for i := range days {
		rep.Gross[i] = models.RoundMoney(rep.Gross[i])
		rep.Collected[i] = models.RoundMoney(rep.Collected[i])
	}
	rep.TotalGross = models.RoundMoney(rep.TotalGross)
	rep.TotalDiscount = models.RoundMoney(rep.TotalDiscount)
	rep.TotalCollected = models.RoundMoney(rep.TotalCollected)
	if rep.OrderCount > 0 {
		rep.AverageTicket = models.RoundMoney(rep.TotalCollected / float64(rep.OrderCount))
	}
	return rep, nil
}

type MethodShare struct {
	Method  models.PaymentMethod `json:"method"`
	Label   string               `json:"label"`
	Count   int                  `json:"count"`
	Amount  float64              `json:"amount"`
	Percent float64              `json:"percent"`
}

// PaymentBreakdown ödeme yöntemlerine göre tahsilat; sıra sabittir.
func (s *Service) PaymentBreakdown(ctx context.Context, r Range) ([]MethodShare, error) {
	pays, err := s.payments(ctx, r.From, r.To)
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	byMethod := make(map[models.PaymentMethod]*MethodShare, len(models.PaymentMethods))
	out := make([]MethodShare, len(models.PaymentMethods))
	for i, m := range models.PaymentMethods {
		out[i] = MethodShare{Method: m, Label: m.Label()}
		byMethod[m] = &out[i]
	}

	var total float64
	for _, p := range pays {
		share, ok := byMethod[p.Method]
		if !ok {
			share = byMethod[models.PaymentOther]
		}
		share.Count++
		share.Amount += p.Collected()
		total += p.Collected()
	}
	for i := range out {
		out[i].Amount = models.RoundMoney(out[i].Amount)
		out[i].Percent = percent(out[i].Amount, total)
	}
	return out, nil
}

type ProductSales struct {
	MenuItemID uint    `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

// TopProducts ödenmiş adisyonlardaki iptal edilmemiş kalemler, adede göre
func (s *Service) TopProducts(ctx context.Context, r Range, limit int) ([]ProductSales, error) {
	orders, err := s.closedOrders(ctx, r, false)
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	agg := map[uint]*ProductSales{}
	for _, o := range orders {
		for _, it := range o.Items {
			if it.Status == models.ItemCancelled {
				continue
			}
			ps, ok := agg[it.MenuItemID]
			if !ok {
				ps = &ProductSales{MenuItemID: it.MenuItemID, Name: itemName(it)}
				agg[it.MenuItemID] = ps
			}
			ps.Quantity += it.Quantity
			ps.Revenue += it.LineTotal
		}
	}

	out := make([]ProductSales, 0, len(agg))
	for _, ps := range agg {
		ps.Revenue = models.RoundMoney(ps.Revenue)
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type CategoryShare struct {
	CategoryID uint    `json:"categoryId"`
	Name       string  `json:"name"`
	Revenue    float64 `json:"revenue"`
	Percent    float64 `json:"percent"`
}

func (s *Service) CategorySales(ctx context.Context, r Range) ([]CategoryShare, error) {
	orders, err := s.closedOrders(ctx, r, false)
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	var cats []models.Category
	if err := s.db.WithContext(ctx).Find(&cats).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	names := make(map[uint]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	agg := map[uint]float64{}
	var total float64
	for _, o := range orders {
		for _, it := range o.Items {
			if it.Status == models.ItemCancelled || it.MenuItem == nil {
				continue
			}
			agg[it.MenuItem.CategoryID] += it.LineTotal
			total += it.LineTotal
		}
	}

	out := make([]CategoryShare, 0, len(agg))
	for id, rev := range agg {
		name, ok := names[id]
		if !ok {
			name = "Diğer"
		}
		rev = models.RoundMoney(rev)
		out = append(out, CategoryShare{CategoryID: id, Name: name, Revenue: rev, Percent: percent(rev, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type HourBucket struct {
	Hour   int     `json:"hour"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Hourly bugünün saatlik tahsilatı, 0-23 her saat için bir kova
func (s *Service) Hourly(ctx context.Context) ([]HourBucket, error) {
	today := midnight(s.now(), s.loc)
	pays, err := s.payments(ctx, today.UTC(), today.AddDate(0, 0, 1).UTC())
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	out := make([]HourBucket, 24)
	for h := range out {
		out[h] = HourBucket{Hour: h, Label: time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04")}
	}
	for _, p := range pays {
		h := p.PaidAt.In(s.loc).Hour()
		out[h].Amount += p.Collected()
	}
	for h := range out {
		out[h].Amount = models.RoundMoney(out[h].Amount)
	}
	return out, nil
}

const (
	WasteSourceOrder = "order"
	WasteSourceStock = "stock"
)

type WasteLine struct {
	Source     string    `json:"source"`
	MenuItemID uint      `json:"menuItemId"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	Loss       float64   `json:"loss"`
	Note       string    `json:"note"`
	At         time.Time `json:"at"`
}

type ProductLoss struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Loss     float64 `json:"loss"`
}

type WasteReport struct {
	Range              string        `json:"range"`
	Lines              []WasteLine   `json:"lines"`
	OrderWasteTotal    float64       `json:"orderWasteTotal"`
	StockLogWasteTotal float64       `json:"stockLogWasteTotal"`
	TotalLoss          float64       `json:"totalLoss"`
	TopProducts        []ProductLoss `json:"topProducts"`
}

// Waste iptal edilen kalemler (kayıp = satır tutarı) ve adisyon dışı stok çıkışları
// (kayıp = adet x güncel fiyat). Kalemler adisyonun açıldığı zamana göre filtrelenir.
func (s *Service) Waste(ctx context.Context, r Range) (*WasteReport, error) {
	rep := &WasteReport{Range: r.Label(), Lines: []WasteLine{}}

	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.MenuItem").
		Where("opened_at >= ? AND opened_at < ?", r.From, r.To).
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	for _, o := range orders {
		for _, it := range o.Items {
			if it.Status != models.ItemCancelled && o.Status != models.OrderCancelled {
				continue
			}
			note := "Kalem iptali"
			if o.Status == models.OrderCancelled {
				note = "Adisyon iptali"
			}
			rep.Lines = append(rep.Lines, WasteLine{
				Source:     WasteSourceOrder,
				MenuItemID: it.MenuItemID,
				Name:       itemName(it),
				Quantity:   it.Quantity,
				Loss:       it.LineTotal,
				Note:       note,
				At:         it.AddedAt,
			})
			rep.OrderWasteTotal += it.LineTotal
		}
	}

	var logs []models.StockLog
	err = s.db.WithContext(ctx).
		Preload("MenuItem").
		Where("movement_type = ? AND order_id IS NULL AND created_at >= ? AND created_at < ?", models.MovementOut, r.From, r.To).
		Find(&logs).Error
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	for _, l := range logs {
		qty := -l.QuantityChange
		var price float64
		name := "Silinmiş ürün"
		if l.MenuItem != nil {
			price = l.MenuItem.Price
			name = l.MenuItem.Name
		}
		loss := models.RoundMoney(float64(qty) * price)
		note := ""
		if l.Note != nil {
			note = *l.Note
		}
		rep.Lines = append(rep.Lines, WasteLine{
			Source:     WasteSourceStock,
			MenuItemID: l.MenuItemID,
			Name:       name,
			Quantity:   qty,
			Loss:       loss,
			Note:       note,
			At:         l.CreatedAt,
		})
		rep.StockLogWasteTotal += loss
	}

	sort.SliceStable(rep.Lines, func(i, j int) bool { return rep.Lines[i].At.After(rep.Lines[j].At) })

	agg := map[string]*ProductLoss{}
	for _, l := range rep.Lines {
		pl, ok := agg[l.Name]
		if !ok {
			pl = &ProductLoss{Name: l.Name}
			agg[l.Name] = pl
		}
		pl.Quantity += l.Quantity
		pl.Loss += l.Loss
	}
	rep.TopProducts = make([]ProductLoss, 0, len(agg))
	for _, pl := range agg {
		pl.Loss = models.RoundMoney(pl.Loss)
		rep.TopProducts = append(rep.TopProducts, *pl)
	}
	sort.Slice(rep.TopProducts, func(i, j int) bool {
		if rep.TopProducts[i].Loss != rep.TopProducts[j].Loss {
			return rep.TopProducts[i].Loss > rep.TopProducts[j].Loss
		}
		return rep.TopProducts[i].Name < rep.TopProducts[j].Name
	})
	if len(rep.TopProducts) > 10 {
		rep.TopProducts = rep.TopProducts[:10]
	}

	rep.OrderWasteTotal = models.RoundMoney(rep.OrderWasteTotal)
	rep.StockLogWasteTotal = models.RoundMoney(rep.StockLogWasteTotal)
	rep.TotalLoss = models.RoundMoney(rep.OrderWasteTotal + rep.StockLogWasteTotal)
	return rep, nil
}

type TableStats struct {
	TableName      string  `json:"tableName"`
	OrderCount     int     `json:"orderCount"`
	Revenue        float64 `json:"revenue"`
	AverageTicket  float64 `json:"averageTicket"`
	AverageMinutes float64 `json:"averageMinutes"`
}

// TableReport masa bazında ödenmiş adisyonlar. Silinen masalar adı üzerinden listelenir.
func (s *Service) TableReport(ctx context.Context, r Range) ([]TableStats, error) {
	orders, err := s.closedOrders(ctx, r, false)
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	type acc struct {
		stats   TableStats
		minutes float64
	}
	agg := map[string]*acc{}
	for _, o := range orders {
		a, ok := agg[o.TableName]
		if !ok {
			a = &acc{stats: TableStats{TableName: o.TableName}}
			agg[o.TableName] = a
		}
		a.stats.OrderCount++
		a.stats.Revenue += o.TotalAmount - o.DiscountAmount
		if o.ClosedAt != nil {
			a.minutes += o.ClosedAt.Sub(o.OpenedAt).Minutes()
		}
	}

	out := make([]TableStats, 0, len(agg))
	for _, a := range agg {
		st := a.stats
		st.Revenue = models.RoundMoney(st.Revenue)
		st.AverageTicket = models.RoundMoney(st.Revenue / float64(st.OrderCount))
		st.AverageMinutes = models.RoundMoney(a.minutes / float64(st.OrderCount))
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].TableName < out[j].TableName
	})
	return out, nil
}

type StockTrend struct {
	MenuItemID uint     `json:"menuItemId"`
	Name       string   `json:"name"`
	Labels     []string `json:"labels"`
	Stocks     []int    `json:"stocks"`
}

// StockTrend son n günün gün sonu stok değerleri. Hareket olmayan gün önceki değeri taşır.
func (s *Service) StockTrend(ctx context.Context, menuItemID uint, days int) (*StockTrend, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	var item models.MenuItem
	if err := s.db.WithContext(ctx).First(&item, menuItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("Ürün bulunamadı.")
		}
		return nil, apperr.Wrap(err, "")
	}

	today := midnight(s.now(), s.loc)
	start := today.AddDate(0, 0, -(days - 1))
	r := Range{From: start.UTC(), To: today.AddDate(0, 0, 1).UTC(), Loc: s.loc}

	var logs []models.StockLog
	if err := s.db.WithContext(ctx).
		Where("menu_item_id = ? AND created_at >= ? AND created_at < ?", item.ID, r.From, r.To).
		Order("created_at ASC, id ASC").
		Find(&logs).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}

	// aralık öncesi son değer
	current := item.StockQuantity
	var before models.StockLog
	err := s.db.WithContext(ctx).
		Where("menu_item_id = ? AND created_at < ?", item.ID, r.From).
		Order("created_at DESC, id DESC").
		First(&before).Error
	switch {
	case err == nil:
		current = before.NewStock
	case errors.Is(err, gorm.ErrRecordNotFound):
		if len(logs) > 0 {
			current = logs[0].PreviousStock
		}
	default:
		return nil, apperr.Wrap(err, "")
	}

	dayList := r.Days()
	out := &StockTrend{
		MenuItemID: item.ID,
		Name:       item.Name,
		Labels:     make([]string, len(dayList)),
		Stocks:     make([]int, len(dayList)),
	}
	li := 0
	for i, d := range dayList {
		end := d.AddDate(0, 0, 1)
		for li < len(logs) && logs[li].CreatedAt.Before(end) {
			current = logs[li].NewStock
			li++
		}
		out.Labels[i] = d.Format("02.01")
		out.Stocks[i] = current
	}
	return out, nil
}

func itemName(it models.OrderItem) string {
	if it.MenuItem != nil {
		return it.MenuItem.Name
	}
	return "Silinmiş ürün"
}

func percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return models.RoundMoney(part / total * 100)
}
