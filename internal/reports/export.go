package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/stock"

	"github.com/xuri/excelize/v2"
)

const (
	ExportSales = "sales"
	ExportWaste = "waste"
	ExportTable = "table"
	ExportStock = "stock"

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// utf8BOM Excel'in Türkçe karakterleri doğru açması için
const utf8BOM = "\uFEFF"

type sheet struct {
	title  string
	header []string
	rows   [][]any
}

type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Export raporu csv ya da xlsx olarak üretir.
func (s *Service) Export(ctx context.Context, kind, format string, r Range) (*ExportFile, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, apperr.Validationf("Geçersiz dosya formatı.")
	}

	var (
		sh  *sheet
		err error
	)
	switch kind {
	case ExportSales:
		sh, err = s.salesSheet(ctx, r)
	case ExportWaste:
		sh, err = s.wasteSheet(ctx, r)
	case ExportTable:
		sh, err = s.tableSheet(ctx, r)
	case ExportStock:
		sh, err = s.stockSheet(ctx)
	default:
		return nil, apperr.Validationf("Geçersiz rapor türü.")
	}
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s-raporu-%s.%s", kind, s.now().In(s.loc).Format("20060102-1504"), format)
	if format == FormatXLSX {
		data, err := writeXLSX(sh)
		if err != nil {
			return nil, apperr.Wrap(err, "Excel dosyası oluşturulamadı.")
		}
		return &ExportFile{
			Name:        name,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	}

	data, err := writeCSV(sh)
	if err != nil {
		return nil, apperr.Wrap(err, "CSV dosyası oluşturulamadı.")
	}
	return &ExportFile{Name: name, ContentType: "text/csv; charset=utf-8", Data: data}, nil
}

func (s *Service) salesSheet(ctx context.Context, r Range) (*sheet, error) {
	rep, err := s.Sales(ctx, r, false)
	if err != nil {
		return nil, err
	}
	sh := &sheet{title: "Satış", header: []string{"Tarih", "Brüt Ciro", "Tahsilat"}}
	for i, label := range rep.Labels {
		sh.rows = append(sh.rows, []any{label, rep.Gross[i], rep.Collected[i]})
	}
	sh.rows = append(sh.rows, []any{"Toplam", rep.TotalGross, rep.TotalCollected})
	return sh, nil
}

func (s *Service) wasteSheet(ctx context.Context, r Range) (*sheet, error) {
	rep, err := s.Waste(ctx, r)
	if err != nil {
		return nil, err
	}
	sh := &sheet{title: "İptal ve Fire", header: []string{"Tarih", "Kaynak", "Ürün", "Adet", "Kayıp", "Not"}}
	for _, l := range rep.Lines {
		source := "Adisyon"
		if l.Source == WasteSourceStock {
			source = "Stok"
		}
		sh.rows = append(sh.rows, []any{l.At.In(s.loc).Format("02.01.2006 15:04"), source, l.Name, l.Quantity, l.Loss, l.Note})
	}
	sh.rows = append(sh.rows, []any{"Toplam", "", "", "", rep.TotalLoss, ""})
	return sh, nil
}

func (s *Service) tableSheet(ctx context.Context, r Range) (*sheet, error) {
	stats, err := s.TableReport(ctx, r)
	if err != nil {
		return nil, err
	}
	sh := &sheet{title: "Masalar", header: []string{"Masa", "Adisyon", "Ciro", "Ortalama Hesap", "Ortalama Süre (dk)"}}
	for _, st := range stats {
		sh.rows = append(sh.rows, []any{st.TableName, st.OrderCount, st.Revenue, st.AverageTicket, st.AverageMinutes})
	}
	return sh, nil
}

func (s *Service) stockSheet(ctx context.Context) (*sheet, error) {
	var items []models.MenuItem
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("is_deleted = ?", false).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	sh := &sheet{title: "Stok", header: []string{"SKU", "Ürün", "Kategori", "Stok", "Kritik Eşik", "Durum"}}
	for i := range items {
		it := &items[i]
		category := ""
		if it.Category != nil {
			category = it.Category.Name
		}
		sh.rows = append(sh.rows, []any{stock.SKU(it.ID), it.Name, category, it.StockQuantity, it.AlertThreshold, stock.Classify(it).Label()})
	}
	return sh, nil
}

func writeCSV(sh *sheet) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	// Türkçe Excel ayırıcısı
	w.Comma = ';'

	if err := w.Write(sh.header); err != nil {
		return nil, err
	}
	for _, row := range sh.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = formatCell(v)
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", x)
	case time.Time:
		return x.Format("02.01.2006 15:04")
	default:
		return fmt.Sprint(x)
	}
}

func writeXLSX(sh *sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	name := sh.title
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, err
	}

	header := make([]any, len(sh.header))
	for i, h := range sh.header {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return nil, err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(sh.header))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(name, "A", lastCol, 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
