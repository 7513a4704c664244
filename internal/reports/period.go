package reports

import (
	"strings"
	"time"

	"adisyon-backend/internal/apperr"
)

const (
	PresetToday     = "today"
	PresetYesterday = "yesterday"
	PresetWeek      = "week"
	PresetMonth     = "month"
	PresetCustom    = "custom"
)

const dateLayout = "2006-01-02"

// Range [From, To) aralığı; sınırlar UTC, gün hesapları restoran saatinde.
type Range struct {
	Preset string
	From   time.Time
	To     time.Time
	Loc    *time.Location
}

// Days aralıktaki yerel günlerin başlangıçları
func (r Range) Days() []time.Time {
	var days []time.Time
	for d := r.From.In(r.Loc); d.Before(r.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DayIndex t'nin Days() içindeki sırası; aralık dışındaysa -1
func (r Range) DayIndex(t time.Time) int {
	if t.Before(r.From) || !t.Before(r.To) {
		return -1
	}
	lt := t.In(r.Loc)
	start := r.From.In(r.Loc)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, r.Loc)
	i := 0
	for d := start; d.Before(day); d = d.AddDate(0, 0, 1) {
		i++
	}
	return i
}

func (r Range) Label() string {
	last := r.To.In(r.Loc).AddDate(0, 0, -1)
	from := r.From.In(r.Loc)
	if from.Equal(last) {
		return from.Format("02.01.2006")
	}
	return from.Format("02.01.2006") + " - " + last.Format("02.01.2006")
}

func midnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// ResolveRange hazır aralığı ya da custom from/to (dahil) tarihlerini çözer.
// week son 7 günü, month içinde bulunulan ayın başından bugünü kapsar.
func ResolveRange(preset, from, to string, now time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" {
		preset = PresetToday
	}

	today := midnight(now, loc)
	tomorrow := today.AddDate(0, 0, 1)

	var start, end time.Time
	switch preset {
	case PresetToday:
		start, end = today, tomorrow
	case PresetYesterday:
		start, end = today.AddDate(0, 0, -1), today
	case PresetWeek:
		start, end = today.AddDate(0, 0, -6), tomorrow
	case PresetMonth:
		start, end = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc), tomorrow
	case PresetCustom:
		f, err := time.ParseInLocation(dateLayout, strings.TrimSpace(from), loc)
		if err != nil {
			return Range{}, apperr.Validationf("Başlangıç tarihi geçersiz.")
		}
		t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(to), loc)
		if err != nil {
			return Range{}, apperr.Validationf("Bitiş tarihi geçersiz.")
		}
		if t.Before(f) {
			return Range{}, apperr.Validationf("Başlangıç tarihi bitiş tarihinden sonra olamaz.")
		}
		start, end = f, t.AddDate(0, 0, 1)
	default:
		return Range{}, apperr.Validationf("Geçersiz tarih aralığı.")
	}

	return Range{Preset: preset, From: start.UTC(), To: end.UTC(), Loc: loc}, nil
}
