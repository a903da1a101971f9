package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/store"
	"github.com/cartshare/cartshare/pkg/slogx"
)

// Trend compares a month's spending with the previous month on record.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// MonthBucket is one calendar month of a group's spending.
type MonthBucket struct {
	Year      int               `json:"year"`
	Month     time.Month        `json:"month"`
	Total     float64           `json:"total"`
	Trend     Trend             `json:"trend"`
	Checkouts []domain.Checkout `json:"checkouts"`
}

// Label renders the bucket as "January 2026".
func (b MonthBucket) Label() string {
	return time.Date(b.Year, b.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

// HistoryService reads a group's settled history and derives the monthly
// spending report from it. The report is a pure function of the stored
// checkouts, so recomputing it never changes stored state.
type HistoryService struct {
	Store store.Store
}

// GetGroupHistory returns the group's monthly spending report, newest month
// first. The caller must be a member.
func (s *HistoryService) GetGroupHistory(ctx context.Context, uid, groupID string) ([]MonthBucket, error) {
	ok, err := s.Store.Groups().IsMember(ctx, groupID, uid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}

	history, err := s.Store.Groups().ListCheckouts(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return AggregateHistory(ctx, history), nil
}

// AggregateHistory groups checkouts into calendar-month buckets, sums each
// bucket and marks its trend against the next-older bucket. Buckets come
// back newest first; the oldest bucket is always neutral. Checkouts whose
// date does not parse are logged and skipped rather than failing the whole
// report.
func AggregateHistory(ctx context.Context, history []domain.Checkout) []MonthBucket {
	log := slogx.FromContext(ctx)

	type ym struct {
		year  int
		month time.Month
	}
	buckets := make(map[ym]*MonthBucket)

	for _, c := range history {
		ts, err := time.Parse(time.RFC3339, c.Date)
		if err != nil {
			log.Warn("skipping checkout with unparsable date",
				slog.String("checkout_id", c.ID),
				slog.String("date", c.Date),
			)
			continue
		}

		key := ym{ts.Year(), ts.Month()}
		b, ok := buckets[key]
		if !ok {
			b = &MonthBucket{Year: key.year, Month: key.month}
			buckets[key] = b
		}
		b.Total += c.Amount
		b.Checkouts = append(b.Checkouts, c)
	}

	out := make([]MonthBucket, 0, len(buckets))
	for _, b := range buckets {
		sortCheckoutsByDateDesc(b.Checkouts)
		out = append(out, *b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})

	for i := range out {
		if i == len(out)-1 {
			out[i].Trend = TrendNeutral
			continue
		}
		older := out[i+1].Total
		switch {
		case out[i].Total < older:
			out[i].Trend = TrendDown
		case out[i].Total > older:
			out[i].Trend = TrendUp
		default:
			out[i].Trend = TrendNeutral
		}
	}

	return out
}

// sortCheckoutsByDateDesc orders checkouts newest first within a bucket.
// Dates here already parsed during bucketing, so parse failures cannot
// reorder anything.
func sortCheckoutsByDateDesc(cs []domain.Checkout) {
	sort.SliceStable(cs, func(i, j int) bool {
		ti, _ := time.Parse(time.RFC3339, cs[i].Date)
		tj, _ := time.Parse(time.RFC3339, cs[j].Date)
		return ti.After(tj)
	})
}
