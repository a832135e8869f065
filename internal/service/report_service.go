package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"carrental/internal/cache"
	"carrental/internal/entities"
	"carrental/internal/repository"
)

const (
	reportMonths = 6
	monthLayout  = "Jan 2006"
	csvHeader    = "Month,Revenue,Bookings,Status"
	csvSeparator = "---,---,---,---"
)

type ReportService struct {
	payments repository.PaymentRepository
	bookings repository.BookingRepository
	cache    *cache.QueryCache
	now      func() time.Time
}

func NewReportService(payments repository.PaymentRepository, bookings repository.BookingRepository, qc *cache.QueryCache) *ReportService {
	return &ReportService{payments: payments, bookings: bookings, cache: qc, now: time.Now}
}

// MonthlyRevenue sums succeeded payments per calendar month over the last six
// months, current month included, oldest first. Empty months are zero.
func (s *ReportService) MonthlyRevenue(ctx context.Context) ([]entities.MonthlyRevenue, error) {
	return cache.Fetch(ctx, s.cache, cache.ReportsRevenue, func(ctx context.Context) ([]entities.MonthlyRevenue, error) {
		now := s.now().UTC()
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(reportMonths - 1), 0)

		payments, err := s.payments.ListSucceededSince(ctx, first)
		if err != nil {
			return nil, err
		}

		months := make([]entities.MonthlyRevenue, reportMonths)
		index := make(map[string]int, reportMonths)
		for i := range months {
			label := first.AddDate(0, i, 0).Format(monthLayout)
			months[i] = entities.MonthlyRevenue{Month: label}
			index[label] = i
		}
		for _, p := range payments {
			if i, ok := index[p.CreatedAt.UTC().Format(monthLayout)]; ok {
				months[i].Total += p.Amount
			}
		}
		return months, nil
	})
}

// BookingStatus counts bookings per status, sorted by status name.
func (s *ReportService) BookingStatus(ctx context.Context) ([]entities.StatusCount, error) {
	return cache.Fetch(ctx, s.cache, cache.ReportsBookings, func(ctx context.Context) ([]entities.StatusCount, error) {
		counts, err := s.bookings.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]entities.StatusCount, 0, len(counts))
		for status, n := range counts {
			out = append(out, entities.StatusCount{Status: status, Count: n})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
		return out, nil
	})
}

func (s *ReportService) Report(ctx context.Context) (*entities.Report, error) {
	revenue, err := s.MonthlyRevenue(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := s.BookingStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &entities.Report{Revenue: revenue, Bookings: bookings}, nil
}

// Export renders the report as CSV and names the file after today's date.
func (s *ReportService) Export(ctx context.Context) (string, []byte, error) {
	r, err := s.Report(ctx)
	if err != nil {
		return "", nil, err
	}
	filename := fmt.Sprintf("reports_%s.csv", s.now().Format("2006-01-02"))
	return filename, []byte(BuildCSV(*r)), nil
}

// BuildCSV writes one row per month, a separator row, then one row per booking
// status. Fields are joined as-is, without quoting.
func BuildCSV(r entities.Report) string {
	lines := make([]string, 0, 2+len(r.Revenue)+len(r.Bookings))
	lines = append(lines, csvHeader)
	for _, m := range r.Revenue {
		lines = append(lines, strings.Join([]string{m.Month, strconv.FormatFloat(m.Total, 'f', -1, 64), "N/A", "N/A"}, ","))
	}
	lines = append(lines, csvSeparator)
	for _, b := range r.Bookings {
		lines = append(lines, strings.Join([]string{"Booking Status", b.Status, strconv.Itoa(b.Count), ""}, ","))
	}
	return strings.Join(lines, "\n")
}
