package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// DailySales is one day's sales rollup.
type DailySales struct {
	Day          time.Time   `json:"day"`
	BillCount    int64       `json:"billCount"`
	GrossSales   money.Paise `json:"grossSales"`
	TaxCollected money.Paise `json:"taxCollected"`
	Discounts    money.Paise `json:"discounts"`
	CashReceived money.Paise `json:"cashReceived"`
	CreditGiven  money.Paise `json:"creditGiven"`
}

// TopProduct is one row of the best-sellers report.
type TopProduct struct {
	ProductID    uuid.UUID       `json:"productId"`
	Name         string          `json:"name"`
	QuantitySold decimal.Decimal `json:"quantitySold"`
	Revenue      money.Paise     `json:"revenue"`
}

// OutstandingParty is one row of the receivables/payables report.
type OutstandingParty struct {
	PartyID uuid.UUID   `json:"partyId"`
	Name    string      `json:"name"`
	Balance money.Paise `json:"balance"`
}

// Querier defines the database access the reports need.
type Querier interface {
	SalesDailyRange(ctx context.Context, from, to time.Time) ([]DailySales, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
	OutstandingCustomers(ctx context.Context, limit int) ([]OutstandingParty, error)
	OutstandingVendors(ctx context.Context, limit int) ([]OutstandingParty, error)
}

// Service provides cached access to the reporting queries. Reports tolerate
// slightly stale data, so every query goes through a short Redis TTL.
type Service struct {
	Q   Querier
	R   *redis.Client
	TTL time.Duration
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts)+1)
	formatted = append(formatted, "rpt")
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns per-day sales rollups, inclusive of from and exclusive
// of to. A zero range defaults to the trailing seven days.
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("report service not configured")
	}
	if from.IsZero() || to.IsZero() {
		to = s.now().Truncate(24 * time.Hour).Add(24 * time.Hour)
		from = to.AddDate(0, 0, -7)
	}
	key := cacheKey("sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var rows []DailySales
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.Q.SalesDailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns best sellers by quantity within the range.
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("report service not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if from.IsZero() || to.IsZero() {
		to = s.now().Truncate(24 * time.Hour).Add(24 * time.Hour)
		from = to.AddDate(0, -1, 0)
	}
	key := cacheKey("top", from.Format("2006-01-02"), to.Format("2006-01-02"), limit)
	var rows []TopProduct
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.Q.TopProducts(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// Outstanding returns the largest non-zero balances for one party type.
func (s *Service) Outstanding(ctx context.Context, partyType string, limit int) ([]OutstandingParty, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("report service not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	key := cacheKey("outstanding", partyType, limit)
	var rows []OutstandingParty
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	var err error
	switch partyType {
	case "customer":
		rows, err = s.Q.OutstandingCustomers(ctx, limit)
	case "vendor":
		rows, err = s.Q.OutstandingVendors(ctx, limit)
	default:
		return nil, fmt.Errorf("unknown party type %q", partyType)
	}
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
