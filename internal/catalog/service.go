package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Service layers caching and low-stock signalling over the product store.
type Service struct {
	Store Store
	Cache *Cache
	Bus   *events.Bus
	Log   zerolog.Logger

	// LowStockThreshold is the whole-unit level at or below which a product
	// is flagged after a stock movement.
	LowStockThreshold decimal.Decimal
}

func detailKey(id uuid.UUID) string { return "catalog:product:" + id.String() }
func barcodeKey(code string) string { return "catalog:barcode:" + code }

func (s *Service) thresholdMilli() money.Milli {
	return money.ToMilli(s.LowStockThreshold)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Product, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	if in.GSTRate.IsNegative() {
		return Product{}, common.Validation("gst rate cannot be negative", nil)
	}
	if in.Stock.IsNegative() {
		return Product{}, common.Validation("stock cannot be negative", nil)
	}
	return s.Store.Create(ctx, in)
}

// Get serves reads through the cache; barcode scans at the till hit this
// path for every line of every bill.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	var cached Product
	if ok, err := s.Cache.GetJSON(ctx, detailKey(id), &cached); err != nil {
		s.Log.Warn().Err(err).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.Cache.SetJSON(ctx, detailKey(id), p); err != nil {
		s.Log.Warn().Err(err).Msg("catalog cache write failed")
	}
	return p, nil
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, common.Validation("barcode is required", nil)
	}
	var cached Product
	if ok, err := s.Cache.GetJSON(ctx, barcodeKey(barcode), &cached); err != nil {
		s.Log.Warn().Err(err).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}
	p, err := s.Store.GetByBarcode(ctx, barcode)
	if err != nil {
		return Product{}, err
	}
	if err := s.Cache.SetJSON(ctx, barcodeKey(barcode), p); err != nil {
		s.Log.Warn().Err(err).Msg("catalog cache write failed")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Product, int, error) {
	return s.Store.List(ctx, search, limit, offset)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Product, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	if in.GSTRate.IsNegative() {
		return Product{}, common.Validation("gst rate cannot be negative", nil)
	}
	p, err := s.Store.Update(ctx, id, in)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx, p)
	return p, nil
}

// AdjustStock applies a manual correction and raises the low-stock event if
// the product crosses the threshold.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, in AdjustStockInput) (Product, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	if in.Delta.IsZero() {
		return Product{}, common.Validation("delta cannot be zero", nil)
	}
	p, err := s.Store.AdjustStock(ctx, id, money.ToMilli(in.Delta))
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx, p)
	s.Log.Info().
		Str("product", p.Name).
		Str("delta", in.Delta.String()).
		Str("reason", in.Reason).
		Str("stock", p.Stock.String()).
		Msg("stock adjusted")
	s.FlagIfLow(ctx, p)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, p)
	return nil
}

func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	return s.Store.LowStock(ctx, s.thresholdMilli())
}

// FlagIfLow emits a stock.low event when the product sits at or below the
// threshold. Callers that already hold fresh state (checkout, adjustments)
// use this instead of re-reading.
func (s *Service) FlagIfLow(ctx context.Context, p Product) {
	if s.Bus == nil || p.Stock.GreaterThan(s.LowStockThreshold) {
		return
	}
	if _, err := s.Bus.Emit(ctx, events.TopicStockLow, p.ID, map[string]any{
		"productId": p.ID,
		"name":      p.Name,
		"stock":     p.Stock,
	}); err != nil {
		s.Log.Warn().Err(err).Str("product", p.Name).Msg("low-stock event fan-out failed")
	}
}

func (s *Service) invalidate(ctx context.Context, p Product) {
	keys := []string{detailKey(p.ID)}
	if p.Barcode != "" {
		keys = append(keys, barcodeKey(p.Barcode))
	}
	if err := s.Cache.Invalidate(ctx, keys...); err != nil {
		s.Log.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}
