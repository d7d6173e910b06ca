// Package amazon imports Amazon order history into normalized orders.
//
// Two input formats are supported:
//   - the Retail.OrderHistory CSV from Amazon's "Request Your Data" export
//   - the JSON written by amazon-order-scraper --stdout
//
// The Provider reads one or more such files and implements providers.OrderSource.
package amazon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eshaffer321/amazon-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// Provider loads Amazon orders from exported files
type Provider struct {
	logger *slog.Logger
	files  []string
}

// Ensure interface is implemented at compile time
var _ providers.OrderSource = (*Provider)(nil)

// NewProvider creates a new Amazon provider reading the given files
func NewProvider(logger *slog.Logger, files ...string) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		logger: logger.With(slog.String("provider", "amazon")),
		files:  files,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "amazon"
}

// FetchOrders loads every configured file, removes duplicate orders and
// applies the date window and order limit.
func (p *Provider) FetchOrders(ctx context.Context, opts providers.FetchOptions) ([]matcher.AmazonOrder, error) {
	if len(p.files) == 0 {
		return nil, fmt.Errorf("no amazon order files configured")
	}

	var all []matcher.AmazonOrder
	for _, path := range p.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		orders, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		p.logger.Info("loaded orders",
			slog.String("file", path),
			slog.Int("count", len(orders)),
		)
		all = append(all, orders...)
	}

	deduped := Dedupe(all)
	if dropped := len(all) - len(deduped); dropped > 0 {
		p.logger.Debug("dropped duplicate orders", slog.Int("count", dropped))
	}

	filtered := FilterByDate(deduped, opts)
	if opts.MaxOrders > 0 && len(filtered) > opts.MaxOrders {
		filtered = filtered[:opts.MaxOrders]
	}

	p.logger.Info("processed orders", slog.Int("count", len(filtered)))
	return filtered, nil
}

// LoadFile parses an order file, choosing the format from its extension.
func LoadFile(path string) ([]matcher.AmazonOrder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open orders file: %w", err)
	}
	defer f.Close()

	var orders []matcher.AmazonOrder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		orders, err = ParseOrderHistoryCSV(f)
	case ".json":
		orders, err = ParseScraperJSON(f)
	default:
		return nil, fmt.Errorf("unsupported orders file type %q (want .csv or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return orders, nil
}

// Dedupe keeps the first occurrence of each order id.
func Dedupe(orders []matcher.AmazonOrder) []matcher.AmazonOrder {
	seen := make(map[string]bool, len(orders))
	out := make([]matcher.AmazonOrder, 0, len(orders))
	for _, o := range orders {
		if seen[o.OrderID] {
			continue
		}
		seen[o.OrderID] = true
		out = append(out, o)
	}
	return out
}

// FilterByDate keeps orders inside the options' date window, oldest first.
func FilterByDate(orders []matcher.AmazonOrder, opts providers.FetchOptions) []matcher.AmazonOrder {
	out := make([]matcher.AmazonOrder, 0, len(orders))
	for _, o := range orders {
		if opts.Contains(o.Date) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
