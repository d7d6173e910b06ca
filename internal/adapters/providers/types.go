// Package providers defines the contract between order sources and the
// reconcile service.
package providers

import (
	"context"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// FetchOptions configures how orders are fetched
type FetchOptions struct {
	StartDate time.Time // Inclusive; zero means no lower bound
	EndDate   time.Time // Inclusive; zero means no upper bound
	MaxOrders int       // 0 means unlimited
}

// Contains reports whether t falls inside the configured date range.
func (o FetchOptions) Contains(t time.Time) bool {
	if !o.StartDate.IsZero() && t.Before(o.StartDate) {
		return false
	}
	if !o.EndDate.IsZero() && t.After(o.EndDate) {
		return false
	}
	return true
}

// OrderSource is implemented by anything that can supply Amazon orders.
type OrderSource interface {
	// Name identifies the source in logs ("amazon-file", ...)
	Name() string

	// FetchOrders returns normalized orders within the requested window.
	FetchOrders(ctx context.Context, opts FetchOptions) ([]matcher.AmazonOrder, error)
}
