package cli

import (
	"fmt"
	"time"

	"github.com/eshaffer321/amazon-ynab-sync/internal/application/reconcile"
)

// MatchFlags are the flags of the match command
type MatchFlags struct {
	OrdersFiles      []string
	TransactionsFile string
	DryRun           bool
	Batch            bool
	Since            string // YYYY-MM-DD
	LookbackDays     int
	MaxOrders        int
	JSON             bool
}

// ToOptions converts MatchFlags to reconcile.Options
func (f MatchFlags) ToOptions() (reconcile.Options, error) {
	opts := reconcile.Options{
		DryRun:         f.DryRun,
		IncludeBatches: f.Batch,
		LookbackDays:   f.LookbackDays,
		MaxOrders:      f.MaxOrders,
	}
	if f.Since != "" {
		since, err := time.Parse("2006-01-02", f.Since)
		if err != nil {
			return reconcile.Options{}, fmt.Errorf("invalid --since %q, want YYYY-MM-DD", f.Since)
		}
		opts.Since = since
	}
	if f.LookbackDays < 0 || f.MaxOrders < 0 {
		return reconcile.Options{}, fmt.Errorf("--days and --max must not be negative")
	}
	return opts, nil
}
