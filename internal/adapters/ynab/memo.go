package ynab

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/storage"
)

// MaxMemoLength is the longest memo YNAB accepts.
const MaxMemoLength = 200

const (
	memoPrefix    = "Amazon: "
	memoSeparator = " | "
)

// MemoUpdater writes a memo to one transaction. *Client implements it.
type MemoUpdater interface {
	UpdateMemo(ctx context.Context, transactionID, memo string) error
}

// PlannedMemo is one memo the writer intends to write (or wrote).
type PlannedMemo struct {
	YnabTransactionID string   `json:"ynab_transaction_id"`
	AmazonOrderIDs    []string `json:"amazon_order_ids"`
	Memo              string   `json:"memo"`
	Error             string   `json:"error,omitempty"`
}

// MemoReport summarizes an Apply call
type MemoReport struct {
	Written int           `json:"written"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	DryRun  bool          `json:"dry_run"`
	Memos   []PlannedMemo `json:"memos"`
}

// MemoWriter annotates matched YNAB transactions with the Amazon items they paid for.
type MemoWriter struct {
	updater MemoUpdater
	audit   storage.MemoUpdateRepository
	logger  *slog.Logger
}

// NewMemoWriter creates a writer. audit may be nil.
func NewMemoWriter(updater MemoUpdater, audit storage.MemoUpdateRepository, logger *slog.Logger) *MemoWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoWriter{
		updater: updater,
		audit:   audit,
		logger:  logger.With(slog.String("system", "memo")),
	}
}

// Apply writes a memo for every matched transaction. In dry-run mode memos
// are planned and audited but never sent. A failed write is counted and
// logged; only context cancellation stops the pass.
func (w *MemoWriter) Apply(ctx context.Context, runID string, dryRun bool, matches []matcher.MatchRecord, batches []matcher.BatchMatchRecord) (*MemoReport, error) {
	report := &MemoReport{DryRun: dryRun, Memos: make([]PlannedMemo, 0)}

	for _, plan := range PlanMemos(matches, batches) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if plan.Memo == "" {
			report.Skipped++
			continue
		}

		if !dryRun && w.updater != nil {
			if err := w.updater.UpdateMemo(ctx, plan.YnabTransactionID, plan.Memo); err != nil {
				plan.Error = err.Error()
				report.Failed++
				w.logger.Error("Failed to write memo",
					"transaction_id", plan.YnabTransactionID,
					"error", err,
				)
			} else {
				report.Written++
			}
		}

		w.logger.Info("Memo",
			"transaction_id", plan.YnabTransactionID,
			"orders", strings.Join(plan.AmazonOrderIDs, ","),
			"dry_run", dryRun,
			"memo", plan.Memo,
		)
		w.record(ctx, runID, dryRun, plan)
		report.Memos = append(report.Memos, plan)
	}
	return report, nil
}

func (w *MemoWriter) record(ctx context.Context, runID string, dryRun bool, plan PlannedMemo) {
	if w.audit == nil || runID == "" {
		return
	}
	err := w.audit.LogMemoUpdate(ctx, &storage.MemoUpdate{
		RunID:             runID,
		YnabTransactionID: plan.YnabTransactionID,
		AmazonOrderIDs:    plan.AmazonOrderIDs,
		Memo:              plan.Memo,
		DryRun:            dryRun,
		Error:             plan.Error,
	})
	if err != nil {
		w.logger.Warn("Failed to audit memo update", "transaction_id", plan.YnabTransactionID, "error", err)
	}
}

// PlanMemos builds one memo per matched transaction. A consolidated charge
// lists the items of every order in the group; each transaction of a split
// payment gets its order's items. Transactions already carrying the marker
// get an empty memo and are skipped by Apply.
func PlanMemos(matches []matcher.MatchRecord, batches []matcher.BatchMatchRecord) []PlannedMemo {
	var plans []PlannedMemo

	for _, m := range matches {
		plans = append(plans, PlannedMemo{
			YnabTransactionID: m.YnabTransactionID,
			AmazonOrderIDs:    []string{m.AmazonOrderID},
			Memo:              BuildMemo(m.YnabData.ExistingMemo, []string{m.AmazonOrderID}, m.AmazonData.AllItems),
		})
	}

	for _, b := range batches {
		var orderIDs []string
		var items []matcher.OrderItem
		for _, o := range b.AmazonOrders {
			orderIDs = append(orderIDs, o.OrderID)
			items = append(items, o.Items...)
		}
		for _, t := range b.YnabTransactions {
			plans = append(plans, PlannedMemo{
				YnabTransactionID: t.ID,
				AmazonOrderIDs:    orderIDs,
				Memo:              BuildMemo(t.Memo, orderIDs, items),
			})
		}
	}
	return plans
}

// BuildMemo renders "Amazon: <items>" and keeps any existing memo after " | ".
// The result is cut to MaxMemoLength runes. An already annotated memo yields "".
func BuildMemo(existing string, orderIDs []string, items []matcher.OrderItem) string {
	if strings.Contains(existing, strings.TrimSpace(memoPrefix)) {
		return ""
	}

	var names []string
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		if item.Quantity > 1 {
			name = fmt.Sprintf("%s x%d", name, item.Quantity)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		names = []string{"order " + strings.Join(orderIDs, ", ")}
	}

	memo := memoPrefix + strings.Join(names, ", ")
	if existing = strings.TrimSpace(existing); existing != "" {
		memo += memoSeparator + existing
	}
	return truncate(memo, MaxMemoLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}
