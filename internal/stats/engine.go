// Package stats derives dashboard totals and the six-month series from the
// ledger. Results are recomputed on every call.
package stats

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/fleetledger/internal/models"
	"github.com/example/fleetledger/internal/store"
	"github.com/example/fleetledger/internal/utils"
)

// AllVehicles disables the vehicle filter.
const AllVehicles = "all"

// SeriesMonths is the number of buckets in a monthly series.
const SeriesMonths = 6

type Stats struct {
	Vehicle      string          `json:"vehicle"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	IncomeCount  int             `json:"income_count"`
	ExpenseCount int             `json:"expense_count"`
}

// MonthBucket sums one calendar month.
type MonthBucket struct {
	Label   string          `json:"label"`
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Engine reads the ledger and aggregates it in the deployment timezone.
type Engine struct {
	store store.LedgerStore
	clock utils.Clock
	loc   *time.Location
}

func NewEngine(s store.LedgerStore, clock utils.Clock, loc *time.Location) *Engine {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: s, clock: clock, loc: loc}
}

// ComputeStats totals the owner's incomes and expenses, optionally for one
// vehicle. Records without an amount count as zero.
func (e *Engine) ComputeStats(ctx context.Context, ownerID uuid.UUID, vehicleFilter string) (*Stats, error) {
	incomes, expenses, filter, err := e.load(ctx, ownerID, vehicleFilter)
	if err != nil {
		return nil, err
	}

	out := &Stats{
		Vehicle:      filter,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		IncomeCount:  len(incomes),
		ExpenseCount: len(expenses),
	}
	for _, rec := range incomes {
		out.TotalIncome = out.TotalIncome.Add(models.AmountOrZero(rec.Amount))
	}
	for _, rec := range expenses {
		out.TotalExpense = out.TotalExpense.Add(models.AmountOrZero(rec.Amount))
	}
	out.NetProfit = out.TotalIncome.Sub(out.TotalExpense)
	return out, nil
}

// ComputeMonthlySeries returns the current month and the five before it,
// oldest first, with income and expense summed per calendar month.
func (e *Engine) ComputeMonthlySeries(ctx context.Context, ownerID uuid.UUID, vehicleFilter string) ([]MonthBucket, error) {
	incomes, expenses, _, err := e.load(ctx, ownerID, vehicleFilter)
	if err != nil {
		return nil, err
	}

	buckets := monthBuckets(e.clock.Now().In(e.loc), e.loc)
	index := make(map[[2]int]int, len(buckets))
	for i, b := range buckets {
		index[[2]int{b.Year, b.Month}] = i
	}

	slot := func(t time.Time) (int, bool) {
		y, m, _ := t.In(e.loc).Date()
		i, ok := index[[2]int{y, int(m)}]
		return i, ok
	}
	for _, rec := range incomes {
		if i, ok := slot(rec.Date); ok {
			buckets[i].Income = buckets[i].Income.Add(models.AmountOrZero(rec.Amount))
		}
	}
	for _, rec := range expenses {
		if i, ok := slot(rec.Date); ok {
			buckets[i].Expense = buckets[i].Expense.Add(models.AmountOrZero(rec.Amount))
		}
	}
	return buckets, nil
}

func monthBuckets(now time.Time, loc *time.Location) []MonthBucket {
	y, m, _ := now.Date()
	buckets := make([]MonthBucket, 0, SeriesMonths)
	for back := SeriesMonths - 1; back >= 0; back-- {
		start := time.Date(y, m-time.Month(back), 1, 0, 0, 0, 0, loc)
		buckets = append(buckets, MonthBucket{
			Label:   start.Format("Jan"),
			Year:    start.Year(),
			Month:   int(start.Month()),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		})
	}
	return buckets
}

func (e *Engine) load(ctx context.Context, ownerID uuid.UUID, vehicleFilter string) ([]models.IncomeRecord, []models.ExpenseRecord, string, error) {
	filter := normalizeFilter(vehicleFilter)
	rf := store.RecordFilter{}
	if filter != AllVehicles {
		rf.Vehicle = filter
	}

	incomes, _, err := e.store.ListIncomes(ctx, ownerID, rf)
	if err != nil {
		return nil, nil, "", err
	}
	expenses, _, err := e.store.ListExpenses(ctx, ownerID, rf)
	if err != nil {
		return nil, nil, "", err
	}
	return incomes, expenses, filter, nil
}

func normalizeFilter(vehicleFilter string) string {
	f := strings.TrimSpace(vehicleFilter)
	if f == "" || strings.EqualFold(f, AllVehicles) {
		return AllVehicles
	}
	return models.NormalizeVehicleNo(f)
}
