// Package alerts reports vehicle compliance dates that fall due soon.
package alerts

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/fleetledger/internal/apperr"
	"github.com/example/fleetledger/internal/metrics"
	"github.com/example/fleetledger/internal/models"
	"github.com/example/fleetledger/internal/store"
	"github.com/example/fleetledger/internal/utils"
)

const (
	DefaultHorizonDays = 7
	MaxHorizonDays     = 365
	// CriticalDays is the largest days-left value flagged as critical.
	CriticalDays = 3
)

// Alert is one compliance date inside the scan window.
type Alert struct {
	VehicleID uuid.UUID   `json:"vehicle_id"`
	VehicleNo string      `json:"vehicle_no"`
	Type      string      `json:"type"`
	Date      models.Date `json:"date"`
	DaysLeft  int         `json:"days_left"`
	Critical  bool        `json:"critical"`
	Overdue   bool        `json:"overdue,omitempty"`
}

// Options control the scan window.
type Options struct {
	HorizonDays int
	// IncludeOverdue also reports dates already past, with negative DaysLeft.
	IncludeOverdue bool
}

// DefaultOptions scans the next seven days, forward only.
func DefaultOptions() Options {
	return Options{HorizonDays: DefaultHorizonDays}
}

type Scanner struct {
	store store.LedgerStore
	clock utils.Clock
	loc   *time.Location
}

func NewScanner(s store.LedgerStore, clock utils.Clock, loc *time.Location) *Scanner {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scanner{store: s, clock: clock, loc: loc}
}

// ScanDueAlerts checks every compliance date of every vehicle the owner has
// and returns those with today <= date <= today+horizon, soonest first.
func (s *Scanner) ScanDueAlerts(ctx context.Context, ownerID uuid.UUID, opts Options) ([]Alert, error) {
	if opts.HorizonDays < 0 || opts.HorizonDays > MaxHorizonDays {
		return nil, apperr.Validation("days must be between 0 and %d", MaxHorizonDays)
	}

	vehicles, err := s.store.ListVehicles(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	today := models.DateOf(s.clock.Now(), s.loc)
	type ranked struct {
		Alert
		field int
	}
	var found []ranked
	for _, v := range vehicles {
		for field, cd := range v.ComplianceDates() {
			if cd.Date.IsZero() {
				continue
			}
			left := DaysBetween(today, cd.Date)
			if left > opts.HorizonDays || (left < 0 && !opts.IncludeOverdue) {
				continue
			}
			found = append(found, ranked{
				Alert: Alert{
					VehicleID: v.ID,
					VehicleNo: v.VehicleNo,
					Type:      cd.Label,
					Date:      cd.Date,
					DaysLeft:  left,
					Critical:  left <= CriticalDays,
					Overdue:   left < 0,
				},
				field: field,
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.DaysLeft != b.DaysLeft {
			return a.DaysLeft < b.DaysLeft
		}
		if a.VehicleNo != b.VehicleNo {
			return a.VehicleNo < b.VehicleNo
		}
		return a.field < b.field
	})

	out := make([]Alert, 0, len(found))
	for _, r := range found {
		out = append(out, r.Alert)
	}
	metrics.AlertsRaised.Add(float64(len(out)))
	return out, nil
}

// DaysBetween counts whole days from today to date, rounding partial days up.
func DaysBetween(today, date models.Date) int {
	return int(math.Ceil(date.Sub(today.Time).Hours() / 24))
}
