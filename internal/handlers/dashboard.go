package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/example/fleetledger/internal/alerts"
	"github.com/example/fleetledger/internal/apperr"
	"github.com/example/fleetledger/internal/middleware"
	"github.com/example/fleetledger/internal/stats"
)

// DashboardHandler serves the derived views: totals, the monthly series and
// compliance alerts.
type DashboardHandler struct {
	stats  *stats.Engine
	alerts *alerts.Scanner
}

func NewDashboardHandler(engine *stats.Engine, scanner *alerts.Scanner) *DashboardHandler {
	return &DashboardHandler{stats: engine, alerts: scanner}
}

// Stats returns totals and counts, optionally for one vehicle.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}

	result, err := h.stats.ComputeStats(c.UserContext(), userID, c.Query("vehicleNo", stats.AllVehicles))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": result})
}

// Series returns six monthly buckets ending with the current month.
func (h *DashboardHandler) Series(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}

	series, err := h.stats.ComputeMonthlySeries(c.UserContext(), userID, c.Query("vehicleNo", stats.AllVehicles))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": series})
}

// Alerts lists compliance dates due within ?days= (default 7).
// ?overdue=true also includes dates already past.
func (h *DashboardHandler) Alerts(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	opts, err := alertOptions(c)
	if err != nil {
		return err
	}

	found, err := h.alerts.ScanDueAlerts(c.UserContext(), userID, opts)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": found})
}

// Overview computes stats, series and alerts concurrently for one dashboard load.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	opts, err := alertOptions(c)
	if err != nil {
		return err
	}
	vehicle := c.Query("vehicleNo", stats.AllVehicles)

	var (
		totals *stats.Stats
		series []stats.MonthBucket
		due    []alerts.Alert
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		totals, err = h.stats.ComputeStats(ctx, userID, vehicle)
		return err
	})
	g.Go(func() (err error) {
		series, err = h.stats.ComputeMonthlySeries(ctx, userID, vehicle)
		return err
	})
	g.Go(func() (err error) {
		due, err = h.alerts.ScanDueAlerts(ctx, userID, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"stats":  totals,
			"series": series,
			"alerts": due,
		},
	})
}

func alertOptions(c *fiber.Ctx) (alerts.Options, error) {
	opts := alerts.DefaultOptions()
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return opts, apperr.Validation("days must be a whole number")
		}
		opts.HorizonDays = days
	}
	opts.IncludeOverdue = c.QueryBool("overdue", false)
	return opts, nil
}
