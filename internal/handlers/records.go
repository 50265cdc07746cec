package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/fleetledger/internal/ledger"
	"github.com/example/fleetledger/internal/middleware"
	"github.com/example/fleetledger/internal/models"
	"github.com/example/fleetledger/internal/store"
	"github.com/example/fleetledger/internal/utils"
)

// RecordHandler serves income and expense entries.
type RecordHandler struct {
	ledger   *ledger.Service
	uploader *Uploader
	loc      *time.Location
}

func NewRecordHandler(svc *ledger.Service, uploader *Uploader, loc *time.Location) *RecordHandler {
	return &RecordHandler{ledger: svc, uploader: uploader, loc: loc}
}

type incomeRequest struct {
	Vehicle       string      `json:"vehicle" form:"vehicle"`
	Amount        json.Number `json:"amount" form:"amount"`
	PaymentStatus string      `json:"payment_status" form:"payment_status"`
	PayerCompany  string      `json:"payer_company" form:"payer_company"`
	PayerMobile   string      `json:"payer_mobile" form:"payer_mobile"`
	Notes         string      `json:"notes" form:"notes"`
	Date          string      `json:"date" form:"date"`
	Documents     []string    `json:"documents" form:"-"`
}

type expenseRequest struct {
	Vehicle     string      `json:"vehicle" form:"vehicle"`
	Amount      json.Number `json:"amount" form:"amount"`
	Category    string      `json:"category" form:"category"`
	Description string      `json:"description" form:"description"`
	Details     string      `json:"details" form:"details"`
	Date        string      `json:"date" form:"date"`
	Documents   []string    `json:"documents" form:"-"`
}

// CreateIncome records an income entry.
func (h *RecordHandler) CreateIncome(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}

	var req incomeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rec := &models.IncomeRecord{
		Vehicle:       req.Vehicle,
		PaymentStatus: req.PaymentStatus,
		PayerCompany:  req.PayerCompany,
		PayerMobile:   req.PayerMobile,
		Notes:         req.Notes,
	}
	if rec.Amount, err = parseAmount("amount", req.Amount); err != nil {
		return err
	}
	if rec.Date, err = parseRecordDate(req.Date, h.loc); err != nil {
		return err
	}
	uploaded, err := h.uploader.Collect(c)
	if err != nil {
		return err
	}
	rec.Documents = append(req.Documents, uploaded...)

	created, err := h.ledger.AddIncome(c.UserContext(), userID, rec)
	if err != nil {
		h.uploader.Discard(c.UserContext(), uploaded)
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Income added successfully",
		"data":    created,
	})
}

// ListIncomes returns income entries, filterable by status and vehicle.
func (h *RecordHandler) ListIncomes(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	incomes, total, err := h.ledger.ListIncomes(c.UserContext(), userID, store.RecordFilter{
		Vehicle:       c.Query("vehicleNo"),
		PaymentStatus: c.Query("status"),
		Limit:         pg.Limit,
		Offset:        pg.Offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       incomes,
		"pagination": paginationMap(pg, total),
	})
}

// CreateExpense records an expense. At least one document must be attached,
// either uploaded or referenced.
func (h *RecordHandler) CreateExpense(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}

	var req expenseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rec := &models.ExpenseRecord{
		Vehicle:     req.Vehicle,
		Category:    req.Category,
		Description: req.Description,
		Details:     req.Details,
	}
	if rec.Amount, err = parseAmount("amount", req.Amount); err != nil {
		return err
	}
	if rec.Date, err = parseRecordDate(req.Date, h.loc); err != nil {
		return err
	}
	uploaded, err := h.uploader.Collect(c)
	if err != nil {
		return err
	}
	rec.Documents = append(req.Documents, uploaded...)

	created, err := h.ledger.AddExpense(c.UserContext(), userID, rec)
	if err != nil {
		h.uploader.Discard(c.UserContext(), uploaded)
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Expense added successfully",
		"data":    created,
	})
}

// ListExpenses returns expense entries, filterable by vehicle.
func (h *RecordHandler) ListExpenses(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	expenses, total, err := h.ledger.ListExpenses(c.UserContext(), userID, store.RecordFilter{
		Vehicle: c.Query("vehicleNo"),
		Limit:   pg.Limit,
		Offset:  pg.Offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       expenses,
		"pagination": paginationMap(pg, total),
	})
}

func paginationMap(pg utils.Pagination, total int64) fiber.Map {
	return fiber.Map{
		"current_page":   pg.Page,
		"items_per_page": pg.Limit,
		"total_items":    total,
		"total_pages":    pg.TotalPages(total),
	}
}
