// Package ledger validates and records vehicles, incomes and expenses on
// behalf of their owner.
package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/fleetledger/internal/apperr"
	"github.com/example/fleetledger/internal/metrics"
	"github.com/example/fleetledger/internal/models"
	"github.com/example/fleetledger/internal/store"
	"github.com/example/fleetledger/internal/utils"
)

// Service applies ledger writes for one owner at a time.
type Service struct {
	store  store.LedgerStore
	clock  utils.Clock
	logger *zap.Logger
}

func NewService(s store.LedgerStore, clock utils.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, clock: clock, logger: logger}
}

// AddVehicle registers a vehicle. Registration numbers are unique per owner.
func (s *Service) AddVehicle(ctx context.Context, ownerID uuid.UUID, v *models.Vehicle) (*models.Vehicle, error) {
	v.VehicleNo = models.NormalizeVehicleNo(v.VehicleNo)
	v.Documents = cleanDocuments(v.Documents)
	if err := checkVehicle(v); err != nil {
		return nil, err
	}

	existing, err := s.findVehicleByNo(ctx, ownerID, v.VehicleNo)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Validation("vehicle %s is already registered", v.VehicleNo)
	}

	v.ID = uuid.Nil
	v.OwnerID = ownerID
	if err := s.store.CreateVehicle(ctx, v); err != nil {
		return nil, err
	}

	metrics.LedgerWrites.WithLabelValues("vehicle").Inc()
	s.logger.Info("vehicle added", zap.String("owner_id", ownerID.String()), zap.String("vehicle_no", v.VehicleNo))
	return v, nil
}

func (s *Service) ListVehicles(ctx context.Context, ownerID uuid.UUID) ([]models.Vehicle, error) {
	return s.store.ListVehicles(ctx, ownerID)
}

// UpdateVehicle replaces the editable fields of a vehicle. Documents are
// replaced only when the update carries new ones.
func (s *Service) UpdateVehicle(ctx context.Context, ownerID, id uuid.UUID, v *models.Vehicle) (*models.Vehicle, error) {
	current, err := s.ownedVehicle(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	v.VehicleNo = models.NormalizeVehicleNo(v.VehicleNo)
	if v.VehicleNo == "" {
		v.VehicleNo = current.VehicleNo
	}
	if err := checkVehicle(v); err != nil {
		return nil, err
	}
	if v.VehicleNo != current.VehicleNo {
		clash, err := s.findVehicleByNo(ctx, ownerID, v.VehicleNo)
		if err != nil {
			return nil, err
		}
		if clash != nil {
			return nil, apperr.Validation("vehicle %s is already registered", v.VehicleNo)
		}
	}
	v.Documents = cleanDocuments(v.Documents)
	if len(v.Documents) == 0 {
		v.Documents = current.Documents
	}

	v.ID = current.ID
	v.OwnerID = ownerID
	v.CreatedAt = current.CreatedAt
	if err := s.store.UpdateVehicle(ctx, v); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("vehicle")
		}
		return nil, err
	}
	return v, nil
}

// DeleteVehicle removes a vehicle. Income and expense records that name it are kept.
func (s *Service) DeleteVehicle(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.ownedVehicle(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteVehicle(ctx, ownerID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("vehicle")
		}
		return err
	}
	s.logger.Info("vehicle deleted", zap.String("owner_id", ownerID.String()), zap.String("vehicle_id", id.String()))
	return nil
}

// AddIncome records money received for one of the owner's vehicles.
func (s *Service) AddIncome(ctx context.Context, ownerID uuid.UUID, rec *models.IncomeRecord) (*models.IncomeRecord, error) {
	rec.Vehicle = models.NormalizeVehicleNo(rec.Vehicle)
	rec.Documents = cleanDocuments(rec.Documents)
	rec.PaymentStatus = strings.ToLower(strings.TrimSpace(rec.PaymentStatus))
	if rec.PaymentStatus == "" {
		rec.PaymentStatus = models.PaymentPaid
	}
	if rec.PaymentStatus != models.PaymentPaid && rec.PaymentStatus != models.PaymentUnpaid {
		return nil, apperr.Validation("payment_status must be %q or %q", models.PaymentPaid, models.PaymentUnpaid)
	}
	if err := checkAmount(rec.Amount); err != nil {
		return nil, err
	}
	if err := s.requireVehicle(ctx, ownerID, rec.Vehicle); err != nil {
		return nil, err
	}

	rec.ID = uuid.Nil
	rec.OwnerID = ownerID
	if rec.Date.IsZero() {
		rec.Date = s.clock.Now()
	}
	if err := s.store.CreateIncome(ctx, rec); err != nil {
		return nil, err
	}

	metrics.LedgerWrites.WithLabelValues("income").Inc()
	return rec, nil
}

// AddExpense records money spent on one of the owner's vehicles. At least
// one supporting document is required.
func (s *Service) AddExpense(ctx context.Context, ownerID uuid.UUID, rec *models.ExpenseRecord) (*models.ExpenseRecord, error) {
	rec.Documents = cleanDocuments(rec.Documents)
	if len(rec.Documents) == 0 {
		return nil, apperr.Validation("at least one document is required")
	}
	rec.Vehicle = models.NormalizeVehicleNo(rec.Vehicle)
	rec.Category = strings.TrimSpace(rec.Category)
	if rec.Category == "" {
		return nil, apperr.Validation("category is required")
	}
	if err := checkAmount(rec.Amount); err != nil {
		return nil, err
	}
	if err := s.requireVehicle(ctx, ownerID, rec.Vehicle); err != nil {
		return nil, err
	}

	rec.ID = uuid.Nil
	rec.OwnerID = ownerID
	if rec.Date.IsZero() {
		rec.Date = s.clock.Now()
	}
	if err := s.store.CreateExpense(ctx, rec); err != nil {
		return nil, err
	}

	metrics.LedgerWrites.WithLabelValues("expense").Inc()
	return rec, nil
}

func (s *Service) ListIncomes(ctx context.Context, ownerID uuid.UUID, filter store.RecordFilter) ([]models.IncomeRecord, int64, error) {
	filter.Vehicle = models.NormalizeVehicleNo(filter.Vehicle)
	filter.PaymentStatus = strings.ToLower(strings.TrimSpace(filter.PaymentStatus))
	return s.store.ListIncomes(ctx, ownerID, filter)
}

func (s *Service) ListExpenses(ctx context.Context, ownerID uuid.UUID, filter store.RecordFilter) ([]models.ExpenseRecord, int64, error) {
	filter.Vehicle = models.NormalizeVehicleNo(filter.Vehicle)
	return s.store.ListExpenses(ctx, ownerID, filter)
}

func (s *Service) ownedVehicle(ctx context.Context, ownerID, id uuid.UUID) (*models.Vehicle, error) {
	v, err := s.store.GetVehicle(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("vehicle")
	}
	if err != nil {
		return nil, err
	}
	if v.OwnerID != ownerID {
		return nil, apperr.ErrUnauthorized
	}
	return v, nil
}

func (s *Service) findVehicleByNo(ctx context.Context, ownerID uuid.UUID, no string) (*models.Vehicle, error) {
	vehicles, err := s.store.ListVehicles(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range vehicles {
		if vehicles[i].VehicleNo == no {
			return &vehicles[i], nil
		}
	}
	return nil, nil
}

func (s *Service) requireVehicle(ctx context.Context, ownerID uuid.UUID, no string) error {
	if no == "" {
		return apperr.Validation("vehicle is required")
	}
	v, err := s.findVehicleByNo(ctx, ownerID, no)
	if err != nil {
		return err
	}
	if v == nil {
		return apperr.NotFound("vehicle " + no)
	}
	return nil
}

// cleanDocuments trims document references and drops blank ones.
func cleanDocuments(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref = strings.TrimSpace(ref); ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

func checkVehicle(v *models.Vehicle) error {
	if v.VehicleNo == "" {
		return apperr.Validation("vehicle_no is required")
	}
	if v.TyreCount < 0 {
		return apperr.Validation("tyre_count cannot be negative")
	}
	if v.DieselQty.Valid && v.DieselQty.Decimal.IsNegative() {
		return apperr.Validation("diesel_qty cannot be negative")
	}
	if v.EMIAmount.Valid && v.EMIAmount.Decimal.IsNegative() {
		return apperr.Validation("emi_amount cannot be negative")
	}
	return nil
}

func checkAmount(amount decimal.NullDecimal) error {
	if !amount.Valid {
		return apperr.Validation("amount is required")
	}
	if amount.Decimal.IsNegative() {
		return apperr.Validation("amount cannot be negative")
	}
	return nil
}
