// Package store persists users, vehicles and ledger records, each scoped by
// owning user, plus the short-lived pending signups awaiting verification.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/example/fleetledger/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// RecordFilter narrows ledger listings. Zero values mean "no restriction".
type RecordFilter struct {
	Vehicle       string
	PaymentStatus string
	Limit         int
	Offset        int
}

// UserStore holds verified accounts. Phone and email are unique.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// LedgerStore holds vehicles and income/expense records.
// Listings are ordered newest first and return the unpaginated total.
type LedgerStore interface {
	CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, ownerID uuid.UUID) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	DeleteVehicle(ctx context.Context, ownerID, id uuid.UUID) error

	CreateIncome(ctx context.Context, income *models.IncomeRecord) error
	ListIncomes(ctx context.Context, ownerID uuid.UUID, filter RecordFilter) ([]models.IncomeRecord, int64, error)
	CreateExpense(ctx context.Context, expense *models.ExpenseRecord) error
	ListExpenses(ctx context.Context, ownerID uuid.UUID, filter RecordFilter) ([]models.ExpenseRecord, int64, error)
}

// Store is the full ledger store.
type Store interface {
	UserStore
	LedgerStore
}

// PendingStore keeps one pending signup per phone number.
type PendingStore interface {
	// SavePending replaces whatever is pending for the phone.
	SavePending(ctx context.Context, pending models.PendingSignup) error
	GetPending(ctx context.Context, phone string) (*models.PendingSignup, error)
	DeletePending(ctx context.Context, phone string) error
	// ConsumePending deletes the pending signup only if it still carries code.
	ConsumePending(ctx context.Context, phone, code string) (bool, error)
}
