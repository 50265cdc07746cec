package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Payment statuses for income records.
const (
	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"
)

// IncomeRecord is money received for a trip or contract.
type IncomeRecord struct {
	BaseModel
	OwnerID       uuid.UUID           `gorm:"type:uuid;index" json:"owner_id"`
	Vehicle       string              `gorm:"index" json:"vehicle"`
	Amount        decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"amount"`
	PaymentStatus string              `json:"payment_status"`
	PayerCompany  string              `json:"payer_company"`
	PayerMobile   string              `json:"payer_mobile"`
	Notes         string              `json:"notes"`
	Date          time.Time           `gorm:"index" json:"date"`
	Documents     pq.StringArray      `gorm:"type:text[]" json:"documents"`
}

// ExpenseRecord is money spent on a vehicle. It always carries supporting documents.
type ExpenseRecord struct {
	BaseModel
	OwnerID     uuid.UUID           `gorm:"type:uuid;index" json:"owner_id"`
	Vehicle     string              `gorm:"index" json:"vehicle"`
	Amount      decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"amount"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Details     string              `json:"details"`
	Date        time.Time           `gorm:"index" json:"date"`
	Documents   pq.StringArray      `gorm:"type:text[]" json:"documents"`
}

// AmountOrZero returns the amount, treating a missing value as zero.
func AmountOrZero(amount decimal.NullDecimal) decimal.Decimal {
	if !amount.Valid {
		return decimal.Zero
	}
	return amount.Decimal
}
