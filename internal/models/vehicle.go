package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Vehicle is a truck registered by an operator, with its compliance dates.
type Vehicle struct {
	BaseModel
	OwnerID       uuid.UUID           `gorm:"type:uuid;index" json:"owner_id"`
	VehicleNo     string              `gorm:"index" json:"vehicle_no"`
	Model         string              `json:"model"`
	TyreCount     int                 `json:"tyre_count"`
	DieselQty     decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"diesel_qty"`
	OwnerName     string              `json:"owner_name"`
	DueDate       Date                `json:"due_date"`
	PollutionDate Date                `json:"pollution_date"`
	TaxDate       Date                `json:"tax_date"`
	InsuranceDate Date                `json:"insurance_date"`
	FCDate        Date                `gorm:"column:fc_date" json:"fc_date"`
	PermitDate    Date                `json:"permit_date"`
	LoanProvider  string              `json:"loan_provider"`
	EMIAmount     decimal.NullDecimal `gorm:"column:emi_amount;type:numeric(14,2)" json:"emi_amount"`
	Documents     pq.StringArray      `gorm:"type:text[]" json:"documents"`
}

// ComplianceDate pairs a display label with one of a vehicle's tracked dates.
type ComplianceDate struct {
	Label string
	Date  Date
}

// ComplianceDates returns the six tracked dates in display order, set or not.
func (v Vehicle) ComplianceDates() []ComplianceDate {
	return []ComplianceDate{
		{Label: "Due Date", Date: v.DueDate},
		{Label: "Pollution", Date: v.PollutionDate},
		{Label: "Tax", Date: v.TaxDate},
		{Label: "Insurance", Date: v.InsuranceDate},
		{Label: "FC", Date: v.FCDate},
		{Label: "Permit", Date: v.PermitDate},
	}
}

// NormalizeVehicleNo canonicalises a registration number for storage and lookups.
func NormalizeVehicleNo(no string) string {
	return strings.ToUpper(strings.TrimSpace(no))
}
