package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/example/fleetledger/internal/ledger"
	"github.com/example/fleetledger/internal/middleware"
	"github.com/example/fleetledger/internal/models"
)

// VehicleHandler serves the owner's vehicle register.
type VehicleHandler struct {
	ledger   *ledger.Service
	uploader *Uploader
}

func NewVehicleHandler(svc *ledger.Service, uploader *Uploader) *VehicleHandler {
	return &VehicleHandler{ledger: svc, uploader: uploader}
}

type vehicleRequest struct {
	VehicleNo     string      `json:"vehicle_no" form:"vehicle_no"`
	Model         string      `json:"model" form:"model"`
	TyreCount     json.Number `json:"tyre_count" form:"tyre_count"`
	DieselQty     json.Number `json:"diesel_qty" form:"diesel_qty"`
	OwnerName     string      `json:"owner_name" form:"owner_name"`
	DueDate       string      `json:"due_date" form:"due_date"`
	PollutionDate string      `json:"pollution_date" form:"pollution_date"`
	TaxDate       string      `json:"tax_date" form:"tax_date"`
	InsuranceDate string      `json:"insurance_date" form:"insurance_date"`
	FCDate        string      `json:"fc_date" form:"fc_date"`
	PermitDate    string      `json:"permit_date" form:"permit_date"`
	LoanProvider  string      `json:"loan_provider" form:"loan_provider"`
	EMIAmount     json.Number `json:"emi_amount" form:"emi_amount"`
	Documents     []string    `json:"documents" form:"-"`
}

func (r vehicleRequest) toModel() (*models.Vehicle, error) {
	v := &models.Vehicle{
		VehicleNo:    r.VehicleNo,
		Model:        r.Model,
		OwnerName:    r.OwnerName,
		LoanProvider: r.LoanProvider,
		Documents:    r.Documents,
	}

	var err error
	if v.TyreCount, err = parseInt("tyre_count", r.TyreCount); err != nil {
		return nil, err
	}
	if v.DieselQty, err = parseAmount("diesel_qty", r.DieselQty); err != nil {
		return nil, err
	}
	if v.EMIAmount, err = parseAmount("emi_amount", r.EMIAmount); err != nil {
		return nil, err
	}

	dates := []struct {
		field string
		raw   string
		dst   *models.Date
	}{
		{"due_date", r.DueDate, &v.DueDate},
		{"pollution_date", r.PollutionDate, &v.PollutionDate},
		{"tax_date", r.TaxDate, &v.TaxDate},
		{"insurance_date", r.InsuranceDate, &v.InsuranceDate},
		{"fc_date", r.FCDate, &v.FCDate},
		{"permit_date", r.PermitDate, &v.PermitDate},
	}
	for _, d := range dates {
		if *d.dst, err = parseDate(d.field, d.raw); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// bind returns the vehicle and the references of any files stored for it.
func (h *VehicleHandler) bind(c *fiber.Ctx) (*models.Vehicle, []string, error) {
	var req vehicleRequest
	if err := parseBody(c, &req); err != nil {
		return nil, nil, err
	}
	v, err := req.toModel()
	if err != nil {
		return nil, nil, err
	}

	uploaded, err := h.uploader.Collect(c)
	if err != nil {
		return nil, nil, err
	}
	v.Documents = append(v.Documents, uploaded...)
	return v, uploaded, nil
}

// CreateVehicle registers a vehicle for the current user.
func (h *VehicleHandler) CreateVehicle(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	v, uploaded, err := h.bind(c)
	if err != nil {
		return err
	}

	created, err := h.ledger.AddVehicle(c.UserContext(), userID, v)
	if err != nil {
		h.uploader.Discard(c.UserContext(), uploaded)
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Vehicle added successfully",
		"data":    created,
	})
}

// ListVehicles returns the current user's vehicles, newest first.
func (h *VehicleHandler) ListVehicles(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}

	vehicles, err := h.ledger.ListVehicles(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": vehicles})
}

// UpdateVehicle replaces a vehicle's details.
func (h *VehicleHandler) UpdateVehicle(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	v, uploaded, err := h.bind(c)
	if err != nil {
		return err
	}

	updated, err := h.ledger.UpdateVehicle(c.UserContext(), userID, id, v)
	if err != nil {
		h.uploader.Discard(c.UserContext(), uploaded)
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Vehicle updated successfully",
		"data":    updated,
	})
}

// DeleteVehicle removes a vehicle. Its income and expense history is kept.
func (h *VehicleHandler) DeleteVehicle(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.ledger.DeleteVehicle(c.UserContext(), userID, id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "Vehicle deleted successfully"})
}
