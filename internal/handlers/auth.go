package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/fleetledger/internal/models"
	"github.com/example/fleetledger/internal/signup"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	issuer *signup.Issuer
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(issuer *signup.Issuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

type signupRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Company  string `json:"company"`
}

// Signup starts phone verification for a new account.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.issuer.RequestSignup(c.UserContext(), models.Profile(req))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "OTP sent to your phone",
		"data":    ticket,
	})
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

// ResendOTP issues a fresh code for a pending signup.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req phoneRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.issuer.ResendSignup(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP resent",
		"data":    ticket,
	})
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// VerifyOTP confirms the code and creates the account.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.issuer.VerifySignup(c.UserContext(), req.Phone, req.Code)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(sessionResponse("Account created", session))
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.issuer.Login(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(sessionResponse("Login successful", session))
}

func sessionResponse(message string, session *signup.Session) fiber.Map {
	return fiber.Map{
		"success":    true,
		"message":    message,
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
	}
}
