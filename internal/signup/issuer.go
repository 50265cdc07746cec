// Package signup gates account creation behind a one-time code sent to the
// applicant's phone, and issues session tokens for verified users.
package signup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/fleetledger/internal/apperr"
	"github.com/example/fleetledger/internal/metrics"
	"github.com/example/fleetledger/internal/models"
	"github.com/example/fleetledger/internal/services"
	"github.com/example/fleetledger/internal/store"
	"github.com/example/fleetledger/internal/utils"
)

// Options tune the one-time code.
type Options struct {
	CodeTTL    time.Duration
	CodeLength int
	// DevEcho returns the generated code to the caller. Never enable in production.
	DevEcho bool
}

// Ticket acknowledges a signup or resend request.
type Ticket struct {
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code,omitempty"`
}

// Session is a signed token and the user it is bound to.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Issuer runs the signup, verify and login flows.
type Issuer struct {
	users    store.UserStore
	pending  store.PendingStore
	hasher   utils.Hasher
	tokens   *utils.TokenSigner
	notifier services.Notifier
	clock    utils.Clock
	opts     Options
	logger   *zap.Logger

	// dummyHash is checked for unknown phones so login timing does not reveal them.
	dummyHash string
}

func NewIssuer(
	users store.UserStore,
	pending store.PendingStore,
	hasher utils.Hasher,
	tokens *utils.TokenSigner,
	notifier services.Notifier,
	clock utils.Clock,
	opts Options,
	logger *zap.Logger,
) (*Issuer, error) {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 5 * time.Minute
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = 5
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &Issuer{
		users:     users,
		pending:   pending,
		hasher:    hasher,
		tokens:    tokens,
		notifier:  notifier,
		clock:     clock,
		opts:      opts,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// RequestSignup validates the profile, stores a pending signup with a fresh
// code and sends the code to the phone. Any earlier pending signup for the
// same phone is replaced.
func (i *Issuer) RequestSignup(ctx context.Context, profile models.Profile) (ticket *Ticket, err error) {
	defer func() { metrics.SignupEvents.WithLabelValues("request", outcome(err)).Inc() }()

	profile = profile.Normalize()
	if missing := profile.MissingFields(); len(missing) > 0 {
		return nil, apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if err := i.ensureUnclaimed(ctx, profile.Phone, profile.Email); err != nil {
		return nil, err
	}

	return i.issueCode(ctx, profile)
}

// ResendSignup replaces the code of a pending signup and restarts its expiry.
func (i *Issuer) ResendSignup(ctx context.Context, phone string) (ticket *Ticket, err error) {
	defer func() { metrics.SignupEvents.WithLabelValues("resend", outcome(err)).Inc() }()

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperr.Validation("phone is required")
	}

	current, err := i.pending.GetPending(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("pending signup")
	}
	if err != nil {
		return nil, err
	}

	return i.issueCode(ctx, current.Profile)
}

func (i *Issuer) issueCode(ctx context.Context, profile models.Profile) (*Ticket, error) {
	code, err := utils.GenerateCode(i.opts.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	pending := models.PendingSignup{
		Phone:     profile.Phone,
		Code:      code,
		Profile:   profile,
		ExpiresAt: i.clock.Now().Add(i.opts.CodeTTL),
	}
	if err := i.pending.SavePending(ctx, pending); err != nil {
		return nil, err
	}

	msg := services.Message{
		To:        profile.Phone,
		Text:      fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(i.opts.CodeTTL.Minutes())),
		Sensitive: true,
	}
	if err := i.notifier.Send(ctx, msg); err != nil {
		i.logger.Error("failed to deliver verification code", zap.String("phone", profile.Phone), zap.Error(err))
		return nil, fmt.Errorf("deliver verification code: %w", err)
	}

	ticket := &Ticket{Phone: pending.Phone, ExpiresAt: pending.ExpiresAt}
	if i.opts.DevEcho {
		ticket.Code = code
	}
	return ticket, nil
}

// VerifySignup consumes the pending signup for phone when code matches,
// creates the user and opens a session for it.
func (i *Issuer) VerifySignup(ctx context.Context, phone, code string) (session *Session, err error) {
	defer func() { metrics.SignupEvents.WithLabelValues("verify", outcome(err)).Inc() }()

	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, apperr.Validation("phone and code are required")
	}

	pending, err := i.pending.GetPending(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("pending signup")
	}
	if err != nil {
		return nil, err
	}

	if pending.Expired(i.clock.Now()) {
		if err := i.pending.DeletePending(ctx, phone); err != nil {
			i.logger.Warn("failed to drop expired signup", zap.String("phone", phone), zap.Error(err))
		}
		return nil, apperr.ErrExpired
	}
	if !utils.CodesEqual(pending.Code, code) {
		return nil, apperr.ErrInvalidCode
	}

	profile := pending.Profile
	if err := i.ensureUnclaimed(ctx, profile.Phone, profile.Email); err != nil {
		if derr := i.pending.DeletePending(ctx, phone); derr != nil {
			i.logger.Warn("failed to drop claimed signup", zap.String("phone", phone), zap.Error(derr))
		}
		return nil, err
	}

	hash, err := i.hasher.Hash(profile.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// A resend or a concurrent verify may have replaced or consumed the
	// record since it was read; only the holder of the current code wins.
	consumed, err := i.pending.ConsumePending(ctx, phone, code)
	if err != nil {
		return nil, err
	}
	if !consumed {
		if _, err := i.pending.GetPending(ctx, phone); errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("pending signup")
		}
		return nil, apperr.ErrInvalidCode
	}

	user := &models.User{
		FullName:     profile.FullName,
		Phone:        profile.Phone,
		Email:        profile.Email,
		PasswordHash: hash,
		Address:      profile.Address,
		City:         profile.City,
		State:        profile.State,
		Zip:          profile.Zip,
		Company:      profile.Company,
	}
	if err := i.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrDuplicateUser
		}
		// put the signup back so the applicant can retry with the same code
		if rerr := i.pending.SavePending(ctx, *pending); rerr != nil {
			i.logger.Error("failed to restore pending signup", zap.String("phone", phone), zap.Error(rerr))
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	i.logger.Info("user verified", zap.String("user_id", user.ID.String()))
	return i.openSession(user)
}

// Login checks the password of the user registered under phone.
// Unknown phones and wrong passwords fail identically.
func (i *Issuer) Login(ctx context.Context, phone, password string) (session *Session, err error) {
	defer func() { metrics.SignupEvents.WithLabelValues("login", outcome(err)).Inc() }()

	user, err := i.users.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if errors.Is(err, store.ErrNotFound) {
		i.hasher.Check(i.dummyHash, password)
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !i.hasher.Check(user.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	return i.openSession(user)
}

// Authenticate resolves a bearer token to the user it was issued for.
func (i *Issuer) Authenticate(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, fmt.Errorf("%w: missing token", apperr.ErrUnauthenticated)
	}
	userID, err := i.tokens.Parse(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	return userID, nil
}

// CurrentUser loads the profile of an authenticated user.
func (i *Issuer) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := i.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user")
	}
	return user, err
}

func (i *Issuer) openSession(user *models.User) (*Session, error) {
	token, expiresAt, err := i.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (i *Issuer) ensureUnclaimed(ctx context.Context, phone, email string) error {
	if _, err := i.users.GetUserByPhone(ctx, phone); err == nil {
		return apperr.ErrDuplicateUser
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if _, err := i.users.GetUserByEmail(ctx, email); err == nil {
		return apperr.ErrDuplicateUser
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// outcome labels signup metrics by error kind rather than raw message.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	case errors.Is(err, apperr.ErrDuplicateUser):
		return "duplicate"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrExpired):
		return "expired"
	case errors.Is(err, apperr.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return "denied"
	default:
		return "error"
	}
}
