package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MikeSquared-Agency/Collector/internal/scoring"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("account is inactive")
	ErrValidation         = errors.New("validation failed")
)

const MinPasswordLength = 8

// Directory authenticates users.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*store.User, error)
}

// StoreDirectory is a Directory over the user table with bcrypt hashes.
type StoreDirectory struct {
	store  store.Store
	logger *slog.Logger
	cost   int
	now    func() time.Time
}

func NewStoreDirectory(s store.Store, logger *slog.Logger) *StoreDirectory {
	return &StoreDirectory{
		store:  s,
		logger: logger.With("component", "auth"),
		cost:   bcrypt.DefaultCost,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

const clientIPKey contextKey = "client_ip"

// WithClientIP attaches the caller's address so login attempts can record it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

func (d *StoreDirectory) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	username = strings.TrimSpace(username)
	u, err := d.authenticate(ctx, username, password)

	attempt := &store.LoginAttempt{
		Username:    username,
		IPAddress:   clientIP(ctx),
		Success:     err == nil,
		AttemptedAt: d.now(),
	}
	if rerr := d.store.RecordLoginAttempt(ctx, attempt); rerr != nil {
		d.logger.Warn("failed to record login attempt", "username", username, "error", rerr)
	}
	if err != nil {
		d.logger.Info("login rejected", "username", username, "reason", err)
		return nil, err
	}

	if terr := d.store.TouchLastLogin(ctx, u.ID, attempt.AttemptedAt); terr != nil {
		d.logger.Warn("failed to update last login", "user_id", u.ID, "error", terr)
	} else {
		at := attempt.AttemptedAt
		u.LastLoginAt = &at
	}
	return u, nil
}

func (d *StoreDirectory) authenticate(ctx context.Context, username, password string) (*store.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := d.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return u, nil
}

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	AgencyName string `json:"agency_name"`
}

func (r RegisterRequest) validate() (store.Role, scoring.Agency, error) {
	var problems []string
	if strings.TrimSpace(r.Username) == "" {
		problems = append(problems, "username is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		problems = append(problems, "email is invalid")
	}
	if len(r.Password) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if strings.TrimSpace(r.FullName) == "" {
		problems = append(problems, "full_name is required")
	}

	var agency scoring.Agency
	role := store.Role(r.Role)
	switch role {
	case store.RoleAdmin:
		if r.AgencyName != "" {
			problems = append(problems, "admin users have no agency_name")
		}
	case store.RoleAgency:
		a, err := scoring.ParseAgency(r.AgencyName)
		if err != nil {
			problems = append(problems, "agency_name must be a known agency")
		}
		agency = a
	default:
		problems = append(problems, `role must be "admin" or "agency"`)
	}

	if len(problems) > 0 {
		return "", "", fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return role, agency, nil
}

// Register validates the request and creates an active user.
func (d *StoreDirectory) Register(ctx context.Context, req RegisterRequest) (*store.User, error) {
	role, agency, err := req.validate()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(req.Password, d.cost)
	if err != nil {
		return nil, err
	}
	u := &store.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		AgencyName:   agency,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    d.now(),
	}
	if err := d.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	d.logger.Info("user registered", "user_id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
