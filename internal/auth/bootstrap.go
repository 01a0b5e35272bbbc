package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/MikeSquared-Agency/Collector/internal/config"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

// EnsureBootstrapAdmin creates the configured admin account if it is missing.
// It reports whether a user was created.
func (d *StoreDirectory) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapAdmin) (bool, error) {
	if cfg.Username == "" {
		return false, nil
	}
	_, err := d.store.GetUserByUsername(ctx, cfg.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("lookup bootstrap admin: %w", err)
	}

	hash := cfg.PasswordHash
	switch {
	case hash != "":
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return false, fmt.Errorf("bootstrap admin password_hash is not a bcrypt hash: %w", err)
		}
	case cfg.Password != "":
		if hash, err = HashPassword(cfg.Password, d.cost); err != nil {
			return false, err
		}
	default:
		return false, errors.New("bootstrap admin needs a password or password_hash")
	}

	u := &store.User{
		Username:     cfg.Username,
		Email:        cfg.Email,
		FullName:     "Administrator",
		Role:         store.RoleAdmin,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    d.now(),
	}
	if err := d.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return false, nil
		}
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	d.logger.Info("bootstrap admin created", "username", u.Username)
	return true, nil
}
