package auth

import (
	"context"
	"encoding/json"
	"strings"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/storage"
)

// Repository persists tenant users.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	ListByAdmin(ctx context.Context, adminID string) ([]User, error)
}

// usersOwner is the pseudo-tenant the user directory lives under; the
// directory spans tenants because login happens before the tenant is
// known.
const usersOwner = "_users"

// FlagRepository stores users through the flag surface, one record
// per email key. Works against any backend that implements Flags.
type FlagRepository struct {
	flags storage.Flags
}

func NewFlagRepository(flags storage.Flags) *FlagRepository {
	return &FlagRepository{flags: flags}
}

func (r *FlagRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	key := normalizeEmail(email)
	raw, err := r.flags.GetFlag(ctx, usersOwner, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, apperror.NewNotFound("user", email)
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return &user, nil
}

func (r *FlagRepository) Save(ctx context.Context, user *User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if err := r.flags.SetFlag(ctx, usersOwner, normalizeEmail(user.Email), string(raw)); err != nil {
		return err
	}
	return r.addToRoster(ctx, user)
}

// ListByAdmin returns every user on the tenant's roster. Roster
// entries whose user record has since disappeared are skipped.
func (r *FlagRepository) ListByAdmin(ctx context.Context, adminID string) ([]User, error) {
	emails, err := r.roster(ctx, adminID)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(emails))
	for _, email := range emails {
		user, err := r.GetByEmail(ctx, email)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func (r *FlagRepository) roster(ctx context.Context, adminID string) ([]string, error) {
	raw, err := r.flags.GetFlag(ctx, usersOwner, rosterKey(adminID))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var emails []string
	if err := json.Unmarshal([]byte(raw), &emails); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return emails, nil
}

func (r *FlagRepository) addToRoster(ctx context.Context, user *User) error {
	adminID := user.AdminID
	if adminID == "" {
		adminID = user.ID
	}
	emails, err := r.roster(ctx, adminID)
	if err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range emails {
		if existing == email {
			return nil
		}
	}
	raw, err := json.Marshal(append(emails, email))
	if err != nil {
		return apperror.NewInternal(err)
	}
	return r.flags.SetFlag(ctx, usersOwner, rosterKey(adminID), string(raw))
}

func rosterKey(adminID string) string {
	return "roster:" + adminID
}

func normalizeEmail(email string) string {
	return "user:" + strings.ToLower(strings.TrimSpace(email))
}
