package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/libresonic/playersettings/internal/auth"
	"github.com/libresonic/playersettings/internal/database"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)

type User struct {
	ID        string
	Username  string
	Email     string
	AdminRole bool
}

// Service resolves users and the user behind the current request.
type Service struct {
	db database.DBTX
}

func NewService(db database.DBTX) *Service {
	return &Service{db: db}
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	var email *string
	err := s.db.QueryRow(ctx,
		`SELECT id, username, email, admin_role FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &email, &u.AdminRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user %s: %w", id, err)
	}
	if email != nil {
		u.Email = *email
	}
	return &u, nil
}

// CurrentUser returns the user authenticated by auth middleware.
func (s *Service) CurrentUser(r *http.Request) (*User, error) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	u, err := s.GetByID(r.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	return u, err
}
