package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	users "github.com/AdamBeresnev/league-standings/internal/user"
	"github.com/jmoiron/sqlx"
)

// UserStore holds the referee accounts that report and publish results.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, id any) (*users.User, error) {
	var user users.User
	if err := get(ctx, s.db, &user, "SELECT * FROM users WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider, providerID string) (*users.User, error) {
	var user users.User
	err := get(ctx, s.db, &user, "SELECT * FROM users WHERE provider = ? AND provider_id = ?", provider, providerID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts user and stamps its creation time. An account that
// already exists under the same id is left untouched.
func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := exec(ctx, s.db, `INSERT INTO users (id, email, username, created_at, provider, provider_id, avatar_url)
        VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		user.ID, user.Email, user.Username, user.CreatedAt, user.Provider, user.ProviderID, user.AvatarURL)
	return err
}

// UpdateUserProfile refreshes the name and avatar shown next to the results a
// referee reported.
func (s *UserStore) UpdateUserProfile(ctx context.Context, user *users.User) error {
	n, err := exec(ctx, s.db, "UPDATE users SET username = ?, avatar_url = ? WHERE id = ?", user.Username, user.AvatarURL, user.ID)
	if err == nil && n == 0 {
		return bracket.ErrNotFound
	}
	return err
}
