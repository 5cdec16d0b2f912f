package service

import (
	"context"
	"errors"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/AdamBeresnev/league-standings/internal/store"
	users "github.com/AdamBeresnev/league-standings/internal/user"
	"github.com/AdamBeresnev/league-standings/internal/utils"
	"github.com/google/uuid"
	"github.com/markbates/goth"
)

type UserService struct {
	store *store.UserStore
}

func NewUserService(store *store.UserStore) *UserService {
	return &UserService{store: store}
}

// FindOrCreateUserByProvider returns the referee account linked to an OAuth
// login, creating it on first sign in.
func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)

	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != username(gothUser) {
			user.AvatarURL = utils.Ptr(gothUser.AvatarURL)
			user.Username = username(gothUser)
			if err := s.store.UpdateUserProfile(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	if errors.Is(err, bracket.ErrNotFound) {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   username(gothUser),
			Provider:   utils.Ptr(gothUser.Provider),
			ProviderID: utils.Ptr(gothUser.UserID),
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		err := s.store.CreateUser(ctx, newUser)
		return newUser, err
	}

	return nil, err
}

// EnsureGuestUser returns the shared guest referee, creating it on first use.
func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	guest := &users.User{
		ID:       users.GuestID,
		Email:    "guest@league-standings.local",
		Username: "Guest Referee",
	}
	if err := s.store.CreateUser(ctx, guest); err != nil {
		return nil, err
	}
	return s.store.GetUser(ctx, users.GuestID)
}

func username(u goth.User) string {
	if u.NickName != "" {
		return u.NickName
	}
	return u.Name
}
