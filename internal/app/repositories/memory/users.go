package memory

import (
	"context"
	"strings"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return apperrors.NewConflictError("a user with this username or email already exists")
		}
	}

	s.nextUserID++
	now := s.now()
	user.ID = s.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("User not found")
	}
	return copyUser(u), nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("User not found")
}

func (r *userRepo) Update(_ context.Context, user *models.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return apperrors.NewResourceNotFoundError("User not found")
	}
	for _, u := range s.users {
		if u.ID != user.ID && strings.EqualFold(u.Email, user.Email) {
			return apperrors.NewConflictError("a user with this email already exists")
		}
	}

	user.Username = existing.Username
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.now()
	s.users[user.ID] = copyUser(user)
	return nil
}

// Delete removes the user along with their memberships and ranks
func (r *userRepo) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return apperrors.NewResourceNotFoundError("User not found")
	}
	delete(s.users, id)
	for k := range s.memberships {
		if k.userID == id {
			delete(s.memberships, k)
		}
	}
	s.deleteRanksWhere(func(rk *models.Rank) bool { return rk.UserID == id })
	return nil
}
