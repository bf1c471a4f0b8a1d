package memory

import (
	"context"
	"sort"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

type membershipRepo struct{ s *Store }

func (r *membershipRepo) Role(_ context.Context, courseID, userID int64) (models.MembershipRole, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.memberships[membershipKey{courseID, userID}]
	if !ok {
		return models.RoleNone, nil
	}
	return m.Role, nil
}

func (r *membershipRepo) Add(_ context.Context, courseID, userID int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[courseID]; !ok {
		return apperrors.NewResourceNotFoundError("Course or user not found")
	}
	if _, ok := s.users[userID]; !ok {
		return apperrors.NewResourceNotFoundError("Course or user not found")
	}
	key := membershipKey{courseID, userID}
	if _, ok := s.memberships[key]; ok {
		return apperrors.ErrAlreadyJoined
	}
	s.memberships[key] = &models.Membership{
		CourseID: courseID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: s.now(),
	}
	return nil
}

func (r *membershipRepo) Remove(_ context.Context, courseID, userID int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{courseID, userID}
	if _, ok := s.memberships[key]; !ok {
		return apperrors.ErrNotJoined
	}
	delete(s.memberships, key)
	s.deleteRanksWhere(func(rk *models.Rank) bool { return rk.CourseID == courseID && rk.UserID == userID })
	return nil
}

func (r *membershipRepo) Promote(_ context.Context, courseID, userID int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[membershipKey{courseID, userID}]
	if !ok {
		return apperrors.ErrNotJoined
	}
	m.Role = models.RoleAdmin
	return nil
}

func (r *membershipRepo) Demote(_ context.Context, courseID, userID int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[membershipKey{courseID, userID}]
	if !ok || m.Role != models.RoleAdmin {
		return apperrors.ErrNotAdmin
	}
	m.Role = models.RoleMember
	return nil
}

func (r *membershipRepo) List(_ context.Context, courseID int64, role models.MembershipRole) ([]*models.Member, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := []*models.Member{}
	for k, m := range s.memberships {
		if k.courseID != courseID {
			continue
		}
		if role != models.RoleNone && m.Role != role {
			continue
		}
		u, ok := s.users[k.userID]
		if !ok {
			continue
		}
		members = append(members, &models.Member{User: copyUser(u), Role: m.Role, JoinedAt: m.JoinedAt})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].User.Username < members[j].User.Username })
	return members, nil
}
