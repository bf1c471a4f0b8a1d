package memory

import (
	"context"
	"sort"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

type rankRepo struct{ s *Store }

func (r *rankRepo) Replace(_ context.Context, userID, courseID int64, labIDs []int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memberships[membershipKey{courseID, userID}]; !ok {
		return apperrors.ErrNotJoined
	}

	// Validate everything before touching the table so a rejected submission changes nothing
	seen := map[int64]bool{}
	var missing []int64
	for _, id := range labIDs {
		if seen[id] {
			return apperrors.ErrDuplicateRank
		}
		seen[id] = true
		if _, ok := s.labs[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return apperrors.UnknownLabs(missing)
	}

	s.deleteRanksWhere(func(rk *models.Rank) bool { return rk.UserID == userID && rk.CourseID == courseID })
	for order, labID := range labIDs {
		s.nextRankID++
		s.ranks[s.nextRankID] = &models.Rank{
			ID:       s.nextRankID,
			UserID:   userID,
			CourseID: courseID,
			LabID:    labID,
			Order:    order,
		}
	}
	return nil
}

func (r *rankRepo) ListLabs(_ context.Context, userID, courseID int64) ([]*models.Lab, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	labs := []*models.Lab{}
	for _, rk := range s.ranksOf(userID, courseID) {
		if l, ok := s.labs[rk.LabID]; ok {
			labs = append(labs, copyLab(l))
		}
	}
	return labs, nil
}

func (r *rankRepo) HasSubmitted(_ context.Context, userID, courseID int64) (bool, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ranksOf(userID, courseID)) > 0, nil
}

func (r *rankRepo) ListRankers(_ context.Context, labID int64) ([]*models.LabRanker, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	rankers := []*models.LabRanker{}
	for _, rk := range s.ranks {
		if rk.LabID != labID {
			continue
		}
		if u, ok := s.users[rk.UserID]; ok {
			rankers = append(rankers, &models.LabRanker{Order: rk.Order, User: copyUser(u)})
		}
	}
	sort.Slice(rankers, func(i, j int) bool {
		if rankers[i].Order != rankers[j].Order {
			return rankers[i].Order < rankers[j].Order
		}
		return rankers[i].User.Username < rankers[j].User.Username
	})
	return rankers, nil
}
