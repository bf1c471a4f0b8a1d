package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

type labRepo struct{ s *Store }

// labNameTaken reports whether another lab of the course uses name; caller holds the lock
func (s *Store) labNameTaken(courseID int64, name string, exceptID int64) bool {
	for _, l := range s.labs {
		if l.ID != exceptID && l.CourseID == courseID && l.Name == name {
			return true
		}
	}
	return false
}

func (r *labRepo) CreateMany(_ context.Context, labs []*models.Lab) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	for _, lab := range labs {
		if _, ok := s.courses[lab.CourseID]; !ok {
			return apperrors.NewResourceNotFoundError("Course not found")
		}
		key := fmt.Sprintf("%d/%s", lab.CourseID, lab.Name)
		if seen[key] || s.labNameTaken(lab.CourseID, lab.Name, 0) {
			return apperrors.DuplicateLab(lab.Name)
		}
		seen[key] = true
	}

	for _, lab := range labs {
		s.nextLabID++
		lab.ID = s.nextLabID
		s.labs[lab.ID] = copyLab(lab)
	}
	return nil
}

func (r *labRepo) GetByID(_ context.Context, courseID, labID int64) (*models.Lab, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.labs[labID]
	if !ok || l.CourseID != courseID {
		return nil, apperrors.NewResourceNotFoundError("Lab not found")
	}
	return copyLab(l), nil
}

func (r *labRepo) ListByCourse(_ context.Context, courseID int64) ([]*models.Lab, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	labs := []*models.Lab{}
	for _, l := range r.s.labs {
		if l.CourseID == courseID {
			labs = append(labs, copyLab(l))
		}
	}
	sort.Slice(labs, func(i, j int) bool {
		if labs[i].Name != labs[j].Name {
			return labs[i].Name < labs[j].Name
		}
		return labs[i].ID < labs[j].ID
	})
	return labs, nil
}

func (r *labRepo) Update(_ context.Context, lab *models.Lab) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.labs[lab.ID]
	if !ok || existing.CourseID != lab.CourseID {
		return apperrors.NewResourceNotFoundError("Lab not found")
	}
	if s.labNameTaken(lab.CourseID, lab.Name, lab.ID) {
		return apperrors.DuplicateLab(lab.Name)
	}
	existing.Name = lab.Name
	existing.Capacity = lab.Capacity
	return nil
}

func (r *labRepo) Delete(_ context.Context, courseID, labID int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.labs[labID]
	if !ok || l.CourseID != courseID {
		return apperrors.NewResourceNotFoundError("Lab not found")
	}
	delete(s.labs, labID)
	s.deleteRanksWhere(func(rk *models.Rank) bool { return rk.LabID == labID })
	return nil
}
