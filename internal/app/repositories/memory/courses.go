package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

type yearRepo struct{ s *Store }

// resolveYear finds or creates the year row; caller holds the write lock
func (s *Store) resolveYear(year int) *models.Year {
	for _, y := range s.years {
		if y.Year == year {
			return y
		}
	}
	s.nextYearID++
	y := &models.Year{ID: s.nextYearID, Year: year}
	s.years[y.ID] = y
	return y
}

func (r *yearRepo) Resolve(_ context.Context, year int) (*models.Year, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	y := *r.s.resolveYear(year)
	return &y, nil
}

func (r *yearRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.years), nil
}

type courseRepo struct{ s *Store }

// nameTaken reports whether another course uses (name, yearID); caller holds the lock
func (s *Store) nameTaken(name string, yearID, exceptID int64) bool {
	for _, c := range s.courses {
		if c.ID != exceptID && c.YearID == yearID && c.Name == name {
			return true
		}
	}
	return false
}

func (r *courseRepo) Create(_ context.Context, course *models.Course) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check before resolving so a rejected create leaves no new year behind
	for _, y := range s.years {
		if y.Year == course.Year && s.nameTaken(course.Name, y.ID, 0) {
			return apperrors.DuplicateCourse(course.Name, course.Year)
		}
	}

	y := s.resolveYear(course.Year)
	s.nextCourseID++
	now := s.now()
	course.ID = s.nextCourseID
	course.YearID = y.ID
	course.CreatedAt = now
	course.UpdatedAt = now
	s.courses[course.ID] = copyCourse(course)
	return nil
}

func (r *courseRepo) GetByID(_ context.Context, id int64) (*models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.courses[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("Course not found")
	}
	return copyCourse(c), nil
}

func (r *courseRepo) List(_ context.Context, filter repositories.CourseFilter) ([]*models.Course, int64, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*models.Course
	for _, c := range s.courses {
		if filter.Year != nil && c.Year != *filter.Year {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		if filter.UserID != nil {
			if _, ok := s.memberships[membershipKey{c.ID, *filter.UserID}]; !ok {
				continue
			}
		}
		matched = append(matched, copyCourse(c))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Year != matched[j].Year {
			return matched[i].Year > matched[j].Year
		}
		return matched[i].Name < matched[j].Name
	})

	total := len(matched)
	start, end := filter.Page.Window(total)
	return matched[start:end], int64(total), nil
}

func (r *courseRepo) Update(_ context.Context, course *models.Course) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.courses[course.ID]
	if !ok {
		return apperrors.NewResourceNotFoundError("Course not found")
	}
	if s.nameTaken(course.Name, existing.YearID, course.ID) {
		return apperrors.DuplicateCourse(course.Name, existing.Year)
	}

	updated := copyCourse(existing)
	updated.Name = course.Name
	updated.PinHash = course.PinHash
	updated.Config = course.Config
	updated.UpdatedAt = s.now()
	s.courses[course.ID] = updated
	s.deleteRanksWhere(func(rk *models.Rank) bool {
		return rk.CourseID == course.ID && rk.Order >= course.Config.RankLimit
	})
	course.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *courseRepo) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[id]; !ok {
		return apperrors.NewResourceNotFoundError("Course not found")
	}
	s.deleteRanksWhere(func(rk *models.Rank) bool { return rk.CourseID == id })
	for k := range s.memberships {
		if k.courseID == id {
			delete(s.memberships, k)
		}
	}
	for labID, l := range s.labs {
		if l.CourseID == id {
			delete(s.labs, labID)
		}
	}
	delete(s.courses, id)
	return nil
}
