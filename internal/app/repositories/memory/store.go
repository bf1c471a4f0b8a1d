// Package memory is an in-process implementation of the repository interfaces.
// One RWMutex guards every table, so each operation is atomic with respect to the others.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
)

type membershipKey struct {
	courseID int64
	userID   int64
}

// Store holds all tables
type Store struct {
	mu sync.RWMutex

	users       map[int64]*models.User
	years       map[int64]*models.Year
	courses     map[int64]*models.Course
	memberships map[membershipKey]*models.Membership
	labs        map[int64]*models.Lab
	ranks       map[int64]*models.Rank

	nextUserID   int64
	nextYearID   int64
	nextCourseID int64
	nextLabID    int64
	nextRankID   int64

	now func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:       map[int64]*models.User{},
		years:       map[int64]*models.Year{},
		courses:     map[int64]*models.Course{},
		memberships: map[membershipKey]*models.Membership{},
		labs:        map[int64]*models.Lab{},
		ranks:       map[int64]*models.Rank{},
		now:         time.Now,
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:       &userRepo{s},
		Years:       &yearRepo{s},
		Courses:     &courseRepo{s},
		Memberships: &membershipRepo{s},
		Labs:        &labRepo{s},
		Ranks:       &rankRepo{s},
	}
}

// NewRepositories returns repositories over a fresh store
func NewRepositories() *repositories.Repositories {
	return NewStore().Repositories()
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.ScreenName != nil {
		v := *u.ScreenName
		c.ScreenName = &v
	}
	if u.GPA != nil {
		v := *u.GPA
		c.GPA = &v
	}
	return &c
}

func copyCourse(c *models.Course) *models.Course {
	out := *c
	return &out
}

func copyLab(l *models.Lab) *models.Lab {
	out := *l
	return &out
}

// ranksOf returns the rows for (user, course) sorted by order; caller holds the lock
func (s *Store) ranksOf(userID, courseID int64) []*models.Rank {
	var out []*models.Rank
	for _, r := range s.ranks {
		if r.UserID == userID && r.CourseID == courseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// deleteRanksWhere drops matching rank rows; caller holds the write lock
func (s *Store) deleteRanksWhere(match func(*models.Rank) bool) {
	for id, r := range s.ranks {
		if match(r) {
			delete(s.ranks, id)
		}
	}
}
