package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/app/repositories/memory"
	pkgAuth "github.com/yigit/saffron/internal/pkg/auth"
)

var fixedNow = time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	repos *repositories.Repositories
	svc   *Services
	seq   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewRepositories()
	tokens := pkgAuth.NewTokenService(pkgAuth.TokenConfig{
		Secret: "test-secret",
		TTL:    time.Hour,
		Issuer: "saffron-test",
	})
	svc := NewServices(repos, pkgAuth.NewBcryptHasher(bcrypt.MinCost), tokens, Options{
		DefaultRankLimit:   3,
		StudentEmailDomain: "example.ac.jp",
		Clock:              func() time.Time { return fixedNow },
	}, zerolog.Nop())

	return &fixture{t: t, ctx: context.Background(), repos: repos, svc: svc}
}

// student registers a fresh student with no screen name or GPA
func (f *fixture) student() *models.User {
	f.t.Helper()
	f.seq++
	user, err := f.svc.Users.Register(f.ctx, NewUser{
		Username: fmt.Sprintf("b%07d", f.seq),
		Password: "password123",
	})
	require.NoError(f.t, err)
	return user
}

// eligibleStudent registers a student that meets the GPA and screen name requirements
func (f *fixture) eligibleStudent(gpa float64) *models.User {
	f.t.Helper()
	user := f.student()
	name := "screen-" + user.Username
	updated, err := f.svc.Users.UpdateProfile(f.ctx, user, ProfileUpdate{ScreenName: &name, GPA: &gpa})
	require.NoError(f.t, err)
	return updated
}

func (f *fixture) staff() *models.User {
	f.t.Helper()
	f.seq++
	user, err := f.svc.Users.CreateSuperuser(f.ctx, fmt.Sprintf("staff%d", f.seq), "password123")
	require.NoError(f.t, err)
	return user
}

func (f *fixture) course(name string, year int, pin string) *models.Course {
	f.t.Helper()
	course, err := f.svc.Courses.CreateCourse(f.ctx, NewCourse{Name: name, Year: year, PIN: pin})
	require.NoError(f.t, err)
	return course
}

func (f *fixture) join(course *models.Course, pin string, users ...*models.User) {
	f.t.Helper()
	for _, u := range users {
		ok, err := f.svc.Courses.Join(f.ctx, course, u, pin)
		require.NoError(f.t, err)
		require.True(f.t, ok)
	}
}

func (f *fixture) labs(course *models.Course, names ...string) []*models.Lab {
	f.t.Helper()
	labs := make([]*models.Lab, 0, len(names))
	for _, n := range names {
		labs = append(labs, &models.Lab{CourseID: course.ID, Name: n, Capacity: 5})
	}
	require.NoError(f.t, f.repos.Labs.CreateMany(f.ctx, labs))
	return labs
}

func labIDs(labs ...*models.Lab) []int64 {
	ids := make([]int64, 0, len(labs))
	for _, l := range labs {
		ids = append(ids, l.ID)
	}
	return ids
}

func labNames(labs []*models.Lab) []string {
	names := make([]string, 0, len(labs))
	for _, l := range labs {
		names = append(names, l.Name)
	}
	return names
}
