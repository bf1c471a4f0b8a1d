package repositories_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/app/repositories/memory"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

// factory returns an empty store for one test
type factory func(t *testing.T) *repositories.Repositories

func TestMemoryRepositories(t *testing.T) {
	runRepositorySuite(t, func(*testing.T) *repositories.Repositories {
		return memory.NewRepositories()
	})
}

func runRepositorySuite(t *testing.T, newRepos factory) {
	t.Run("years are shared between courses", func(t *testing.T) { testYearDedup(t, newRepos(t)) })
	t.Run("course name is unique per year", func(t *testing.T) { testCourseUniqueness(t, newRepos(t)) })
	t.Run("membership transitions", func(t *testing.T) { testMembership(t, newRepos(t)) })
	t.Run("ranks replace atomically", func(t *testing.T) { testRanks(t, newRepos(t)) })
	t.Run("lowering the rank limit trims ranks", func(t *testing.T) { testRankLimitLowered(t, newRepos(t)) })
	t.Run("concurrent joins admit one", func(t *testing.T) { testConcurrentJoin(t, newRepos(t)) })
	t.Run("concurrent rank replaces stay whole", func(t *testing.T) { testConcurrentReplace(t, newRepos(t)) })
	t.Run("course delete cascades", func(t *testing.T) { testCourseDelete(t, newRepos(t)) })
	t.Run("user delete cascades", func(t *testing.T) { testUserDelete(t, newRepos(t)) })
}

func mustUser(t *testing.T, repos *repositories.Repositories, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.ac.jp", PasswordHash: "x", IsActive: true}
	require.NoError(t, repos.Users.Create(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func mustCourse(t *testing.T, repos *repositories.Repositories, name string, year int) *models.Course {
	t.Helper()
	c := &models.Course{Name: name, Year: year, PinHash: "hash", Config: models.DefaultCourseConfig()}
	require.NoError(t, repos.Courses.Create(context.Background(), c))
	require.NotZero(t, c.ID)
	return c
}

func mustLabs(t *testing.T, repos *repositories.Repositories, course *models.Course, names ...string) []*models.Lab {
	t.Helper()
	labs := make([]*models.Lab, 0, len(names))
	for _, n := range names {
		labs = append(labs, &models.Lab{CourseID: course.ID, Name: n})
	}
	require.NoError(t, repos.Labs.CreateMany(context.Background(), labs))
	return labs
}

func testYearDedup(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()

	a := mustCourse(t, repos, "Physics", 2024)
	b := mustCourse(t, repos, "Chemistry", 2024)
	c := mustCourse(t, repos, "Physics", 2025)

	assert.Equal(t, a.YearID, b.YearID)
	assert.NotEqual(t, a.YearID, c.YearID)

	count, err := repos.Years.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	y, err := repos.Years.Resolve(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, a.YearID, y.ID)
}

func testCourseUniqueness(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	mustCourse(t, repos, "Physics", 2024)

	err := repos.Courses.Create(ctx, &models.Course{Name: "Physics", Year: 2024, PinHash: "h", Config: models.DefaultCourseConfig()})
	require.ErrorIs(t, err, apperrors.ErrDuplicateCourse)

	other := mustCourse(t, repos, "Biology", 2024)
	other.Name = "Physics"
	require.ErrorIs(t, repos.Courses.Update(ctx, other), apperrors.ErrDuplicateCourse)

	stored, err := repos.Courses.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Biology", stored.Name)

	_, err = repos.Courses.GetByID(ctx, 9999)
	require.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func testMembership(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	course := mustCourse(t, repos, "Physics", 2024)
	user := mustUser(t, repos, "b1234567")

	role, err := repos.Memberships.Role(ctx, course.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleNone, role)

	require.ErrorIs(t, repos.Memberships.Promote(ctx, course.ID, user.ID), apperrors.ErrNotJoined)
	require.ErrorIs(t, repos.Memberships.Remove(ctx, course.ID, user.ID), apperrors.ErrNotJoined)

	require.NoError(t, repos.Memberships.Add(ctx, course.ID, user.ID))
	require.ErrorIs(t, repos.Memberships.Add(ctx, course.ID, user.ID), apperrors.ErrAlreadyJoined)
	require.ErrorIs(t, repos.Memberships.Demote(ctx, course.ID, user.ID), apperrors.ErrNotAdmin)

	require.NoError(t, repos.Memberships.Promote(ctx, course.ID, user.ID))
	require.NoError(t, repos.Memberships.Promote(ctx, course.ID, user.ID))

	admins, err := repos.Memberships.List(ctx, course.ID, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, user.ID, admins[0].User.ID)

	require.NoError(t, repos.Memberships.Demote(ctx, course.ID, user.ID))
	role, err = repos.Memberships.Role(ctx, course.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)

	require.ErrorIs(t, repos.Memberships.Add(ctx, 9999, user.ID), apperrors.ErrResourceNotFound)
}

func testRanks(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	course := mustCourse(t, repos, "Physics", 2024)
	user := mustUser(t, repos, "b1234567")
	labs := mustLabs(t, repos, course, "LabA", "LabB", "LabC")

	require.ErrorIs(t, repos.Ranks.Replace(ctx, user.ID, course.ID, []int64{labs[0].ID}), apperrors.ErrNotJoined)

	require.NoError(t, repos.Memberships.Add(ctx, course.ID, user.ID))
	require.NoError(t, repos.Ranks.Replace(ctx, user.ID, course.ID, []int64{labs[1].ID, labs[0].ID}))

	ranked, err := repos.Ranks.ListLabs(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "LabB", ranked[0].Name)
	assert.Equal(t, "LabA", ranked[1].Name)

	err = repos.Ranks.Replace(ctx, user.ID, course.ID, []int64{labs[2].ID, labs[2].ID})
	require.ErrorIs(t, err, apperrors.ErrDuplicateRank)

	ranked, err = repos.Ranks.ListLabs(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, ranked, 2, "a rejected replace keeps the previous list")

	rankers, err := repos.Ranks.ListRankers(ctx, labs[0].ID)
	require.NoError(t, err)
	require.Len(t, rankers, 1)
	assert.Equal(t, 1, rankers[0].Order)
	assert.Equal(t, user.ID, rankers[0].User.ID)

	require.NoError(t, repos.Ranks.Replace(ctx, user.ID, course.ID, nil))
	submitted, err := repos.Ranks.HasSubmitted(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, submitted)
}

func testRankLimitLowered(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	course := mustCourse(t, repos, "Physics", 2024)
	alice := mustUser(t, repos, "b1234567")
	bob := mustUser(t, repos, "b7654321")
	labs := mustLabs(t, repos, course, "LabA", "LabB", "LabC")
	for _, u := range []*models.User{alice, bob} {
		require.NoError(t, repos.Memberships.Add(ctx, course.ID, u.ID))
	}
	require.NoError(t, repos.Ranks.Replace(ctx, alice.ID, course.ID, []int64{labs[2].ID, labs[1].ID, labs[0].ID}))
	require.NoError(t, repos.Ranks.Replace(ctx, bob.ID, course.ID, []int64{labs[0].ID}))

	course.Config.RankLimit = 2
	require.NoError(t, repos.Courses.Update(ctx, course))

	ranked, err := repos.Ranks.ListLabs(ctx, alice.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "LabC", ranked[0].Name)
	assert.Equal(t, "LabB", ranked[1].Name)

	ranked, err = repos.Ranks.ListLabs(ctx, bob.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 1)

	rankers, err := repos.Ranks.ListRankers(ctx, labs[0].ID)
	require.NoError(t, err)
	require.Len(t, rankers, 1)
	assert.Equal(t, bob.ID, rankers[0].User.ID)

	stored, err := repos.Courses.GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Config.RankLimit)
}

func testConcurrentJoin(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	course := mustCourse(t, repos, "Physics", 2024)
	user := mustUser(t, repos, "b1234567")

	const callers = 16
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repos.Memberships.Add(ctx, course.ID, user.ID)
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrAlreadyJoined)
	}
	assert.Equal(t, 1, joined)

	members, err := repos.Memberships.List(ctx, course.ID, models.RoleNone)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func testConcurrentReplace(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	course := mustCourse(t, repos, "Physics", 2024)
	user := mustUser(t, repos, "b1234567")
	labs := mustLabs(t, repos, course, "LabA", "LabB", "LabC")
	require.NoError(t, repos.Memberships.Add(ctx, course.ID, user.ID))

	submissions := [][]int64{
		{labs[0].ID, labs[1].ID, labs[2].ID},
		{labs[2].ID, labs[1].ID},
		{labs[1].ID},
		{labs[2].ID, labs[0].ID, labs[1].ID},
	}

	const rounds = 4
	var wg sync.WaitGroup
	errs := make(chan error, rounds*len(submissions))
	for i := 0; i < rounds; i++ {
		for _, ids := range submissions {
			wg.Add(1)
			go func(ids []int64) {
				defer wg.Done()
				errs <- repos.Ranks.Replace(ctx, user.ID, course.ID, ids)
			}(ids)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	ranked, err := repos.Ranks.ListLabs(ctx, user.ID, course.ID)
	require.NoError(t, err)
	got := make([]int64, 0, len(ranked))
	for _, l := range ranked {
		got = append(got, l.ID)
	}
	assert.Contains(t, submissions, got, "the stored list is exactly one submission")

	position := map[int64]int{}
	for i, id := range got {
		position[id] = i
	}
	for _, lab := range labs {
		rankers, err := repos.Ranks.ListRankers(ctx, lab.ID)
		require.NoError(t, err)
		want, ranked := position[lab.ID]
		if !ranked {
			assert.Empty(t, rankers, "lab %s", lab.Name)
			continue
		}
		require.Len(t, rankers, 1, "lab %s", lab.Name)
		assert.Equal(t, want, rankers[0].Order, "orders are contiguous from zero")
	}
}

func testCourseDelete(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	course := mustCourse(t, repos, "Physics", 2024)
	user := mustUser(t, repos, "b1234567")
	labs := mustLabs(t, repos, course, "LabA")
	require.NoError(t, repos.Memberships.Add(ctx, course.ID, user.ID))
	require.NoError(t, repos.Ranks.Replace(ctx, user.ID, course.ID, []int64{labs[0].ID}))

	require.NoError(t, repos.Courses.Delete(ctx, course.ID))
	require.ErrorIs(t, repos.Courses.Delete(ctx, course.ID), apperrors.ErrResourceNotFound)

	role, err := repos.Memberships.Role(ctx, course.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleNone, role)

	_, err = repos.Labs.GetByID(ctx, course.ID, labs[0].ID)
	require.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	count, err := repos.Years.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "years outlive their courses")
}

func testUserDelete(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	course := mustCourse(t, repos, "Physics", 2024)
	user := mustUser(t, repos, "b1234567")
	labs := mustLabs(t, repos, course, "LabA")
	require.NoError(t, repos.Memberships.Add(ctx, course.ID, user.ID))
	require.NoError(t, repos.Ranks.Replace(ctx, user.ID, course.ID, []int64{labs[0].ID}))

	err := repos.Users.Create(ctx, &models.User{Username: "b1234567", Email: "other@example.ac.jp", PasswordHash: "x"})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, repos.Users.Delete(ctx, user.ID))

	members, err := repos.Memberships.List(ctx, course.ID, models.RoleNone)
	require.NoError(t, err)
	assert.Empty(t, members)

	rankers, err := repos.Ranks.ListRankers(ctx, labs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, rankers)
}
