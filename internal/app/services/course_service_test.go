package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	"github.com/yigit/saffron/internal/pkg/helpers"
)

func TestCreateCourse_DeduplicatesYears(t *testing.T) {
	f := newFixture(t)

	f.course("Physics", 2024, "1234")

	_, err := f.svc.Courses.CreateCourse(f.ctx, NewCourse{Name: "Physics", Year: 2024, PIN: "9999"})
	require.ErrorIs(t, err, apperrors.ErrDuplicateCourse)
	assert.Equal(t, map[string]interface{}{"name": "Physics", "year": 2024}, apperrors.DetailsOf(err))

	f.course("Physics", 2025, "1234")
	f.course("Chemistry", 2024, "1234")

	years, err := f.repos.Years.Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, years)
}

func TestCreateCourse_Defaults(t *testing.T) {
	f := newFixture(t)

	course, err := f.svc.Courses.CreateCourse(f.ctx, NewCourse{Name: "  Biology  ", PIN: "1234"})
	require.NoError(t, err)

	assert.Equal(t, "Biology", course.Name)
	assert.Equal(t, fixedNow.Year(), course.Year)
	assert.Equal(t, models.DefaultRankLimit, course.Config.RankLimit)
	assert.Zero(t, course.Config.MinGPA)
	assert.NotEqual(t, "1234", course.PinHash)
	assert.Equal(t, "admin_of_course_1", course.AdminGroupName())
}

func TestCreateCourse_Validation(t *testing.T) {
	zero, badGPA := 0, 4.5

	tests := []struct {
		name  string
		input NewCourse
		field string
	}{
		{"blank name", NewCourse{Name: "   ", PIN: "1"}, "name"},
		{"missing pin", NewCourse{Name: "Physics"}, "pin"},
		{"rank limit below one", NewCourse{Name: "Physics", PIN: "1", RankLimit: &zero}, "rankLimit"},
		{"gpa out of range", NewCourse{Name: "Physics", PIN: "1", MinGPA: &badGPA}, "minGpa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Courses.CreateCourse(f.ctx, tt.input)
			require.ErrorIs(t, err, apperrors.ErrValidationFailed)
			assert.Contains(t, apperrors.DetailsOf(err), tt.field)
		})
	}
}

func TestSetPIN_OnlyLatestPINMatches(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "old-pin")
	alice, bob := f.student(), f.student()

	assert.True(t, f.svc.Courses.CheckPIN(course, "old-pin"))
	assert.False(t, f.svc.Courses.CheckPIN(course, ""))

	require.NoError(t, f.svc.Courses.SetPIN(f.ctx, course, "new-pin"))
	assert.False(t, f.svc.Courses.CheckPIN(course, "old-pin"))

	ok, err := f.svc.Courses.Join(f.ctx, course, alice, "old-pin")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.Courses.Join(f.ctx, course, bob, "new-pin")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := f.svc.Courses.GetCourse(f.ctx, course.ID)
	require.NoError(t, err)
	assert.True(t, f.svc.Courses.CheckPIN(stored, "new-pin"))
}

func TestJoin_WrongPINLeavesNoMembership(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	alice := f.student()

	ok, err := f.svc.Courses.Join(f.ctx, course, alice, "4321")
	require.NoError(t, err)
	assert.False(t, ok)

	role, err := f.svc.Courses.Role(f.ctx, course, alice)
	require.NoError(t, err)
	assert.Equal(t, models.RoleNone, role)
}

func TestJoin_TwiceFailsAndRejoinAfterLeave(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	alice := f.student()

	f.join(course, "1234", alice)

	_, err := f.svc.Courses.Join(f.ctx, course, alice, "1234")
	require.ErrorIs(t, err, apperrors.ErrAlreadyJoined)

	require.NoError(t, f.svc.Courses.Leave(f.ctx, course, alice))
	require.ErrorIs(t, f.svc.Courses.Leave(f.ctx, course, alice), apperrors.ErrNotJoined)

	f.join(course, "1234", alice)
	role, err := f.svc.Courses.Role(f.ctx, course, alice)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)
}

func TestAdminStateMachine(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	alice := f.student()

	require.ErrorIs(t, f.svc.Courses.RegisterAsAdmin(f.ctx, course, alice), apperrors.ErrNotJoined)

	f.join(course, "1234", alice)
	require.ErrorIs(t, f.svc.Courses.UnregisterFromAdmin(f.ctx, course, alice), apperrors.ErrNotAdmin)

	require.NoError(t, f.svc.Courses.RegisterAsAdmin(f.ctx, course, alice))
	require.NoError(t, f.svc.Courses.RegisterAsAdmin(f.ctx, course, alice), "promoting an admin again is a no-op")

	role, err := f.svc.Courses.Role(f.ctx, course, alice)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	require.NoError(t, f.svc.Courses.UnregisterFromAdmin(f.ctx, course, alice))
	role, err = f.svc.Courses.Role(f.ctx, course, alice)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role, "demotion keeps membership")
}

func TestLeave_ClearsAdminAndRanks(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	labs := f.labs(course, "LabA", "LabB")
	alice := f.student()

	f.join(course, "1234", alice)
	require.NoError(t, f.svc.Courses.RegisterAsAdmin(f.ctx, course, alice))
	_, err := f.svc.Ranks.SubmitRanks(f.ctx, alice, course, labIDs(labs...))
	require.NoError(t, err)

	require.NoError(t, f.svc.Courses.Leave(f.ctx, course, alice))

	submitted, err := f.repos.Ranks.HasSubmitted(f.ctx, alice.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, submitted)

	f.join(course, "1234", alice)
	role, err := f.svc.Courses.Role(f.ctx, course, alice)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role, "rejoining does not restore admin status")
}

func TestDeleteCourse_RemovesMembershipsKeepsYears(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	f.course("Chemistry", 2024, "1234")
	f.labs(course, "LabA")
	users := []*models.User{f.student(), f.student(), f.student()}
	f.join(course, "1234", users...)

	yearsBefore, err := f.repos.Years.Count(f.ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Courses.DeleteCourse(f.ctx, course))

	_, err = f.svc.Courses.GetCourse(f.ctx, course.ID)
	require.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	yearsAfter, err := f.repos.Years.Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, yearsBefore, yearsAfter)

	for _, u := range users {
		courses, total, err := f.svc.Courses.ListCourses(f.ctx, repositories.CourseFilter{UserID: &u.ID})
		require.NoError(t, err)
		assert.Empty(t, courses)
		assert.Zero(t, total)
	}

	labs, err := f.repos.Labs.ListByCourse(f.ctx, course.ID)
	require.NoError(t, err)
	assert.Empty(t, labs)

	require.ErrorIs(t, f.svc.Courses.DeleteCourse(f.ctx, course), apperrors.ErrResourceNotFound)
}

func TestRenameCourse_KeepsAdminGroupName(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	before := course.AdminGroupName()

	require.NoError(t, f.svc.Courses.RenameCourse(f.ctx, course, "Physics II"))

	stored, err := f.svc.Courses.GetCourse(f.ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Physics II", stored.Name)
	assert.Equal(t, before, stored.AdminGroupName())
}

func TestRenameCourse_DuplicateInSameYear(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	f.course("Chemistry", 2024, "1234")

	err := f.svc.Courses.RenameCourse(f.ctx, course, "Chemistry")
	require.ErrorIs(t, err, apperrors.ErrDuplicateCourse)
	assert.Equal(t, "Physics", course.Name)
}

func TestListCourses_Filters(t *testing.T) {
	f := newFixture(t)
	physics := f.course("Physics", 2024, "1234")
	f.course("Physical Chemistry", 2025, "1234")
	f.course("Biology", 2024, "1234")
	alice := f.student()
	f.join(physics, "1234", alice)

	year := 2024
	courses, total, err := f.svc.Courses.ListCourses(f.ctx, repositories.CourseFilter{Year: &year})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, courses, 2)

	courses, _, err = f.svc.Courses.ListCourses(f.ctx, repositories.CourseFilter{Search: "phys"})
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	courses, _, err = f.svc.Courses.ListCourses(f.ctx, repositories.CourseFilter{UserID: &alice.ID})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, physics.ID, courses[0].ID)

	courses, total, err = f.svc.Courses.ListCourses(f.ctx, repositories.CourseFilter{Page: helpers.Page{Number: 2, Size: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, courses, 1)
}

func TestPromoteAndDemoteMember(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	admin, member, outsider := f.student(), f.student(), f.student()
	f.join(course, "1234", admin, member)
	require.NoError(t, f.svc.Courses.RegisterAsAdmin(f.ctx, course, admin))

	_, err := f.svc.Courses.PromoteMember(f.ctx, member, course, admin.ID)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.svc.Courses.PromoteMember(f.ctx, admin, course, outsider.ID)
	require.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	_, err = f.svc.Courses.PromoteMember(f.ctx, admin, course, 9999)
	require.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	promoted, err := f.svc.Courses.PromoteMember(f.ctx, admin, course, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, promoted.ID)

	_, err = f.svc.Courses.PromoteMember(f.ctx, admin, course, member.ID)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	require.ErrorIs(t, f.svc.Courses.DemoteMember(f.ctx, admin, course, outsider.ID), apperrors.ErrResourceNotFound)
	require.ErrorIs(t, f.svc.Courses.DemoteMember(f.ctx, admin, course, admin.ID), apperrors.ErrBadRequest)
	require.NoError(t, f.svc.Courses.DemoteMember(f.ctx, admin, course, member.ID))
	require.ErrorIs(t, f.svc.Courses.DemoteMember(f.ctx, admin, course, member.ID), apperrors.ErrNotAdmin)
}

func TestStaffManagesAnyCourse(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	staff, student := f.staff(), f.student()

	name, limit := "Physics I", 5
	require.ErrorIs(t, f.svc.Courses.UpdateCourse(f.ctx, student, course, CourseUpdate{Name: &name}), apperrors.ErrPermissionDenied)
	require.NoError(t, f.svc.Courses.UpdateCourse(f.ctx, staff, course, CourseUpdate{Name: &name, RankLimit: &limit}))
	assert.Equal(t, "Physics I", course.Name)
	assert.Equal(t, 5, course.Config.RankLimit)

	require.NoError(t, f.svc.Courses.ChangePIN(f.ctx, staff, course, "5678"))
	assert.True(t, f.svc.Courses.CheckPIN(course, "5678"))

	_, err := f.svc.Courses.CreateCourseAs(f.ctx, student, NewCourse{Name: "Math", PIN: "1"})
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	_, err = f.svc.Courses.CreateCourseAs(f.ctx, staff, NewCourse{Name: "Math", PIN: "1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Courses.RemoveCourse(f.ctx, staff, course))
}

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	alice, bob, outsider := f.student(), f.student(), f.student()
	f.join(course, "1234", alice, bob)
	require.NoError(t, f.svc.Courses.RegisterAsAdmin(f.ctx, course, bob))

	_, err := f.svc.Courses.ListMembers(f.ctx, outsider, course, models.RoleNone)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	members, err := f.svc.Courses.ListMembers(f.ctx, alice, course, models.RoleNone)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	admins, err := f.svc.Courses.ListMembers(f.ctx, alice, course, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, bob.ID, admins[0].User.ID)
}

func TestJoin_ConcurrentCallsAdmitOnce(t *testing.T) {
	f := newFixture(t)
	course := f.course("Physics", 2024, "1234")
	alice := f.student()

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		joined  int
		already int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.svc.Courses.Join(f.ctx, course, alice, "1234")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && ok:
				joined++
			case errors.Is(err, apperrors.ErrAlreadyJoined):
				already++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, joined)
	assert.Equal(t, callers-1, already)
}
