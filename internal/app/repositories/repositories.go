package repositories

import (
	"context"

	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/db"
	"github.com/yigit/saffron/internal/pkg/helpers"
)

// CourseFilter narrows course listings
type CourseFilter struct {
	Year   *int
	Search string
	UserID *int64
	Page   helpers.Page
}

// UserRepository persists accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

// YearRepository resolves year values to deduplicated rows
type YearRepository interface {
	Resolve(ctx context.Context, year int) (*models.Year, error)
	Count(ctx context.Context) (int, error)
}

// CourseRepository persists courses. Create resolves the year in the same transaction.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, filter CourseFilter) ([]*models.Course, int64, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

// MembershipRepository persists the (course, user) role rows
type MembershipRepository interface {
	Role(ctx context.Context, courseID, userID int64) (models.MembershipRole, error)
	Add(ctx context.Context, courseID, userID int64) error
	Remove(ctx context.Context, courseID, userID int64) error
	Promote(ctx context.Context, courseID, userID int64) error
	Demote(ctx context.Context, courseID, userID int64) error
	List(ctx context.Context, courseID int64, role models.MembershipRole) ([]*models.Member, error)
}

// LabRepository persists labs
type LabRepository interface {
	CreateMany(ctx context.Context, labs []*models.Lab) error
	GetByID(ctx context.Context, courseID, labID int64) (*models.Lab, error)
	ListByCourse(ctx context.Context, courseID int64) ([]*models.Lab, error)
	Update(ctx context.Context, lab *models.Lab) error
	Delete(ctx context.Context, courseID, labID int64) error
}

// RankRepository persists preference lists
type RankRepository interface {
	Replace(ctx context.Context, userID, courseID int64, labIDs []int64) error
	ListLabs(ctx context.Context, userID, courseID int64) ([]*models.Lab, error)
	HasSubmitted(ctx context.Context, userID, courseID int64) (bool, error)
	ListRankers(ctx context.Context, labID int64) ([]*models.LabRanker, error)
}

// Repositories holds all the repository instances
type Repositories struct {
	Users       UserRepository
	Years       YearRepository
	Courses     CourseRepository
	Memberships MembershipRepository
	Labs        LabRepository
	Ranks       RankRepository
}

// NewRepositories initializes all Postgres repositories
func NewRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(database),
		Years:       NewYearRepository(database),
		Courses:     NewCourseRepository(database),
		Memberships: NewMembershipRepository(database),
		Labs:        NewLabRepository(database),
		Ranks:       NewRankRepository(database),
	}
}
