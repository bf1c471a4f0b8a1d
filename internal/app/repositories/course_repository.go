package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/db"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	"github.com/yigit/saffron/internal/pkg/dberrors"
	"github.com/yigit/saffron/internal/pkg/logger"
)

const courseNameYearConstraint = "courses_name_year_id_key"

var courseColumns = []string{
	"c.id", "c.name", "c.year_id", "y.year", "c.pin_hash", "c.rank_limit", "c.min_gpa", "c.created_at", "c.updated_at",
}

// yearRepository handles the years table
type yearRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewYearRepository creates a Postgres YearRepository
func NewYearRepository(database *db.PostgresDB) YearRepository {
	return &yearRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// resolveYear returns the row for year, inserting it if absent. The upsert keeps concurrent
// callers from creating two rows for the same value.
func resolveYear(ctx context.Context, q db.Querier, sb squirrel.StatementBuilderType, year int) (*models.Year, error) {
	sql, args, err := sb.Insert("years").
		Columns("year").
		Values(year).
		Suffix("ON CONFLICT (year) DO UPDATE SET year = EXCLUDED.year RETURNING id, year").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build resolve year query: %w", err)
	}

	y := &models.Year{}
	if err := q.QueryRow(ctx, sql, args...).Scan(&y.ID, &y.Year); err != nil {
		return nil, fmt.Errorf("error resolving year %d: %w", year, err)
	}
	return y, nil
}

// Resolve returns the existing row for year or creates it
func (r *yearRepository) Resolve(ctx context.Context, year int) (*models.Year, error) {
	return resolveYear(ctx, r.db.Pool, r.sb, year)
}

// Count returns the number of year rows
func (r *yearRepository) Count(ctx context.Context) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").From("years").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count years query: %w", err)
	}
	var n int
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting years: %w", err)
	}
	return n, nil
}

// courseRepository handles course database operations
type courseRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a Postgres CourseRepository
func NewCourseRepository(database *db.PostgresDB) CourseRepository {
	return &courseRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	c := &models.Course{}
	err := row.Scan(&c.ID, &c.Name, &c.YearID, &c.Year, &c.PinHash, &c.Config.RankLimit, &c.Config.MinGPA, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create resolves course.Year and inserts the course in one transaction
func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		year, err := resolveYear(ctx, tx, r.sb, course.Year)
		if err != nil {
			return err
		}
		course.YearID = year.ID

		sql, args, err := r.sb.Insert("courses").
			Columns("name", "year_id", "pin_hash", "rank_limit", "min_gpa").
			Values(course.Name, course.YearID, course.PinHash, course.Config.RankLimit, course.Config.MinGPA).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create course query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt); err != nil {
			if dberrors.IsDuplicateConstraintError(err, courseNameYearConstraint) {
				return apperrors.DuplicateCourse(course.Name, course.Year)
			}
			logger.Error().Err(err).Str("name", course.Name).Msg("Error executing create course query")
			return fmt.Errorf("error creating course: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a course with its year value
func (r *courseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	sql, args, err := r.sb.Select(courseColumns...).
		From("courses c").
		Join("years y ON y.id = c.year_id").
		Where(squirrel.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	course, err := scanCourse(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("Course not found")
		}
		return nil, fmt.Errorf("error getting course by ID: %w", err)
	}
	return course, nil
}

func applyCourseFilter(q squirrel.SelectBuilder, filter CourseFilter) squirrel.SelectBuilder {
	if filter.Year != nil {
		q = q.Where(squirrel.Eq{"y.year": *filter.Year})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where(squirrel.ILike{"c.name": "%" + s + "%"})
	}
	if filter.UserID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM course_memberships m WHERE m.course_id = c.id AND m.user_id = ?)", *filter.UserID)
	}
	return q
}

// List returns one page of courses and the total number matching filter
func (r *courseRepository) List(ctx context.Context, filter CourseFilter) ([]*models.Course, int64, error) {
	countQuery := applyCourseFilter(r.sb.Select("COUNT(*)").From("courses c").Join("years y ON y.id = c.year_id"), filter)
	sql, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count courses query: %w", err)
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting courses: %w", err)
	}

	listQuery := applyCourseFilter(r.sb.Select(courseColumns...).From("courses c").Join("years y ON y.id = c.year_id"), filter).
		OrderBy("y.year DESC", "c.name ASC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit())
	sql, args, err = listQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list courses query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying courses: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning course row: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating course rows: %w", err)
	}

	return courses, total, nil
}

// Update writes name, PIN hash and config. The year is fixed at creation.
func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now()
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Update("courses").
			SetMap(map[string]interface{}{
				"name":       course.Name,
				"pin_hash":   course.PinHash,
				"rank_limit": course.Config.RankLimit,
				"min_gpa":    course.Config.MinGPA,
				"updated_at": course.UpdatedAt,
			}).
			Where(squirrel.Eq{"id": course.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build update course query: %w", err)
		}

		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			if dberrors.IsDuplicateConstraintError(err, courseNameYearConstraint) {
				return apperrors.DuplicateCourse(course.Name, course.Year)
			}
			return fmt.Errorf("error updating course: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewResourceNotFoundError("Course not found")
		}

		// ranks past a lowered limit are dropped; the remaining orders stay contiguous
		sql, args, err = r.sb.Delete("ranks").
			Where(squirrel.Eq{"course_id": course.ID}).
			Where(squirrel.GtOrEq{`"order"`: course.Config.RankLimit}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build trim ranks query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error trimming ranks past the limit: %w", err)
		}
		return nil
	})
}

// Delete drops the course's ranks, memberships and labs, then the course, in one transaction.
// Years and users are left untouched.
func (r *courseRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, table := range []string{"ranks", "course_memberships", "labs"} {
			sql, args, err := r.sb.Delete(table).Where(squirrel.Eq{"course_id": id}).ToSql()
			if err != nil {
				return fmt.Errorf("failed to build delete %s query: %w", table, err)
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("error deleting %s of course: %w", table, err)
			}
		}

		sql, args, err := r.sb.Delete("courses").Where(squirrel.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete course query: %w", err)
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error deleting course: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewResourceNotFoundError("Course not found")
		}
		return nil
	})
}
