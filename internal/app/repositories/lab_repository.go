package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/db"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	"github.com/yigit/saffron/internal/pkg/dberrors"
)

const labNameConstraint = "labs_course_id_name_key"

// labRepository handles lab database operations
type labRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewLabRepository creates a Postgres LabRepository
func NewLabRepository(database *db.PostgresDB) LabRepository {
	return &labRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateMany inserts all labs or none
func (r *labRepository) CreateMany(ctx context.Context, labs []*models.Lab) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, lab := range labs {
			sql, args, err := r.sb.Insert("labs").
				Columns("course_id", "name", "capacity").
				Values(lab.CourseID, lab.Name, lab.Capacity).
				Suffix("RETURNING id").
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build create lab query: %w", err)
			}
			if err := tx.QueryRow(ctx, sql, args...).Scan(&lab.ID); err != nil {
				if dberrors.IsDuplicateConstraintError(err, labNameConstraint) {
					return apperrors.DuplicateLab(lab.Name)
				}
				if dberrors.IsForeignKeyError(err, "") {
					return apperrors.NewResourceNotFoundError("Course not found")
				}
				return fmt.Errorf("error creating lab: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a lab that belongs to courseID
func (r *labRepository) GetByID(ctx context.Context, courseID, labID int64) (*models.Lab, error) {
	sql, args, err := r.sb.Select("id", "course_id", "name", "capacity").
		From("labs").
		Where(squirrel.Eq{"id": labID, "course_id": courseID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get lab query: %w", err)
	}

	lab := &models.Lab{}
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&lab.ID, &lab.CourseID, &lab.Name, &lab.Capacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("Lab not found")
		}
		return nil, fmt.Errorf("error getting lab: %w", err)
	}
	return lab, nil
}

// ListByCourse returns the course's labs ordered by name
func (r *labRepository) ListByCourse(ctx context.Context, courseID int64) ([]*models.Lab, error) {
	sql, args, err := r.sb.Select("id", "course_id", "name", "capacity").
		From("labs").
		Where(squirrel.Eq{"course_id": courseID}).
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list labs query: %w", err)
	}
	return r.queryLabs(ctx, sql, args)
}

func (r *labRepository) queryLabs(ctx context.Context, sql string, args []interface{}) ([]*models.Lab, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying labs: %w", err)
	}
	defer rows.Close()

	labs := []*models.Lab{}
	for rows.Next() {
		lab := &models.Lab{}
		if err := rows.Scan(&lab.ID, &lab.CourseID, &lab.Name, &lab.Capacity); err != nil {
			return nil, fmt.Errorf("error scanning lab row: %w", err)
		}
		labs = append(labs, lab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lab rows: %w", err)
	}
	return labs, nil
}

// Update writes name and capacity
func (r *labRepository) Update(ctx context.Context, lab *models.Lab) error {
	sql, args, err := r.sb.Update("labs").
		Set("name", lab.Name).
		Set("capacity", lab.Capacity).
		Where(squirrel.Eq{"id": lab.ID, "course_id": lab.CourseID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update lab query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, labNameConstraint) {
			return apperrors.DuplicateLab(lab.Name)
		}
		return fmt.Errorf("error updating lab: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("Lab not found")
	}
	return nil
}

// Delete removes a lab; ranks pointing at it cascade
func (r *labRepository) Delete(ctx context.Context, courseID, labID int64) error {
	sql, args, err := r.sb.Delete("labs").Where(squirrel.Eq{"id": labID, "course_id": courseID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete lab query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting lab: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("Lab not found")
	}
	return nil
}
