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
	"github.com/yigit/saffron/internal/pkg/logger"
)

// rankRepository handles the ranks table
type rankRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewRankRepository creates a Postgres RankRepository
func NewRankRepository(database *db.PostgresDB) RankRepository {
	return &rankRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Replace swaps the user's whole submission for the course. The membership row is locked
// first so concurrent submissions for the same pair run one after the other.
func (r *rankRepository) Replace(ctx context.Context, userID, courseID int64, labIDs []int64) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Select("role").
			From("course_memberships").
			Where(squirrel.Eq{"course_id": courseID, "user_id": userID}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build lock membership query: %w", err)
		}
		var role string
		if err := tx.QueryRow(ctx, sql, args...).Scan(&role); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrNotJoined
			}
			return fmt.Errorf("error locking membership: %w", err)
		}

		sql, args, err = r.sb.Delete("ranks").
			Where(squirrel.Eq{"course_id": courseID, "user_id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete ranks query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error deleting previous ranks: %w", err)
		}

		if len(labIDs) == 0 {
			return nil
		}

		insert := r.sb.Insert("ranks").Columns("user_id", "course_id", "lab_id", `"order"`)
		for order, labID := range labIDs {
			insert = insert.Values(userID, courseID, labID, order)
		}
		sql, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert ranks query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			switch {
			case dberrors.IsDuplicateConstraintError(err, "ranks_user_course_lab_key"):
				return apperrors.ErrDuplicateRank
			case dberrors.IsForeignKeyError(err, ""):
				return apperrors.UnknownLabs(labIDs)
			}
			logger.Error().Err(err).Int64("userID", userID).Int64("courseID", courseID).Msg("Error inserting ranks")
			return fmt.Errorf("error inserting ranks: %w", err)
		}
		return nil
	})
}

// ListLabs returns the labs of the user's submission in ascending order
func (r *rankRepository) ListLabs(ctx context.Context, userID, courseID int64) ([]*models.Lab, error) {
	sql, args, err := r.sb.Select("l.id", "l.course_id", "l.name", "l.capacity").
		From("ranks r").
		Join("labs l ON l.id = r.lab_id").
		Where(squirrel.Eq{"r.user_id": userID, "r.course_id": courseID}).
		OrderBy(`r."order" ASC`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list ranks query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying ranks: %w", err)
	}
	defer rows.Close()

	labs := []*models.Lab{}
	for rows.Next() {
		lab := &models.Lab{}
		if err := rows.Scan(&lab.ID, &lab.CourseID, &lab.Name, &lab.Capacity); err != nil {
			return nil, fmt.Errorf("error scanning rank row: %w", err)
		}
		labs = append(labs, lab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rank rows: %w", err)
	}
	return labs, nil
}

// HasSubmitted reports whether the user has at least one rank in the course
func (r *rankRepository) HasSubmitted(ctx context.Context, userID, courseID int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		From("ranks").
		Where(squirrel.Eq{"user_id": userID, "course_id": courseID}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build rank exists query: %w", err)
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking ranks: %w", err)
	}
	return exists, nil
}

// ListRankers returns who ranked the lab and at which position
func (r *rankRepository) ListRankers(ctx context.Context, labID int64) ([]*models.LabRanker, error) {
	cols := append([]string{`r."order"`}, prefixed("u", userColumns)...)
	sql, args, err := r.sb.Select(cols...).
		From("ranks r").
		Join("users u ON u.id = r.user_id").
		Where(squirrel.Eq{"r.lab_id": labID}).
		OrderBy(`r."order" ASC`, "u.username ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list rankers query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying rankers: %w", err)
	}
	defer rows.Close()

	rankers := []*models.LabRanker{}
	for rows.Next() {
		var (
			order int
			u     models.User
		)
		err := rows.Scan(&order,
			&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsStaff, &u.IsSuperuser,
			&u.ScreenName, &u.GPA, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning ranker row: %w", err)
		}
		rankers = append(rankers, &models.LabRanker{Order: order, User: &u})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranker rows: %w", err)
	}
	return rankers, nil
}
