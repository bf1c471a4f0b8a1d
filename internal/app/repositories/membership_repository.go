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

// membershipRepository handles course_memberships
type membershipRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewMembershipRepository creates a Postgres MembershipRepository
func NewMembershipRepository(database *db.PostgresDB) MembershipRepository {
	return &membershipRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Role returns the user's role in the course, RoleNone if there is no row
func (r *membershipRepository) Role(ctx context.Context, courseID, userID int64) (models.MembershipRole, error) {
	sql, args, err := r.sb.Select("role").
		From("course_memberships").
		Where(squirrel.Eq{"course_id": courseID, "user_id": userID}).
		ToSql()
	if err != nil {
		return models.RoleNone, fmt.Errorf("failed to build membership role query: %w", err)
	}

	var role string
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RoleNone, nil
		}
		return models.RoleNone, fmt.Errorf("error getting membership role: %w", err)
	}
	return models.MembershipRole(role), nil
}

// Add inserts a member row. The primary key serialises concurrent joins.
func (r *membershipRepository) Add(ctx context.Context, courseID, userID int64) error {
	sql, args, err := r.sb.Insert("course_memberships").
		Columns("course_id", "user_id", "role").
		Values(courseID, userID, string(models.RoleMember)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build add member query: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "course_memberships_pkey") {
			return apperrors.ErrAlreadyJoined
		}
		if dberrors.IsForeignKeyError(err, "") {
			return apperrors.NewResourceNotFoundError("Course or user not found")
		}
		logger.Error().Err(err).Int64("courseID", courseID).Int64("userID", userID).Msg("Error adding course member")
		return fmt.Errorf("error adding course member: %w", err)
	}
	return nil
}

// Remove deletes the membership row and the user's ranks for the course in one transaction
func (r *membershipRepository) Remove(ctx context.Context, courseID, userID int64) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Delete("course_memberships").
			Where(squirrel.Eq{"course_id": courseID, "user_id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build remove member query: %w", err)
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error removing course member: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrNotJoined
		}

		sql, args, err = r.sb.Delete("ranks").
			Where(squirrel.Eq{"course_id": courseID, "user_id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete ranks query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error deleting ranks of leaving member: %w", err)
		}
		return nil
	})
}

// Promote sets the admin role. Missing rows mean the user never joined.
func (r *membershipRepository) Promote(ctx context.Context, courseID, userID int64) error {
	sql, args, err := r.sb.Update("course_memberships").
		Set("role", string(models.RoleAdmin)).
		Where(squirrel.Eq{"course_id": courseID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build promote query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error promoting course member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotJoined
	}
	return nil
}

// Demote resets an admin back to member. Only admin rows match.
func (r *membershipRepository) Demote(ctx context.Context, courseID, userID int64) error {
	sql, args, err := r.sb.Update("course_memberships").
		Set("role", string(models.RoleMember)).
		Where(squirrel.Eq{"course_id": courseID, "user_id": userID, "role": string(models.RoleAdmin)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build demote query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error demoting course admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotAdmin
	}
	return nil
}

// List returns the course's members, optionally restricted to one role
func (r *membershipRepository) List(ctx context.Context, courseID int64, role models.MembershipRole) ([]*models.Member, error) {
	cols := append([]string{"m.role", "m.joined_at"}, prefixed("u", userColumns)...)
	q := r.sb.Select(cols...).
		From("course_memberships m").
		Join("users u ON u.id = m.user_id").
		Where(squirrel.Eq{"m.course_id": courseID}).
		OrderBy("u.username ASC")
	if role != models.RoleNone {
		q = q.Where(squirrel.Eq{"m.role": string(role)})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list members query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying course members: %w", err)
	}
	defer rows.Close()

	members := []*models.Member{}
	for rows.Next() {
		var (
			m    models.Member
			u    models.User
			role string
		)
		err := rows.Scan(&role, &m.JoinedAt,
			&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsStaff, &u.IsSuperuser,
			&u.ScreenName, &u.GPA, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning member row: %w", err)
		}
		m.Role = models.MembershipRole(role)
		m.User = &u
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
