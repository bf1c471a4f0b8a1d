package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintClassification(t *testing.T) {
	unique := fmt.Errorf("insert course: %w", &pgconn.PgError{Code: "23505", ConstraintName: "courses_name_year_id_key"})
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "ranks_lab_id_fkey"}

	assert.True(t, IsDuplicateConstraintError(unique, "courses_name_year_id_key"))
	assert.True(t, IsDuplicateConstraintError(unique, ""))
	assert.False(t, IsDuplicateConstraintError(unique, "ranks_user_order_course_key"))
	assert.False(t, IsDuplicateConstraintError(fk, ""))

	assert.True(t, IsForeignKeyError(fk, ""))
	assert.True(t, IsForeignKeyError(fk, "ranks_lab_id_fkey"))
	assert.False(t, IsForeignKeyError(unique, ""))
	assert.False(t, IsForeignKeyError(errors.New("boom"), ""))
}
