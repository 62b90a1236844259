package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/duetable-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "postgres")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestOverrideRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOverrideRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"assignment_id", "term", "email", "finished", "updated_at"}).
		AddRow("101", "2025 Fall", "a@school.edu", true, now).
		AddRow("102", "2025 Fall", "a@school.edu", false, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT assignment_id, term, email, finished, updated_at FROM assignment_overrides WHERE term = $1 AND email = $2")).
		WithArgs("2025 Fall", "a@school.edu").
		WillReturnRows(rows)

	overrides, err := repo.ListByUser(context.Background(), "2025 Fall", "a@school.edu")
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, "101", overrides[0].AssignmentID)
	assert.True(t, overrides[0].Finished)
	assert.False(t, overrides[1].Finished)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepositoryListByUserError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOverrideRepository(db)

	mock.ExpectQuery("SELECT assignment_id").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByUser(context.Background(), "2025 Fall", "a@school.edu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list assignment overrides")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOverrideRepository(db)

	mock.ExpectExec("INSERT INTO assignment_overrides").
		WithArgs("101", "2025 Fall", "a@school.edu", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	override := &models.FinishedOverride{AssignmentID: "101", Term: "2025 Fall", Email: "a@school.edu", Finished: true}
	require.NoError(t, repo.Upsert(context.Background(), override))
	assert.False(t, override.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOverrideRepository(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS assignment_overrides").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
