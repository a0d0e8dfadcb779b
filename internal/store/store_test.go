package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
)

func setupTestDB(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewWithDB(db), mock, func() { db.Close() }
}

func fixedTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestTryAssign_Success(t *testing.T) {
	s, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, tenant_id, pool_lead_id, status").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT pool_status FROM pool_leads").
		WillReturnRows(sqlmock.NewRows([]string{"pool_status"}).AddRow("unassigned"))
	mock.ExpectExec("INSERT INTO assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE pool_leads SET pool_status = 'assigned'").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	outcome, a, err := s.TryAssign(context.Background(), "tenant-1", "lead-1", 82, domain.ScoreComponents{})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignOutcomeAssigned, outcome)
	assert.Equal(t, "lead-1", a.PoolLeadID)
	assert.Equal(t, domain.AssignmentActive, a.Status)
	assert.Equal(t, "warm", a.Tier)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAssign_AlreadyYours(t *testing.T) {
	s, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, tenant_id, pool_lead_id, status").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "pool_lead_id", "status", "als_score", "tier", "sequence_position", "assigned_at"}).
			AddRow("a-1", "tenant-1", "lead-1", "active", 70.0, "warm", 2, fixedTime()))
	mock.ExpectCommit()

	outcome, a, err := s.TryAssign(context.Background(), "tenant-1", "lead-1", 82, domain.ScoreComponents{})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignOutcomeAlreadyYours, outcome)
	assert.Equal(t, "a-1", a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAssign_Collision(t *testing.T) {
	s, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, tenant_id, pool_lead_id, status").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "pool_lead_id", "status", "als_score", "tier", "sequence_position", "assigned_at"}).
			AddRow("a-1", "tenant-other", "lead-1", "active", 70.0, "warm", 2, fixedTime()))
	mock.ExpectCommit()

	outcome, a, err := s.TryAssign(context.Background(), "tenant-1", "lead-1", 82, domain.ScoreComponents{})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignOutcomeCollision, outcome)
	assert.Nil(t, a)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAssign_NoEligibleLead(t *testing.T) {
	s, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, tenant_id, pool_lead_id, status").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT pool_status FROM pool_leads").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := s.TryAssign(context.Background(), "tenant-1", "lead-1", 82, domain.ScoreComponents{})
	assert.ErrorIs(t, err, ErrNoEligibleLead)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAssign_LeadAlreadyAssignedRace(t *testing.T) {
	s, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, tenant_id, pool_lead_id, status").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT pool_status FROM pool_leads").
		WillReturnRows(sqlmock.NewRows([]string{"pool_status"}).AddRow("assigned"))
	mock.ExpectRollback()

	_, _, err := s.TryAssign(context.Background(), "tenant-1", "lead-1", 82, domain.ScoreComponents{})
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsSuppressed(t *testing.T) {
	s, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.IsSuppressed(context.Background(), "jane@corp.com")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertActivity_IdempotentConflict(t *testing.T) {
	s, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO activities").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := s.InsertActivity(context.Background(), &domain.Activity{
		AssignmentID: "a-1",
		TenantID:     "t-1",
		Channel:      domain.ChannelEmail,
		Action:       domain.ActionSent,
		OperationKey: "dup-key",
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}
