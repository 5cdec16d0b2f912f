package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T, driver string) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, driver), mock
}

func TestGetTournament_NoRows(t *testing.T) {
	database, mock := newMock(t, "sqlmock")
	store := NewTournamentStore(database)

	mock.ExpectQuery(`SELECT \* FROM tournaments WHERE slug = \?`).
		WithArgs("cup").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetTournament(context.Background(), "cup")
	assert.ErrorIs(t, err, bracket.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMembershipRecord_NoMembership(t *testing.T) {
	database, mock := newMock(t, "sqlmock")
	store := NewTournamentStore(database)
	roundID, teamID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE round_memberships SET wins = \?, losses = \?, tiebreaker = \?`).
		WithArgs(2, 1, 2, roundID, teamID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := database.Beginx()
	require.NoError(t, err)
	err = store.UpdateMembershipRecord(context.Background(), tx, roundID, teamID, bracket.Record{Wins: 2, Losses: 1, GameWins: 7, GameLosses: 5})
	assert.ErrorIs(t, err, bracket.ErrMembershipNotFound)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockMatch_PostgresLocksRow(t *testing.T) {
	database, mock := newMock(t, "postgres")
	store := NewTournamentStore(database)
	matchID := uuid.New()
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM matches WHERE id = \$1 FOR UPDATE`).
		WithArgs(matchID).
		WillReturnError(boom)
	mock.ExpectRollback()

	tx, err := database.Beginx()
	require.NoError(t, err)
	_, err = store.LockMatch(context.Background(), tx, matchID)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMatches_Error(t *testing.T) {
	database, mock := newMock(t, "sqlmock")
	store := NewTournamentStore(database)
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	boom := errors.New("database is locked")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM matches WHERE id IN \(\?, \?\)`).
		WithArgs(ids[0], ids[1]).
		WillReturnError(boom)
	mock.ExpectRollback()

	tx, err := database.Beginx()
	require.NoError(t, err)
	_, err = store.DeleteMatches(context.Background(), tx, ids)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}
