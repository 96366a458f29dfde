package profile

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewStore(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestGetReturnsDocument(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT data FROM profiles`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"session":"S1"}`)))

	doc, err := s.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "S1", doc["session"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissingUserReturnsErrNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT data FROM profiles`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutMergeConcatenatesJSONB(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`SET data = profiles\.data \|\| EXCLUDED\.data`).
		WithArgs(int64(42), []byte(`{"name":"rex"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Put(context.Background(), 42, Document{"name": "rex"}, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPutWithoutMergeReplacesDocument(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`SET data = EXCLUDED\.data`).
		WithArgs(int64(42), []byte(`{"name":"rex"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Put(context.Background(), 42, Document{"name": "rex"}, false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAbsentDocumentIsNoError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM profiles`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.Delete(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSessionMergesCredential(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`SET data = profiles\.data \|\| EXCLUDED\.data`).
		WithArgs(int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveSession(context.Background(), 42, "S1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentErrorsDefaultsToFive(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(`FROM user_errors`).
		WithArgs(int64(42), 5).
		WillReturnRows(sqlmock.NewRows([]string{"message", "created_at"}).
			AddRow("send_code failed", now).
			AddRow("create_session failed", now.Add(-time.Minute)))

	entries, err := s.RecentErrors(context.Background(), 42, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "send_code failed", entries[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogErrorInserts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO user_errors`).
		WithArgs(int64(42), "boom").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, s.LogError(context.Background(), 42, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
