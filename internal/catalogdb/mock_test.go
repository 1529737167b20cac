package catalogdb

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &DB{conn: conn}, mock
}

func TestReplaceSnapshotRollsBackOnInsertFailure(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM entries`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO snapshot`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectPrepare(`INSERT INTO entries`).
		ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := db.ReplaceSnapshot(sampleCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSnapshotBeginFailure(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("locked"))

	err := db.ReplaceSnapshot(sampleCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestDetectsTruncatedSnapshot(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectQuery(`SELECT steam_id, checksum, entry_count, fetched_at FROM snapshot`).
		WillReturnRows(sqlmock.NewRows([]string{"steam_id", "checksum", "entry_count", "fetched_at"}).
			AddRow("76561198000000001", "abc", 2, sampleCatalog().FetchedAt))
	mock.ExpectQuery(`SELECT appid, name FROM entries`).
		WillReturnRows(sqlmock.NewRows([]string{"appid", "name"}).AddRow(int64(10), "Counter-Strike"))

	_, err := db.Latest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportChecksumQueryFailure(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery(`SELECT checksum FROM imports`).WithArgs("a.csv").WillReturnError(errors.New("io"))

	_, err := db.ImportChecksum("a.csv")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearReportsDeleteFailure(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM entries`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM snapshot`).WillReturnError(errors.New("readonly database"))
	mock.ExpectRollback()

	err := db.Clear()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear snapshot")
	assert.NoError(t, mock.ExpectationsWereMet())
}
