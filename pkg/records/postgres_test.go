package records

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func newMockPostgres(t *testing.T) (*PostgresArchive, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS archive").
		WillReturnResult(sqlmock.NewResult(0, 0))
	archive, err := NewPostgresArchive(db)
	if err != nil {
		t.Fatalf("NewPostgresArchive: %v", err)
	}
	return archive, mock
}

func TestPostgresArchivePut(t *testing.T) {
	archive, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO archive (key, body, updated_at)")).
		WithArgs(EvaluationKey("t1"), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := archive.Put(context.Background(), EvaluationKey("t1"), sample{TaskID: "t1", Score: 0.5})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresArchiveGet(t *testing.T) {
	archive, mock := newMockPostgres(t)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"body"}).AddRow(`{"task_id": "t1", "score": 0.5}`)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM archive WHERE key = $1")).
		WithArgs(EvaluationKey("t1")).
		WillReturnRows(rows)

	var got sample
	err := archive.Get(ctx, EvaluationKey("t1"), &got)
	assert.NoError(t, err)
	assert.Equal(t, "t1", got.TaskID)
	assert.Equal(t, 0.5, got.Score)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM archive WHERE key = $1")).
		WithArgs(EvaluationKey("absent")).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	err = archive.Get(ctx, EvaluationKey("absent"), &got)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresArchiveList(t *testing.T) {
	archive, mock := newMockPostgres(t)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"key", "updated_at"}).
		AddRow(ExecutionKey("a"), now).
		AddRow(ExecutionKey("b"), now.Add(time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, updated_at FROM archive WHERE key LIKE $1")).
		WithArgs(likePrefix(PrefixExecutions)).
		WillReturnRows(rows)

	infos, err := archive.List(context.Background(), PrefixExecutions)
	assert.NoError(t, err)
	assert.Len(t, infos, 2)
	assert.Equal(t, ExecutionKey("a"), infos[0].Key)
	assert.Equal(t, now, infos[0].LastModified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresArchiveDelete(t *testing.T) {
	archive, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM archive WHERE key = $1")).
		WithArgs(ExecutionKey("t1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := archive.Delete(context.Background(), ExecutionKey("t1"))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
