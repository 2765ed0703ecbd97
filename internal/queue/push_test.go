package queue

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offis-rit/workq/internal/gateway"
)

func newTestEngine(t *testing.T) (*Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	gw := gateway.NewForTesting(mockPool)
	return New(gw), mockPool
}

func TestPushCreatesQueueAndUpsertsMessage(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(ensureQueueSQL)).
		WithArgs("orders").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(lockQueueForUpdateSQL)).
		WithArgs("orders").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(regexp.QuoteMeta(lockMessageForUpdateSQL)).
		WithArgs("orders", "msg-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 0))
	mock.ExpectExec(regexp.QuoteMeta(upsertMessageSQL)).
		WithArgs("orders", "msg-1", "payload", int32(5), int64(0), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := eng.Push(context.Background(), "orders", PushRequest{
		MessageID: "msg-1",
		Payload:   "payload",
		Priority:  5,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPushIfNotExistsReturnsFalseWhenRowAlreadyPresent(t *testing.T) {
	eng, mock := newTestEngine(t)

	rows := pgxmock.NewRows([]string{"?column?"}).AddRow(int32(1))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(ensureQueueSQL)).
		WithArgs("orders").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(lockQueueForUpdateSQL)).
		WithArgs("orders").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(existsMessageSQL)).
		WithArgs("orders", "msg-1").
		WillReturnRows(rows)
	mock.ExpectCommit()

	created, err := eng.PushIfNotExists(context.Background(), "orders", PushRequest{
		MessageID: "msg-1",
		Payload:   "payload",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
