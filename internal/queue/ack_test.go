package queue

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckIsIdempotent(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteMessageSQL)).
		WithArgs("orders", "msg-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	removed, err := eng.Ack(context.Background(), "orders", "msg-1")
	require.NoError(t, err)
	assert.True(t, removed)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteMessageSQL)).
		WithArgs("orders", "msg-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	removed, err = eng.Ack(context.Background(), "orders", "msg-1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUnackTimeoutReportsWhetherRowWasUpdated(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(setUnackTimeoutSQL)).
		WithArgs("orders", "msg-1", int64(30)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	updated, err := eng.SetUnackTimeout(context.Background(), "orders", "msg-1", 30_000)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
