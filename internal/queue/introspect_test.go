package queue

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSizeReturnsCount(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(getSizeSQL)).
		WithArgs("orders").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectCommit()

	n, err := eng.GetSize(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueuesDetailVerboseMapsEachQueueToShardA(t *testing.T) {
	eng, mock := newTestEngine(t)

	rows := pgxmock.NewRows([]string{"queue_name", "visible", "unacked"}).
		AddRow("orders", int64(2), int64(1))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(queuesDetailVerboseSQL)).
		WillReturnRows(rows)
	mock.ExpectCommit()

	detail, err := eng.QueuesDetailVerbose(context.Background())
	require.NoError(t, err)
	require.Contains(t, detail, "orders")
	assert.Equal(t, ShardDetail{Size: 2, Unacked: 1}, detail["orders"]["a"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
