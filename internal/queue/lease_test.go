package queue

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopUpdateSQLGeneratesOnePlaceholderPerCandidate(t *testing.T) {
	sql := popUpdateSQL(3)
	assert.Contains(t, sql, "$2,$3,$4")
	assert.Contains(t, sql, "WHERE queue_name = $1")
	assert.NotContains(t, sql, "$5")
}

func TestPollMessagesNonRetriedPopsVisibleCandidates(t *testing.T) {
	eng, mock := newTestEngine(t)

	now := time.Now()
	rows := pgxmock.NewRows([]string{"message_id", "payload", "priority", "offset_time_seconds", "deliver_on", "created_on"}).
		AddRow("msg-1", "payload-1", int32(1), int64(0), now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(peekMessagesSQL)).
		WithArgs("orders", 5).
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta(popUpdateSQL(1))).
		WithArgs("orders", "msg-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	msgs, err := eng.PollMessages(context.Background(), "orders", 5, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "msg-1", msgs[0].MessageID)
	assert.True(t, msgs[0].Popped)
	assert.NoError(t, mock.ExpectationsWereMet())
}
