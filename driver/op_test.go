package driver_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx/driver"
)

func TestOpPayloadConsumedOnce(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	op := driver.NewOp()
	require.False(op.Ready())
	_, err := op.Payload()
	require.ErrorIs(err, driver.ErrNotReady)

	rs := &driver.ResultSet{}
	require.True(op.Complete(driver.CodeOK, "", rs))
	require.False(op.Complete(driver.CodeTimeout, "late", nil))
	require.True(op.Ready())
	require.Equal(driver.CodeOK, op.ErrorCode())

	payload, err := op.Payload()
	require.NoError(err)
	require.Same(rs, payload)

	_, err = op.Payload()
	require.ErrorIs(err, driver.ErrConsumed)
}

func TestOpFailureHasNoPayload(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	op := driver.CompletedOp(driver.CodeTimeout, "deadline", &driver.ResultSet{})
	require.Equal(driver.CodeTimeout, op.ErrorCode())
	require.Equal("deadline", op.ErrorMessage())

	payload, err := op.Payload()
	require.NoError(err)
	require.Nil(payload)
}

func TestOpCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	calls := 0
	var released any
	op := driver.NewOp().OnClose(func(unconsumed any) {
		calls++
		released = unconsumed
	})
	meta := &driver.PreparedMetadata{Query: "SELECT 1"}
	op.Complete(driver.CodeOK, "", meta)
	require.NoError(op.Close())
	require.NoError(op.Close())
	require.Equal(1, calls)
	require.Same(meta, released)
	require.True(op.Closed())

	_, err := op.Payload()
	require.ErrorIs(err, driver.ErrConsumed)
}

func TestParseType(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	require.Equal(driver.TypeText, driver.ParseType("VARCHAR"))
	require.Equal(driver.TypeBigInt, driver.ParseType(" bigint "))
	require.Equal(driver.TypeTimestamp, driver.ParseType("TIMESTAMP"))
	require.Equal(driver.TypeUnknown, driver.ParseType("decimal"))
	require.Equal("tinyint", driver.TypeTinyInt.String())
}
