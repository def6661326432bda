package enc_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx/enc"
)

func TestMarshalRow(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	id := uuid.MustParse("6a2b1f5e-5d1c-4a7f-9a4b-2d0f3c1e8b77")
	at := time.Date(2024, 3, 1, 10, 20, 30, 123000000, time.FixedZone("MSK", 3*3600))
	row := map[string]any{
		"id":        id,
		"timestamp": at,
		"text":      "<hello>",
		"nothing":   nil,
	}

	data, err := enc.Marshal(row)
	require.NoError(err)
	require.JSONEq(`{
		"id": "6a2b1f5e-5d1c-4a7f-9a4b-2d0f3c1e8b77",
		"nothing": null,
		"text": "<hello>",
		"timestamp": "2024-03-01T07:20:30.123Z"
	}`, string(data))

	decoded := struct {
		Timestamp time.Time `json:"timestamp"`
	}{}
	require.NoError(enc.Unmarshal(data, &decoded))
	require.True(at.Equal(decoded.Timestamp))
}

func TestEncodeInto(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	buf := enc.AcquireBuffer()
	defer enc.ReleaseBuffer(buf)

	require.NoError(enc.EncodeInto(buf, map[string]any{"b": 2, "a": 1}))
	require.NoError(enc.EncodeInto(buf, []int{1}))
	require.Equal("{\"a\":1,\"b\":2}\n[1]\n", buf.String())
}
