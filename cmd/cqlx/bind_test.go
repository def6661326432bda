package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx/driver"
)

func TestBindValues(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	params := []driver.Column{
		{Name: "id", Type: driver.TypeBigInt},
		{Name: "created_at", Type: driver.TypeTimestamp},
	}
	values, err := bindValues(`{
		"id": 42,
		"ratio": 1.5,
		"big": 1e3,
		"ok": true,
		"message": "hello",
		"nothing": null,
		"tags": ["a", "b"],
		"CREATED_AT": "2024-03-01T10:20:30Z"
	}`, params)
	require.NoError(err)
	require.Equal(map[string]any{
		"id":         int64(42),
		"ratio":      1.5,
		"big":        float64(1000),
		"ok":         true,
		"message":    "hello",
		"nothing":    nil,
		"tags":       `["a", "b"]`,
		"CREATED_AT": time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC),
	}, values)

	values, err = bindValues("", params)
	require.NoError(err)
	require.Empty(values)
}

func TestBindValuesErrors(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	params := []driver.Column{{Name: "created_at", Type: driver.TypeTimestamp}}
	_, err := bindValues(`{"id": `, params)
	require.Error(err)
	_, err = bindValues(`[1, 2]`, params)
	require.Error(err)
	_, err = bindValues(`{"created_at": "yesterday"}`, params)
	require.ErrorContains(err, "created_at")
	_, err = bindValues(`{"id": 99999999999999999999}`, params)
	require.ErrorContains(err, "value out of range")
}
