package sqlite

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/driver"
)

// encode converts a bound value into its storage form.
// Timestamps are unix milliseconds, booleans 0 and 1, uuids canonical text.
func encode(value any) any {
	switch v := value.(type) {
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return v.UnixMilli()
	case uuid.UUID:
		return v.String()
	default:
		return value
	}
}

func args(params []param, values []any) []any {
	result := make([]any, 0, len(values))
	for i, value := range values {
		value = encode(value)
		if i < len(params) && params[i].named {
			result = append(result, sql.Named(params[i].name, value))
			continue
		}
		result = append(result, value)
	}
	return result
}

func decode(typ driver.Type, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch typ {
	case driver.TypeTinyInt:
		v, err := bounded(value, math.MinInt8, math.MaxInt8)
		return int8(v), err
	case driver.TypeSmallInt:
		v, err := bounded(value, math.MinInt16, math.MaxInt16)
		return int16(v), err
	case driver.TypeInt:
		v, err := bounded(value, math.MinInt32, math.MaxInt32)
		return int32(v), err
	case driver.TypeBigInt:
		return integer(value)
	case driver.TypeFloat:
		v, err := floating(value)
		if err != nil {
			return nil, err
		}
		if math.Abs(v) > math.MaxFloat32 && !math.IsInf(v, 0) {
			return nil, errors.Errorf("value %v is out of float range", v)
		}
		return float32(v), nil
	case driver.TypeDouble:
		return floating(value)
	case driver.TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		}
	case driver.TypeText:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case driver.TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return v.UTC(), nil
		case int64:
			return time.UnixMilli(v).UTC(), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, errors.WithMessage(err, "parse timestamp")
			}
			return t.UTC(), nil
		}
	case driver.TypeUUID:
		switch v := value.(type) {
		case string:
			return uuid.Parse(v)
		case []byte:
			if len(v) == 16 {
				return uuid.FromBytes(v)
			}
			return uuid.ParseBytes(v)
		}
	case driver.TypeBlob:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
	default:
		if v, ok := value.([]byte); ok {
			return append([]byte{}, v...), nil
		}
		return value, nil
	}
	return nil, errors.Errorf("unexpected %T value for %s column", value, typ)
}

// bounded reads a stored integer that must fit into [low, high].
func bounded(value any, low int64, high int64) (int64, error) {
	v, err := integer(value)
	if err != nil {
		return 0, err
	}
	if v < low || v > high {
		return 0, errors.Errorf("value %d is out of range [%d, %d]", v, low, high)
	}
	return v, nil
}

func integer(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, errors.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	default:
		return 0, errors.Errorf("unexpected %T value for integer column", value)
	}
}

func floating(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	default:
		return 0, errors.Errorf("unexpected %T value for real column", value)
	}
}

func errorCode(ctx context.Context, err error) driver.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return driver.CodeTimeout
	}
	if errors.Is(err, sql.ErrConnDone) {
		return driver.CodeClosed
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "database is closed"), strings.Contains(message, "statement is closed"):
		return driver.CodeClosed
	case strings.Contains(message, "syntax error"),
		strings.Contains(message, "incomplete input"),
		strings.Contains(message, "unrecognized token"):
		return driver.CodeSyntax
	case strings.Contains(message, "no such"),
		strings.Contains(message, "has no column"),
		strings.Contains(message, "constraint failed"),
		strings.Contains(message, "datatype mismatch"),
		strings.Contains(message, "already exists"):
		return driver.CodeInvalidQuery
	case strings.Contains(message, "database is locked"), strings.Contains(message, "busy"):
		return driver.CodeUnavailable
	default:
		return driver.CodeServer
	}
}
