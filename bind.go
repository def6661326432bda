package cqlx

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/driver"
)

// bindValue converts a caller value into the canonical Go type of the column.
// Integers are range checked and never truncated.
func bindValue(typ driver.Type, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch typ {
	case driver.TypeTinyInt:
		v, err := bindInteger(value, math.MinInt8, math.MaxInt8)
		return int8(v), err
	case driver.TypeSmallInt:
		v, err := bindInteger(value, math.MinInt16, math.MaxInt16)
		return int16(v), err
	case driver.TypeInt:
		v, err := bindInteger(value, math.MinInt32, math.MaxInt32)
		return int32(v), err
	case driver.TypeBigInt:
		return bindInteger(value, math.MinInt64, math.MaxInt64)
	case driver.TypeFloat:
		v, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		if !math.IsInf(v, 0) && math.Abs(v) > math.MaxFloat32 {
			return nil, errors.WithMessagef(ErrRange, "%v exceeds float", v)
		}
		return float32(v), nil
	case driver.TypeDouble:
		return toFloat(value)
	case driver.TypeBoolean:
		v, ok := value.(bool)
		if !ok {
			return nil, typeError(value)
		}
		return v, nil
	case driver.TypeText:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case fmt.Stringer:
			return v.String(), nil
		default:
			return nil, typeError(value)
		}
	case driver.TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case *time.Time:
			if v == nil {
				return nil, nil
			}
			return *v, nil
		default:
			return nil, typeError(value)
		}
	case driver.TypeUUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v, nil
		case [16]byte:
			return uuid.UUID(v), nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, errors.WithMessage(ErrType, err.Error())
			}
			return id, nil
		default:
			return nil, typeError(value)
		}
	case driver.TypeBlob:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		default:
			return nil, typeError(value)
		}
	default:
		return value, nil
	}
}

func bindInteger(value any, min int64, max int64) (int64, error) {
	var v int64
	switch n := value.(type) {
	case int:
		v = int64(n)
	case int8:
		v = int64(n)
	case int16:
		v = int64(n)
	case int32:
		v = int64(n)
	case int64:
		v = n
	case uint8:
		v = int64(n)
	case uint16:
		v = int64(n)
	case uint32:
		v = int64(n)
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, errors.WithMessagef(ErrRange, "%d exceeds [%d, %d]", n, min, max)
		}
		v = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0, errors.WithMessagef(ErrRange, "%d exceeds [%d, %d]", n, min, max)
		}
		v = int64(n)
	default:
		return 0, typeError(value)
	}

	if v < min || v > max {
		return 0, errors.WithMessagef(ErrRange, "%d exceeds [%d, %d]", v, min, max)
	}
	return v, nil
}

func toFloat(value any) (float64, error) {
	switch n := value.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		v, err := bindInteger(value, math.MinInt64, math.MaxInt64)
		if err != nil {
			return 0, err
		}
		return float64(v), nil
	default:
		return 0, typeError(value)
	}
}

func typeError(value any) error {
	return errors.WithMessagef(ErrType, "got %T", value)
}
