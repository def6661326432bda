package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/txix-open/cqlx/driver"
)

// bindValues reads a JSON object of column values.
// Numbers without a fraction or exponent become integers, strings bound to
// timestamp columns are parsed as RFC 3339.
func bindValues(data string, params []driver.Column) (map[string]any, error) {
	if strings.TrimSpace(data) == "" {
		return map[string]any{}, nil
	}
	if !gjson.Valid(data) {
		return nil, errors.New("bind values are not valid json")
	}
	root := gjson.Parse(data)
	if !root.IsObject() {
		return nil, errors.New("bind values must be a json object")
	}

	types := make(map[string]driver.Type, len(params))
	for _, param := range params {
		types[strings.ToLower(param.Name)] = param.Type
	}

	values := make(map[string]any)
	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		values[key.String()], err = jsonValue(value, types[strings.ToLower(key.String())])
		if err != nil {
			err = errors.WithMessagef(err, "bind %s", key.String())
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func jsonValue(value gjson.Result, typ driver.Type) (any, error) {
	switch value.Type {
	case gjson.Null:
		return nil, nil
	case gjson.True, gjson.False:
		return value.Bool(), nil
	case gjson.Number:
		if strings.ContainsAny(value.Raw, ".eE") {
			return value.Float(), nil
		}
		v, err := strconv.ParseInt(value.Raw, 10, 64)
		if err != nil {
			return nil, errors.WithMessage(err, "parse integer")
		}
		return v, nil
	case gjson.String:
		if typ == driver.TypeTimestamp {
			t, err := time.Parse(time.RFC3339Nano, value.String())
			if err != nil {
				return nil, errors.WithMessage(err, "parse timestamp")
			}
			return t, nil
		}
		return value.String(), nil
	default:
		return value.Raw, nil
	}
}
