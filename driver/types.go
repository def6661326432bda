package driver

import (
	"strings"
)

type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodeTimeout
	CodeSyntax
	CodeInvalidQuery
	CodeUnavailable
	CodeConnect
	CodeServer
	CodeClosed
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeTimeout:
		return "request timed out"
	case CodeSyntax:
		return "syntax error"
	case CodeInvalidQuery:
		return "invalid query"
	case CodeUnavailable:
		return "unavailable"
	case CodeConnect:
		return "unable to connect"
	case CodeServer:
		return "server error"
	case CodeClosed:
		return "session closed"
	default:
		return "unknown error"
	}
}

type Type int

const (
	TypeUnknown Type = iota
	TypeTinyInt
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDouble
	TypeBoolean
	TypeText
	TypeTimestamp
	TypeUUID
	TypeBlob
)

var typeNames = map[Type]string{
	TypeUnknown:   "unknown",
	TypeTinyInt:   "tinyint",
	TypeSmallInt:  "smallint",
	TypeInt:       "int",
	TypeBigInt:    "bigint",
	TypeFloat:     "float",
	TypeDouble:    "double",
	TypeBoolean:   "boolean",
	TypeText:      "text",
	TypeTimestamp: "timestamp",
	TypeUUID:      "uuid",
	TypeBlob:      "blob",
}

func (t Type) String() string {
	name, ok := typeNames[t]
	if !ok {
		return typeNames[TypeUnknown]
	}
	return name
}

// ParseType maps a declared column type to Type.
// ascii and varchar are aliases of text, integer of int.
func ParseType(declared string) Type {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "tinyint":
		return TypeTinyInt
	case "smallint":
		return TypeSmallInt
	case "int", "integer":
		return TypeInt
	case "bigint", "counter":
		return TypeBigInt
	case "float":
		return TypeFloat
	case "double", "real":
		return TypeDouble
	case "boolean", "bool":
		return TypeBoolean
	case "text", "ascii", "varchar":
		return TypeText
	case "timestamp":
		return TypeTimestamp
	case "uuid", "timeuuid":
		return TypeUUID
	case "blob":
		return TypeBlob
	default:
		return TypeUnknown
	}
}

type Column struct {
	Name string
	Type Type
}

// PreparedMetadata is the payload of a completed prepare operation.
// Handle is private to the driver that produced it.
type PreparedMetadata struct {
	Query  string
	Params []Column
	Handle any
}

// BoundStatement is a snapshot of a statement taken at submission time.
type BoundStatement struct {
	Prepared    *PreparedMetadata
	Values      []any
	PageSize    int
	PagingState []byte
}

// ResultSet is the payload of a completed execute operation.
type ResultSet struct {
	Columns      []Column
	Rows         [][]any
	PagingState  []byte
	HasMorePages bool
}
