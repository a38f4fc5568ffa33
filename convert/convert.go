// Package convert coerces loosely-typed values (strings, numbers read from
// a lookup coordinate, values produced by a rule body) to a requested
// strongly-typed kind.
//
// The set of target kinds is closed; see Kind. Conversion is a pure
// function with no side effects and is safe for concurrent use.
package convert

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// Kind identifies a conversion target.
type Kind int

const (
	Int8 Kind = iota
	Int16
	Int32
	Int64
	Float32
	Float64
	BigInt
	Decimal
	String
	Timestamp
	DateKind
)

var kindNames = map[Kind]string{
	Int8:      "int8",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
	Float32:   "float32",
	Float64:   "float64",
	BigInt:    "bigint",
	Decimal:   "decimal",
	String:    "string",
	Timestamp: "timestamp",
	DateKind:  "date",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the Kind named by t. Cell metadata stores target kinds
// as text; this is the inverse of Kind.String.
func ParseKind(t string) (Kind, error) {
	for k, n := range kindNames {
		if n == t {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unrecognized kind: %s", t)
}

// A Date is a day-precision instant. It converts like a Timestamp but
// renders without a time component.
type Date time.Time

// Time returns the underlying instant.
func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) String() string { return time.Time(d).Format("2006-01-02") }

const timestampFormat = "2006-01-02T15:04:05"

// UnsupportedConversionError reports that the source value's runtime shape
// has no conversion rule for the requested kind, or that a textual value
// could not be parsed. The message names both the observed shape and the
// requested kind.
type UnsupportedConversionError struct {
	Value interface{}
	Kind  Kind
	Err   error // parse failure, if any
}

func (e *UnsupportedConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("value [%T] could not be converted to '%v': %v", e.Value, e.Kind, e.Err)
	}
	return fmt.Sprintf("unsupported value type [%T] attempting to convert to '%v'", e.Value, e.Kind)
}

func (e *UnsupportedConversionError) Unwrap() error { return e.Err }

// UnsupportedTargetError reports a requested kind outside the closed set.
type UnsupportedTargetError struct {
	Kind Kind
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("unsupported target kind '%v' for conversion", e.Kind)
}

// Convert coerces v to the kind k.
//
// Any kind accepts a value already of the target kind (returned unchanged),
// any numeric value (widened or truncated to the target's precision, with
// no range checking), a string (trimmed, then parsed), and a bool
// (true converts as 1, false as 0). The timestamp and date kinds also
// accept each other's values, an int64 of milliseconds since the Unix
// epoch, and date text in any format the permissive parser recognizes.
func Convert(v interface{}, k Kind) (interface{}, error) {
	switch k {
	case Int8:
		n, err := toInt64(v, k)
		if err != nil {
			return nil, err
		}
		return int8(n), nil
	case Int16:
		n, err := toInt64(v, k)
		if err != nil {
			return nil, err
		}
		return int16(n), nil
	case Int32:
		n, err := toInt64(v, k)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case Int64:
		return toInt64(v, k)
	case Float32:
		f, err := toFloat64(v, k)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case Float64:
		return toFloat64(v, k)
	case BigInt:
		return toBigInt(v)
	case Decimal:
		return toDecimal(v)
	case String:
		return toString(v)
	case Timestamp:
		t, err := toTime(v, k)
		if err != nil {
			return nil, err
		}
		return t, nil
	case DateKind:
		t, err := toTime(v, k)
		if err != nil {
			return nil, err
		}
		return Date(t), nil
	default:
		return nil, &UnsupportedTargetError{Kind: k}
	}
}

func toInt64(v interface{}, k Kind) (int64, error) {
	switch n := v.(type) {
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case *big.Int:
		return n.Int64(), nil
	case decimal.Decimal:
		return n.IntPart(), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, &UnsupportedConversionError{Value: v, Kind: k, Err: err}
		}
		return i, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case time.Time:
		return n.UnixMilli(), nil
	case Date:
		return n.Time().UnixMilli(), nil
	}
	return 0, &UnsupportedConversionError{Value: v, Kind: k}
}

func toFloat64(v interface{}, k Kind) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, nil
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, &UnsupportedConversionError{Value: v, Kind: k, Err: err}
		}
		return f, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, &UnsupportedConversionError{Value: v, Kind: k}
}

func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case decimal.Decimal:
		return n.BigInt(), nil
	case string:
		i, ok := new(big.Int).SetString(strings.TrimSpace(n), 10)
		if !ok {
			return nil, &UnsupportedConversionError{Value: v, Kind: BigInt,
				Err: fmt.Errorf("parsing %q as an integer", strings.TrimSpace(n))}
		}
		return i, nil
	case bool:
		if n {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case time.Time:
		return big.NewInt(n.UnixMilli()), nil
	case Date:
		return big.NewInt(n.Time().UnixMilli()), nil
	}
	if i, err := toInt64(v, BigInt); err == nil {
		return big.NewInt(i), nil
	}
	return nil, &UnsupportedConversionError{Value: v, Kind: BigInt}
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *big.Int:
		return decimal.NewFromBigInt(n, 0), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Decimal{}, &UnsupportedConversionError{Value: v, Kind: Decimal, Err: err}
		}
		return d, nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case bool:
		if n {
			return decimal.NewFromInt(1), nil
		}
		return decimal.NewFromInt(0), nil
	case time.Time:
		return decimal.NewFromInt(n.UnixMilli()), nil
	case Date:
		return decimal.NewFromInt(n.Time().UnixMilli()), nil
	}
	if i, err := toInt64(v, Decimal); err == nil {
		return decimal.NewFromInt(i), nil
	}
	return decimal.Decimal{}, &UnsupportedConversionError{Value: v, Kind: Decimal}
}

func toString(v interface{}) (string, error) {
	switch n := v.(type) {
	case string:
		return n, nil
	case decimal.Decimal:
		return stripTrailingZeros(n.String()), nil
	case *big.Int:
		return n.String(), nil
	case bool:
		return strconv.FormatBool(n), nil
	case int8, int16, int32, int64, int, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", n), nil
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case time.Time:
		return n.Format(timestampFormat), nil
	case Date:
		return n.String(), nil
	}
	return "", &UnsupportedConversionError{Value: v, Kind: String}
}

func toTime(v interface{}, k Kind) (time.Time, error) {
	switch n := v.(type) {
	case time.Time:
		return n, nil
	case Date:
		return n.Time(), nil
	case int64:
		return time.UnixMilli(n), nil
	case int:
		return time.UnixMilli(int64(n)), nil
	case string:
		t, err := dateparse.ParseAny(strings.TrimSpace(n))
		if err != nil {
			return time.Time{}, &UnsupportedConversionError{Value: v, Kind: k, Err: err}
		}
		return t, nil
	}
	return time.Time{}, &UnsupportedConversionError{Value: v, Kind: k}
}

// stripTrailingZeros removes trailing fractional zeros (and a dangling
// decimal point) from a plain decimal rendering: "10.500" becomes "10.5".
func stripTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
