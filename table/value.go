package table

import (
	"cmp"
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/wkalt/tsjoin/util"
)

/*
Values are plain Go values: time.Time for timestamps, int64, float64, string
and bool. A nil value is null.
*/

////////////////////////////////////////////////////////////////////////////////

// Row is a tuple of values aligned with a schema.
type Row []any

// CheckValue reports whether v is a valid value for a column of type t.
func CheckValue(t ColumnType, v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case time.Time:
		return t == TIMESTAMP
	case int64:
		return t == INT64
	case float64:
		return t == FLOAT64
	case string:
		return t == STRING
	case bool:
		return t == BOOL
	}
	return false
}

// Unordered reports whether v is null or a NaN float. Unordered values never
// compare equal to anything, including themselves.
func Unordered(v any) bool {
	f, ok := v.(float64)
	return v == nil || ok && math.IsNaN(f)
}

// Compare orders two non-null values of comparable ordered types. Mixed int64
// and float64 values compare numerically.
func Compare(a, b any) int {
	switch a := a.(type) {
	case time.Time:
		return a.Compare(b.(time.Time))
	case int64:
		if b, ok := b.(int64); ok {
			return cmp.Compare(a, b)
		}
		return cmp.Compare(float64(a), b.(float64))
	case float64:
		if b, ok := b.(int64); ok {
			return cmp.Compare(a, float64(b))
		}
		return cmp.Compare(a, b.(float64))
	}
	panic("compare: unordered value")
}

// Within reports whether left - right <= tolerance. Timestamps subtract to a
// duration; numeric values are compared on their own scale, reading the
// tolerance as a count of nanoseconds.
func Within(left, right any, tolerance time.Duration) bool {
	switch l := left.(type) {
	case time.Time:
		return l.Sub(right.(time.Time)) <= tolerance
	case int64:
		if r, ok := right.(int64); ok {
			diff := l - r
			if r < 0 && diff < l { // overflow
				return false
			}
			return diff <= int64(tolerance)
		}
		return float64(l)-right.(float64) <= float64(tolerance)
	case float64:
		var r float64
		switch v := right.(type) {
		case int64:
			r = float64(v)
		case float64:
			r = v
		}
		return l-r <= float64(tolerance)
	}
	panic("within: unordered value")
}

type timeKey struct {
	sec  int64
	nsec int32
}

// Key normalizes a value for use as a map key, so that values that compare
// equal produce equal keys. Integral float64 values map to int64.
func Key(v any) any {
	switch v := v.(type) {
	case time.Time:
		return timeKey{sec: v.Unix(), nsec: int32(v.Nanosecond())}
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v)
		}
		return v
	}
	return v
}

// AppendKey appends a canonical byte encoding of Key(v) to buf. Values with
// equal keys produce equal encodings, which makes the encoding suitable for
// hash partitioning.
func AppendKey(buf []byte, v any) []byte {
	switch k := Key(v).(type) {
	case nil:
		return append(buf, 0)
	case timeKey:
		buf = binary.BigEndian.AppendUint64(append(buf, 1), uint64(k.sec))
		return binary.BigEndian.AppendUint32(buf, uint32(k.nsec))
	case int64:
		return binary.BigEndian.AppendUint64(append(buf, 2), uint64(k))
	case float64:
		return binary.BigEndian.AppendUint64(append(buf, 3), math.Float64bits(k))
	case string:
		return append(append(buf, 4), k...)
	case bool:
		return append(buf, 5, util.When(k, byte(1), byte(0)))
	}
	panic("append key: unsupported value")
}

// FormatValue renders a value for display.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	return "?"
}
