package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultNullText is how a null cell is rendered as text.
const DefaultNullText = "nan"

// TimeLayout is the textual layout used for time values.
const TimeLayout = "2006-01-02 15:04:05"

// FormatValue renders v the way an analyst expects to read it in a report:
// floats always carry a fractional part or exponent ("1.0", "2.5", "1e+16"),
// bools are "True"/"False", and nil becomes nullText.
func FormatValue(v any, nullText string) string {
	switch t := v.(type) {
	case nil:
		return nullText
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return FormatFloat(float64(t), nullText)
	case float64:
		return FormatFloat(t, nullText)
	case time.Time:
		if t.Nanosecond() != 0 {
			return t.Format(TimeLayout + ".000000")
		}
		return t.Format(TimeLayout)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// FormatFloat renders the shortest representation that round-trips, switching
// to exponent form below 1e-4 and at or above 1e16. NaN renders as nullText.
func FormatFloat(v float64, nullText string) string {
	switch {
	case math.IsNaN(v):
		return nullText
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
