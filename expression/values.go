package expression

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tabeth/concreteoci/models"
)

// CoerceValue normalizes a decoded JSON value to the canonical Go representation of
// the column's type: string for textual types, int64 for INTEGER/LONG, float64 for the
// other numeric types and bool for BOOLEAN. TIMESTAMP values are stored as RFC3339Nano
// in UTC. JSON columns accept anything unchanged.
func CoerceValue(col *models.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case col.Type == models.TypeJSON:
		return v, nil
	case col.Type.IsTextual():
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %s expects a %s value, got %T", col.Name, col.Type, v)
		}
		if col.Type == models.TypeEnum && len(col.Symbols) > 0 && !containsFold(col.Symbols, s) {
			return nil, fmt.Errorf("field %s does not allow enum value %q", col.Name, s)
		}
		if col.Type == models.TypeTimestamp {
			return normalizeTimestamp(col, s)
		}
		return s, nil
	case col.Type.IsIntegral():
		n, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("field %s expects a %s value: %w", col.Name, col.Type, err)
		}
		return integralFor(col, n)
	case col.Type.IsNumeric():
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("field %s expects a %s value: %w", col.Name, col.Type, err)
		}
		return numericFor(col, f)
	case col.Type == models.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("field %s expects a BOOLEAN value, got %T", col.Name, v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("field %s has unsupported type %s", col.Name, col.Type)
}

// ParseLiteral converts the textual form of a value, as found in a "column:value" key
// token, into the canonical representation for the column.
func ParseLiteral(col *models.Column, text string) (any, error) {
	switch {
	case col.Type == models.TypeJSON:
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return text, nil
		}
		return v, nil
	case col.Type.IsTextual():
		return CoerceValue(col, text)
	case col.Type.IsIntegral():
		n, err := toInt64(json.Number(strings.TrimSpace(text)))
		if err != nil {
			return nil, fmt.Errorf("field %s expects a whole number, got %q", col.Name, text)
		}
		return integralFor(col, n)
	case col.Type.IsNumeric():
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("field %s expects a number, got %q", col.Name, text)
		}
		return numericFor(col, f)
	case col.Type == models.TypeBoolean:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(text)))
		if err != nil {
			return nil, fmt.Errorf("field %s expects true or false, got %q", col.Name, text)
		}
		return b, nil
	}
	return nil, fmt.Errorf("field %s has unsupported type %s", col.Name, col.Type)
}

// Compare orders two canonical values of the given type. ok is false when the values
// cannot be compared, for instance when either side is nil or the types differ.
func Compare(t models.ColumnType, a, b any) (cmp int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	switch {
	case t.IsNumeric():
		if x, ok1 := a.(int64); ok1 {
			if y, ok2 := b.(int64); ok2 {
				return cmpOrdered(x, y), true
			}
		}
		x, err1 := toFloat(a)
		y, err2 := toFloat(b)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case t == models.TypeBoolean:
		x, ok1 := a.(bool)
		y, ok2 := b.(bool)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case t == models.TypeTimestamp:
		x, ok1 := a.(string)
		y, ok2 := b.(string)
		if !ok1 || !ok2 {
			return 0, false
		}
		tx, err1 := ParseTimestamp(x)
		ty, err2 := ParseTimestamp(y)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return tx.Compare(ty), true
	case t.IsTextual():
		x, ok1 := a.(string)
		y, ok2 := b.(string)
		if !ok1 || !ok2 {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	ja, err1 := json.Marshal(a)
	jb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return strings.Compare(string(ja), string(jb)), true
}

func numericFor(col *models.Column, f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("field %s does not accept %v", col.Name, f)
	}
	return f, nil
}

func integralFor(col *models.Column, n int64) (any, error) {
	if col.Type == models.TypeInteger && (n < math.MinInt32 || n > math.MaxInt32) {
		return nil, fmt.Errorf("field %s value %d overflows INTEGER", col.Name, n)
	}
	return n, nil
}

// toInt64 converts without a float64 round trip whenever the input is already
// integral, so LONG values above 2^53 keep every digit.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err == nil {
			return i, nil
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%s overflows LONG", n)
		}
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows LONG", v)
	}
	return int64(f), nil
}

func normalizeTimestamp(col *models.Column, s string) (string, error) {
	ts, err := ParseTimestamp(s)
	if err != nil {
		return "", fmt.Errorf("field %s expects a TIMESTAMP value: %w", col.Name, err)
	}
	return ts.UTC().Format(time.RFC3339Nano), nil
}

func cmpOrdered(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return strconv.ParseFloat(n.String(), 64)
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
