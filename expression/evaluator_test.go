package expression

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/tabeth/concreteoci/models"
)

func testSchema(t *testing.T) *models.Schema {
	t.Helper()
	schema, err := ParseDDL("CREATE TABLE items (id STRING, qty INTEGER, price DOUBLE, active BOOLEAN, tags JSON, PRIMARY KEY(id))")
	if err != nil {
		t.Fatalf("ParseDDL error: %v", err)
	}
	return schema
}

func TestEvaluator_Match(t *testing.T) {
	schema := testSchema(t)
	row := map[string]any{
		"id":     "a-1",
		"qty":    json.Number("7"),
		"price":  2.5,
		"active": true,
		"tags":   []any{"x"},
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM items", true},
		{"SELECT * FROM items WHERE id = 'a-1'", true},
		{"SELECT * FROM items WHERE ID = 'a-1'", true},
		{"SELECT * FROM items WHERE id = 'a-2'", false},
		{"SELECT * FROM items WHERE qty > 5", true},
		{"SELECT * FROM items WHERE qty <= 6", false},
		{"SELECT * FROM items WHERE qty = '7'", true},
		{"SELECT * FROM items WHERE price < 3 AND active = true", true},
		{"SELECT * FROM items WHERE price < 3 AND active = false", false},
		{"SELECT * FROM items WHERE id >= 'a' AND id < 'b'", true},
		{"SELECT * FROM items WHERE qty != 7", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			stmt, err := ParseSelect(tt.query)
			if err != nil {
				t.Fatalf("ParseSelect error: %v", err)
			}
			pred, err := NewEvaluator(schema).Compile(stmt)
			if err != nil {
				t.Fatalf("Compile error: %v", err)
			}
			if got := pred.Match(row); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluator_MissingColumnDoesNotMatch(t *testing.T) {
	schema := testSchema(t)
	stmt, _ := ParseSelect("SELECT * FROM items WHERE qty = 1")
	pred, err := NewEvaluator(schema).Compile(stmt)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if pred.Match(map[string]any{"id": "a"}) {
		t.Error("row without qty should not match")
	}
	if pred.Match(map[string]any{"id": "a", "qty": nil}) {
		t.Error("null qty should not match")
	}
}

func TestEvaluator_CompileErrors(t *testing.T) {
	schema := testSchema(t)
	queries := []string{
		"SELECT missing FROM items",
		"SELECT * FROM items WHERE missing = 1",
		"SELECT * FROM items WHERE id = 5",
		"SELECT * FROM items WHERE qty = 'seven'",
		"SELECT * FROM items WHERE qty = 1.5",
		"SELECT * FROM items WHERE active = 'yes'",
		"SELECT * FROM items WHERE price = true",
	}
	for _, q := range queries {
		stmt, err := ParseSelect(q)
		if err != nil {
			t.Fatalf("ParseSelect(%q) error: %v", q, err)
		}
		if _, err := NewEvaluator(schema).Compile(stmt); err == nil {
			t.Errorf("Compile(%q) expected error", q)
		}
	}
}

func TestEvaluator_Project(t *testing.T) {
	schema := testSchema(t)
	ev := NewEvaluator(schema)
	row := map[string]any{"id": "a", "qty": int64(1), "price": 1.0}

	star, _ := ParseSelect("SELECT * FROM items")
	if got := ev.Project(star, row); !reflect.DeepEqual(got, row) {
		t.Errorf("Project(*) = %v", got)
	}

	cols, _ := ParseSelect("SELECT ID, active FROM items")
	got := ev.Project(cols, row)
	want := map[string]any{"id": "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project = %v, want %v", got, want)
	}
}

func TestCoerceValue(t *testing.T) {
	intCol := &models.Column{Name: "n", Type: models.TypeInteger}
	longCol := &models.Column{Name: "l", Type: models.TypeLong}
	numCol := &models.Column{Name: "x", Type: models.TypeNumber}
	strCol := &models.Column{Name: "s", Type: models.TypeString}
	boolCol := &models.Column{Name: "b", Type: models.TypeBoolean}
	enumCol := &models.Column{Name: "e", Type: models.TypeEnum, Symbols: []string{"RED", "GREEN"}}
	jsonCol := &models.Column{Name: "j", Type: models.TypeJSON}
	tsCol := &models.Column{Name: "ts", Type: models.TypeTimestamp, Precision: 3}

	tests := []struct {
		name    string
		col     *models.Column
		in      any
		want    any
		wantErr bool
	}{
		{"IntegerFromNumber", intCol, json.Number("42"), int64(42), false},
		{"IntegerFromFloat", intCol, float64(3), int64(3), false},
		{"IntegerFraction", intCol, 3.5, nil, true},
		{"IntegerOverflow", intCol, json.Number("3000000000"), nil, true},
		{"LongLarge", longCol, json.Number("3000000000"), int64(3000000000), false},
		{"LongAbove2To53", longCol, json.Number("9007199254740993"), int64(9007199254740993), false},
		{"LongMax", longCol, json.Number("9223372036854775807"), int64(9223372036854775807), false},
		{"LongOverflow", longCol, json.Number("9223372036854775808"), nil, true},
		{"LongExponent", longCol, json.Number("1e3"), int64(1000), false},
		{"LongFraction", longCol, json.Number("1.5"), nil, true},
		{"TimestampNormalized", tsCol, "2024-01-01T02:00:00.000+02:00", "2024-01-01T00:00:00Z", false},
		{"TimestampWithoutZone", tsCol, "2024-01-01T00:00:00.5", "2024-01-01T00:00:00.5Z", false},
		{"TimestampInvalid", tsCol, "not-a-timestamp", nil, true},
		{"NumberKeepsFraction", numCol, json.Number("1.25"), 1.25, false},
		{"NumberFromString", numCol, "1", nil, true},
		{"String", strCol, "hello", "hello", false},
		{"StringFromNumber", strCol, json.Number("1"), nil, true},
		{"Bool", boolCol, false, false, false},
		{"BoolFromString", boolCol, "true", nil, true},
		{"EnumAllowed", enumCol, "GREEN", "GREEN", false},
		{"EnumRejected", enumCol, "BLUE", nil, true},
		{"JSONUnchanged", jsonCol, map[string]any{"a": 1.0}, map[string]any{"a": 1.0}, false},
		{"Null", intCol, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceValue(tt.col, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CoerceValue error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CoerceValue = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseLiteral(t *testing.T) {
	longCol := &models.Column{Name: "l", Type: models.TypeLong}
	boolCol := &models.Column{Name: "b", Type: models.TypeBoolean}
	jsonCol := &models.Column{Name: "j", Type: models.TypeJSON}

	if v, err := ParseLiteral(longCol, " 12 "); err != nil || v != int64(12) {
		t.Errorf("ParseLiteral(long) = %v, %v", v, err)
	}
	if _, err := ParseLiteral(longCol, "abc"); err == nil {
		t.Error("expected error for non-numeric long")
	}
	if v, err := ParseLiteral(longCol, "9007199254740993"); err != nil || v != int64(9007199254740993) {
		t.Errorf("ParseLiteral(long above 2^53) = %v, %v", v, err)
	}
	intCol := &models.Column{Name: "n", Type: models.TypeInteger}
	if _, err := ParseLiteral(intCol, "2147483648"); err == nil {
		t.Error("expected INTEGER overflow")
	}
	tsCol := &models.Column{Name: "ts", Type: models.TypeTimestamp}
	if v, err := ParseLiteral(tsCol, "2024-01-01T00:00:00.000Z"); err != nil || v != "2024-01-01T00:00:00Z" {
		t.Errorf("ParseLiteral(timestamp) = %v, %v", v, err)
	}
	if _, err := ParseLiteral(tsCol, "yesterday"); err == nil {
		t.Error("expected error for invalid timestamp")
	}
	if v, err := ParseLiteral(boolCol, "TRUE"); err != nil || v != true {
		t.Errorf("ParseLiteral(bool) = %v, %v", v, err)
	}
	if v, _ := ParseLiteral(jsonCol, `[1,2]`); !reflect.DeepEqual(v, []any{1.0, 2.0}) {
		t.Errorf("ParseLiteral(json) = %v", v)
	}
	if v, _ := ParseLiteral(jsonCol, `not json`); v != "not json" {
		t.Errorf("ParseLiteral(json text) = %v", v)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		typ  models.ColumnType
		a, b any
		cmp  int
		ok   bool
	}{
		{models.TypeLong, int64(1), 2.0, -1, true},
		{models.TypeLong, int64(9007199254740993), int64(9007199254740992), 1, true},
		{models.TypeTimestamp, "2024-01-01T00:00:00.5Z", "2024-01-01T00:00:01Z", -1, true},
		{models.TypeTimestamp, "2024-01-01T00:00:00Z", "bad", 0, false},
		{models.TypeDouble, json.Number("2.5"), 2.5, 0, true},
		{models.TypeString, "b", "a", 1, true},
		{models.TypeBoolean, false, true, -1, true},
		{models.TypeBoolean, true, true, 0, true},
		{models.TypeString, "a", nil, 0, false},
		{models.TypeString, "a", 1.0, 0, false},
	}
	for _, tt := range tests {
		cmp, ok := Compare(tt.typ, tt.a, tt.b)
		if cmp != tt.cmp || ok != tt.ok {
			t.Errorf("Compare(%s, %v, %v) = %d, %v; want %d, %v", tt.typ, tt.a, tt.b, cmp, ok, tt.cmp, tt.ok)
		}
	}
}
