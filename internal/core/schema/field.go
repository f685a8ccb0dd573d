// Package schema declares models and fields explicitly and renders their
// SQLite column definitions.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldType names a column family.
type FieldType string

const (
	Integer    FieldType = "integer"
	Char       FieldType = "char"
	Text       FieldType = "text"
	Float      FieldType = "float"
	Boolean    FieldType = "boolean"
	DateTime   FieldType = "datetime"
	JSON       FieldType = "json"
	ForeignKey FieldType = "foreign_key"
)

// TimestampLayout is how datetimes are stored. Fixed width keeps textual
// ordering chronological.
const TimestampLayout = "2006-01-02 15:04:05.000000"

var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Field describes one column of a model.
type Field struct {
	Name          string
	Type          FieldType
	Column        string
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	NotNull       bool
	Default       any
	HasDefault    bool
	MaxLength     int
	References    string
	OnDelete      string
	AutoNow       bool
	AutoNowAdd    bool
}

// FieldOption configures a Field.
type FieldOption func(*Field)

// PrimaryKey marks the field as the primary key.
func PrimaryKey() FieldOption { return func(f *Field) { f.PrimaryKey = true } }

// AutoIncrement makes an integer primary key AUTOINCREMENT.
func AutoIncrement() FieldOption { return func(f *Field) { f.AutoIncrement = true } }

// Unique adds a UNIQUE constraint.
func Unique() FieldOption { return func(f *Field) { f.Unique = true } }

// NotNull adds a NOT NULL constraint.
func NotNull() FieldOption { return func(f *Field) { f.NotNull = true } }

// Default sets a literal column default.
func Default(v any) FieldOption {
	return func(f *Field) {
		f.Default = v
		f.HasDefault = true
	}
}

// Column overrides the column name.
func Column(name string) FieldOption { return func(f *Field) { f.Column = name } }

// MaxLength sets the VARCHAR length of a char field.
func MaxLength(n int) FieldOption { return func(f *Field) { f.MaxLength = n } }

// OnDelete sets the ON DELETE action of a foreign key.
func OnDelete(action string) FieldOption { return func(f *Field) { f.OnDelete = action } }

// AutoNow stamps the field with the current time on every save.
func AutoNow() FieldOption { return func(f *Field) { f.AutoNow = true } }

// AutoNowAdd stamps the field with the current time on insert.
func AutoNowAdd() FieldOption { return func(f *Field) { f.AutoNowAdd = true } }

func newField(name string, t FieldType, opts []FieldOption) Field {
	f := Field{Name: name, Type: t}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func IntegerField(name string, opts ...FieldOption) Field {
	return newField(name, Integer, opts)
}

func CharField(name string, maxLength int, opts ...FieldOption) Field {
	return newField(name, Char, append([]FieldOption{MaxLength(maxLength)}, opts...))
}

func TextField(name string, opts ...FieldOption) Field {
	return newField(name, Text, opts)
}

func FloatField(name string, opts ...FieldOption) Field {
	return newField(name, Float, opts)
}

func BooleanField(name string, opts ...FieldOption) Field {
	return newField(name, Boolean, opts)
}

func DateTimeField(name string, opts ...FieldOption) Field {
	return newField(name, DateTime, opts)
}

func JSONField(name string, opts ...FieldOption) Field {
	return newField(name, JSON, opts)
}

// ForeignKeyField references the id column of table.
func ForeignKeyField(name, table string, opts ...FieldOption) Field {
	return newField(name, ForeignKey, append([]FieldOption{func(f *Field) {
		f.References = table
		f.OnDelete = "CASCADE"
	}}, opts...))
}

// ColumnName is the column the field maps to.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Generated reports whether the value is produced at insert time rather
// than by a column default.
func (f Field) Generated() bool {
	return f.AutoNow || f.AutoNowAdd
}

// SQLType is the declared column type.
func (f Field) SQLType() string {
	switch f.Type {
	case Char:
		n := f.MaxLength
		if n <= 0 {
			n = 255
		}
		return "VARCHAR(" + strconv.Itoa(n) + ")"
	case Text, JSON:
		return "TEXT"
	case Float:
		return "REAL"
	case DateTime:
		return "TIMESTAMP"
	default:
		return "INTEGER"
	}
}

// Definition renders the column definition without the column name.
func (f Field) Definition() string {
	parts := []string{f.SQLType()}

	if f.Type == ForeignKey {
		if f.NotNull {
			parts = append(parts, "NOT NULL")
		}
		onDelete := f.OnDelete
		if onDelete == "" {
			onDelete = "CASCADE"
		}
		parts = append(parts, fmt.Sprintf(`REFERENCES "%s"("id") ON DELETE %s`, f.References, onDelete))
		return strings.Join(parts, " ")
	}

	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
		if f.AutoIncrement && f.Type == Integer {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if f.Unique && !f.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}
	if f.NotNull && !f.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}
	if f.HasDefault && f.Default != nil && !f.Generated() {
		if lit, err := f.literal(f.Default); err == nil {
			parts = append(parts, "DEFAULT "+lit)
		}
	}
	return strings.Join(parts, " ")
}

func (f Field) literal(v any) (string, error) {
	dbv, err := f.ToDB(v)
	if err != nil {
		return "", err
	}
	switch t := dbv.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'", nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// ToDB converts a Go value into what the column stores.
func (f Field) ToDB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case Boolean:
		switch t := v.(type) {
		case bool:
			if t {
				return 1, nil
			}
			return 0, nil
		case int:
			return boolInt(t != 0), nil
		case int64:
			return boolInt(t != 0), nil
		}
		return nil, fmt.Errorf("field %s: cannot store %T as boolean", f.Name, v)
	case DateTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format(TimestampLayout), nil
		case *time.Time:
			if t == nil {
				return nil, nil
			}
			return t.UTC().Format(TimestampLayout), nil
		case string:
			return t, nil
		}
		return nil, fmt.Errorf("field %s: cannot store %T as datetime", f.Name, v)
	case JSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return string(b), nil
	}
	return v, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// FromDB converts a stored value into its Go form.
func (f Field) FromDB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case Integer, ForeignKey:
		return toInt64(v)
	case Float:
		return toFloat64(v)
	case Boolean:
		n, err := toInt64(v)
		if err != nil {
			if b, ok := v.(bool); ok {
				return b, nil
			}
			return nil, err
		}
		return n != 0, nil
	case Char, Text:
		switch t := v.(type) {
		case []byte:
			return string(t), nil
		case string:
			return t, nil
		}
		return fmt.Sprint(v), nil
	case DateTime:
		return toTime(v)
	case JSON:
		var raw []byte
		switch t := v.(type) {
		case string:
			raw = []byte(t)
		case []byte:
			raw = t
		default:
			return v, nil
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return out, nil
	}
	return v, nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		if t == math.Trunc(t) {
			return int64(t), nil
		}
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to integer", v)
}

func toFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case []byte:
		return strconv.ParseFloat(string(t), 64)
	case string:
		return strconv.ParseFloat(t, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

// ParseTime reads any of the layouts SQLite drivers hand back.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as datetime", s)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return ParseTime(t)
	case []byte:
		return ParseTime(string(t))
	case int64:
		return time.Unix(t, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to datetime", v)
}

// Validate checks v against the field's null and length constraints.
func (f Field) Validate(v any) error {
	if v == nil {
		if f.NotNull && !f.PrimaryKey && !f.Generated() {
			return fmt.Errorf("%s cannot be null", f.Name)
		}
		return nil
	}
	if f.Type == Char && f.MaxLength > 0 {
		if n := len([]rune(fmt.Sprint(v))); n > f.MaxLength {
			return fmt.Errorf("%s exceeds max length of %d", f.Name, f.MaxLength)
		}
	}
	return nil
}
