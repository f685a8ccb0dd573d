package schema

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// documentSchema constrains schema files before they are decoded.
const documentSchema = `{
  "type": "object",
  "required": ["models"],
  "additionalProperties": false,
  "properties": {
    "models": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "fields"],
        "additionalProperties": false,
        "properties": {
          "name":  {"type": "string", "minLength": 1},
          "table": {"type": "string"},
          "alias": {"type": "string"},
          "fields": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "type"],
              "additionalProperties": false,
              "properties": {
                "name":           {"type": "string", "minLength": 1},
                "type":           {"enum": ["integer", "char", "text", "float", "boolean", "datetime", "json", "foreign_key"]},
                "column":         {"type": "string"},
                "primary_key":    {"type": "boolean"},
                "auto_increment": {"type": "boolean"},
                "unique":         {"type": "boolean"},
                "not_null":       {"type": "boolean"},
                "default":        {},
                "max_length":     {"type": "integer", "minimum": 1},
                "references":     {"type": "string"},
                "on_delete":      {"type": "string"},
                "auto_now":       {"type": "boolean"},
                "auto_now_add":   {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}`

var compiledDocumentSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		panic(err)
	}
	return s
}()

type document struct {
	Models []modelDoc `yaml:"models"`
}

type modelDoc struct {
	Name   string     `yaml:"name"`
	Table  string     `yaml:"table,omitempty"`
	Alias  string     `yaml:"alias,omitempty"`
	Fields []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Name          string    `yaml:"name"`
	Type          FieldType `yaml:"type"`
	Column        string    `yaml:"column,omitempty"`
	PrimaryKey    bool      `yaml:"primary_key,omitempty"`
	AutoIncrement bool      `yaml:"auto_increment,omitempty"`
	Unique        bool      `yaml:"unique,omitempty"`
	NotNull       bool      `yaml:"not_null,omitempty"`
	Default       any       `yaml:"default,omitempty"`
	MaxLength     int       `yaml:"max_length,omitempty"`
	References    string    `yaml:"references,omitempty"`
	OnDelete      string    `yaml:"on_delete,omitempty"`
	AutoNow       bool      `yaml:"auto_now,omitempty"`
	AutoNowAdd    bool      `yaml:"auto_now_add,omitempty"`
}

// Load reads a YAML schema document into a registry.
func Load(r io.Reader) (*Registry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	result, err := compiledDocumentSchema.Validate(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return nil, fmt.Errorf("validate schema: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("invalid schema: %s", strings.Join(msgs, "; "))
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	models := make([]*Model, 0, len(doc.Models))
	for _, md := range doc.Models {
		fields := make([]Field, 0, len(md.Fields))
		for _, fd := range md.Fields {
			fields = append(fields, fd.field())
		}
		m := NewModel(md.Name, fields...)
		if md.Table != "" {
			m.WithTable(md.Table)
		}
		if md.Alias != "" {
			m.WithAlias(md.Alias)
		}
		models = append(models, m)
	}
	return NewRegistry(models...)
}

// LoadFile reads a schema file from fs.
func LoadFile(fs afero.Fs, path string) (*Registry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

func (fd fieldDoc) field() Field {
	f := Field{
		Name:          fd.Name,
		Type:          fd.Type,
		Column:        fd.Column,
		PrimaryKey:    fd.PrimaryKey,
		AutoIncrement: fd.AutoIncrement,
		Unique:        fd.Unique,
		NotNull:       fd.NotNull,
		Default:       fd.Default,
		HasDefault:    fd.Default != nil,
		MaxLength:     fd.MaxLength,
		References:    fd.References,
		OnDelete:      fd.OnDelete,
		AutoNow:       fd.AutoNow,
		AutoNowAdd:    fd.AutoNowAdd,
	}
	if f.Type == ForeignKey && f.OnDelete == "" {
		f.OnDelete = "CASCADE"
	}
	return f
}

func docFromField(f Field) fieldDoc {
	fd := fieldDoc{
		Name:          f.Name,
		Type:          f.Type,
		PrimaryKey:    f.PrimaryKey,
		AutoIncrement: f.AutoIncrement,
		Unique:        f.Unique,
		NotNull:       f.NotNull,
		MaxLength:     f.MaxLength,
		References:    f.References,
		AutoNow:       f.AutoNow,
		AutoNowAdd:    f.AutoNowAdd,
	}
	if f.Column != "" && f.Column != f.Name {
		fd.Column = f.Column
	}
	if f.HasDefault {
		fd.Default = f.Default
	}
	if f.Type == ForeignKey && f.OnDelete != "CASCADE" {
		fd.OnDelete = f.OnDelete
	}
	return fd
}

// Encode writes models as a YAML schema document.
func Encode(w io.Writer, models []*Model) error {
	doc := document{Models: make([]modelDoc, 0, len(models))}
	for _, m := range models {
		md := modelDoc{Name: m.Name, Fields: make([]fieldDoc, 0, len(m.Fields))}
		if m.Table != TableName(m.Name) {
			md.Table = m.Table
		}
		if m.Alias != "" && m.Alias != DefaultAlias {
			md.Alias = m.Alias
		}
		for _, f := range m.Fields {
			md.Fields = append(md.Fields, docFromField(f))
		}
		doc.Models = append(doc.Models, md)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// InferField maps a live column back to a field declaration.
func InferField(name, sqlType string, notNull, primaryKey bool, defaultValue *string) Field {
	f := Field{Name: name, NotNull: notNull && !primaryKey, PrimaryKey: primaryKey}

	upper := strings.ToUpper(strings.TrimSpace(sqlType))
	switch {
	case strings.HasPrefix(upper, "VARCHAR"), strings.HasPrefix(upper, "CHAR"):
		f.Type = Char
		f.MaxLength = 255
		if lp, rp := strings.Index(upper, "("), strings.Index(upper, ")"); lp >= 0 && rp > lp {
			if n, err := strconv.Atoi(strings.TrimSpace(upper[lp+1 : rp])); err == nil {
				f.MaxLength = n
			}
		}
	case strings.Contains(upper, "INT"):
		f.Type = Integer
		f.AutoIncrement = primaryKey
	case upper == "REAL", strings.Contains(upper, "FLOA"), strings.Contains(upper, "DOUB"):
		f.Type = Float
	case strings.Contains(upper, "TIMESTAMP"), strings.Contains(upper, "DATE"):
		f.Type = DateTime
	default:
		f.Type = Text
	}

	if defaultValue != nil && !strings.EqualFold(*defaultValue, "NULL") {
		f.Default = unquoteDefault(*defaultValue)
		f.HasDefault = true
	}
	return f
}

func unquoteDefault(s string) any {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
