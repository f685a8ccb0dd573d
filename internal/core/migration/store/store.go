// Package store persists migration units as YAML files.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/baseorm/baseorm/internal/adapters/storage"
	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/migration/domain"
)

// Extension of unit files.
const Extension = ".yaml"

// Format is the unit format written by this version.
const Format = "v1"

// NameLayout is the timestamp prefix of generated names. Lexical order of
// names is chronological order.
const NameLayout = "20060102_150405"

var (
	supported   = version.MustConstraints(version.NewConstraint(">= 1, < 2"))
	nonWordRune = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

type unitDoc struct {
	Format     string    `yaml:"format"`
	Name       string    `yaml:"name"`
	Generated  time.Time `yaml:"generated"`
	Operations []opDoc   `yaml:"operations"`
}

// opDoc holds exactly one operation.
type opDoc struct {
	CreateTable *createTableDoc `yaml:"create_table,omitempty"`
	AddColumn   *addColumnDoc   `yaml:"add_column,omitempty"`
	DropTable   *dropTableDoc   `yaml:"drop_table,omitempty"`
}

type createTableDoc struct {
	Table   string             `yaml:"table"`
	Columns []domain.ColumnDef `yaml:"columns"`
}

type addColumnDoc struct {
	Table      string `yaml:"table"`
	Column     string `yaml:"column"`
	Definition string `yaml:"definition"`
}

type dropTableDoc struct {
	Table string `yaml:"table"`
}

// Store reads and writes units in a directory of a storage.
type Store struct {
	fs  storage.Storage
	dir string
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used for names and generation stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store for units under dir.
func New(fs storage.Storage, dir string, opts ...Option) *Store {
	s := &Store{fs: fs, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir is the unit directory.
func (s *Store) Dir() string { return s.dir }

// GenerateName builds `<timestamp>_<description>` for a new unit.
func (s *Store) GenerateName(description string) string {
	desc := strings.Trim(nonWordRune.ReplaceAllString(description, "_"), "_")
	if desc == "" {
		desc = "auto"
	}
	return s.now().Format(NameLayout) + "_" + desc
}

func (s *Store) path(name string) string {
	return path.Join(s.dir, name+Extension)
}

// List returns the unit names in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	files, err := s.fs.List(ctx, s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		if !strings.HasSuffix(f, Extension) || strings.HasPrefix(f, "_") || strings.HasPrefix(f, ".") {
			continue
		}
		names = append(names, strings.TrimSuffix(f, Extension))
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a unit named name is stored.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	return s.fs.Exists(ctx, s.path(name))
}

// Save writes m and returns the path it was written to.
func (s *Store) Save(ctx context.Context, m *domain.Migration) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m, s.now()); err != nil {
		return "", err
	}
	p := s.path(m.Name)
	if err := s.fs.Write(ctx, p, buf.Bytes()); err != nil {
		return "", errs.Wrap(errs.ErrMigration, "save", err)
	}
	return p, nil
}

// Load reads the unit named name.
func (s *Store) Load(ctx context.Context, name string) (*domain.Migration, error) {
	content, err := s.fs.Read(ctx, s.path(name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errs.New(errs.ErrMigration, "load", "migration %s has no unit file in %s", name, s.dir)
		}
		return nil, errs.Wrap(errs.ErrMigration, "load", err)
	}
	m, err := Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	if m.Name != name {
		return nil, errs.New(errs.ErrMigration, "load", "unit file %s declares name %q", s.path(name), m.Name)
	}
	return m, nil
}

// Encode writes m as a YAML unit.
func Encode(w io.Writer, m *domain.Migration, generated time.Time) error {
	doc := unitDoc{Format: Format, Name: m.Name, Generated: generated.UTC(), Operations: make([]opDoc, 0, len(m.Operations))}
	for _, op := range m.Operations {
		switch o := op.(type) {
		case *domain.CreateTable:
			doc.Operations = append(doc.Operations, opDoc{CreateTable: &createTableDoc{Table: o.Table, Columns: o.Columns}})
		case *domain.AddColumn:
			doc.Operations = append(doc.Operations, opDoc{AddColumn: &addColumnDoc{Table: o.Table, Column: o.Column, Definition: o.Definition}})
		case *domain.DropTable:
			doc.Operations = append(doc.Operations, opDoc{DropTable: &dropTableDoc{Table: o.Table}})
		default:
			return errs.New(errs.ErrMigration, "encode", "unsupported operation %T", op)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errs.Wrap(errs.ErrMigration, "encode", err)
	}
	return enc.Close()
}

// Decode reads a YAML unit.
func Decode(r io.Reader) (*domain.Migration, error) {
	var doc unitDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.ErrMigration, "decode", err)
	}

	v, err := version.NewVersion(doc.Format)
	if err != nil {
		return nil, errs.New(errs.ErrMigration, "decode", "invalid unit format %q", doc.Format)
	}
	if !supported.Check(v) {
		return nil, errs.New(errs.ErrMigration, "decode", "unit format %s is not supported (want %s)", doc.Format, supported)
	}
	if doc.Name == "" {
		return nil, errs.New(errs.ErrMigration, "decode", "unit without a name")
	}

	m := &domain.Migration{Name: doc.Name, Operations: make([]domain.Operation, 0, len(doc.Operations))}
	for i, od := range doc.Operations {
		op, err := od.operation()
		if err != nil {
			return nil, errs.Wrap(errs.ErrMigration, "decode", fmt.Errorf("%s: operation %d: %w", doc.Name, i+1, err))
		}
		m.Operations = append(m.Operations, op)
	}
	return m, nil
}

func (od opDoc) operation() (domain.Operation, error) {
	var ops []domain.Operation
	if od.CreateTable != nil {
		ops = append(ops, &domain.CreateTable{Table: od.CreateTable.Table, Columns: od.CreateTable.Columns})
	}
	if od.AddColumn != nil {
		ops = append(ops, &domain.AddColumn{Table: od.AddColumn.Table, Column: od.AddColumn.Column, Definition: od.AddColumn.Definition})
	}
	if od.DropTable != nil {
		ops = append(ops, &domain.DropTable{Table: od.DropTable.Table})
	}
	if len(ops) != 1 {
		return nil, fmt.Errorf("expected exactly one of create_table, add_column, drop_table; got %d", len(ops))
	}
	return ops[0], nil
}
