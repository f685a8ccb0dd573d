package domain

// Catalog is the live schema of a database.
type Catalog struct {
	Tables []Table
}

// Table finds a table by name.
func (c *Catalog) Table(name string) (*Table, bool) {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i], true
		}
	}
	return nil, false
}

// Table is a live table.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// HasColumn reports whether the table has a column named name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ForeignKey returns the reference declared on column, if any.
func (t *Table) ForeignKey(column string) (ForeignKey, bool) {
	for _, fk := range t.ForeignKeys {
		if fk.Column == column {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// Column is a live column as reported by the engine.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
	Default    *string
}

// ForeignKey is a single-column reference.
type ForeignKey struct {
	Column   string
	Table    string
	To       string
	OnDelete string
}
