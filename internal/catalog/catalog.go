package catalog

// Catalog is the full set of resolved schema metadata: tables, secondary
// indexes, and enabled extensions. The database facade holds one
// "published" Catalog and mutates a Clone() of it while a DDL statement is
// staged, publishing the clone only once the owning transaction commits.
type Catalog struct {
	tables     map[string]*Schema
	indexes    map[string]*Index
	extensions map[string]bool
	version    uint64
}

// NewCatalog returns an empty catalog at version 0.
func NewCatalog() *Catalog {
	return &Catalog{
		tables:     make(map[string]*Schema),
		indexes:    make(map[string]*Index),
		extensions: make(map[string]bool),
	}
}

// Clone returns a shallow copy-on-write snapshot: the maps are copied so
// mutations to the clone never affect c, but Schema/Index values are shared
// until replaced wholesale (they are treated as immutable once published).
func (c *Catalog) Clone() *Catalog {
	clone := &Catalog{
		tables:     make(map[string]*Schema, len(c.tables)),
		indexes:    make(map[string]*Index, len(c.indexes)),
		extensions: make(map[string]bool, len(c.extensions)),
		version:    c.version,
	}
	for k, v := range c.tables {
		clone.tables[k] = v
	}
	for k, v := range c.indexes {
		clone.indexes[k] = v
	}
	for k, v := range c.extensions {
		clone.extensions[k] = v
	}
	return clone
}

// Version returns the catalog's schema version, bumped by every DDL
// statement; the plan cache uses this to invalidate cached plans.
func (c *Catalog) Version() uint64 { return c.version }

// BumpVersion increments the schema version. Called once per committed DDL
// statement.
func (c *Catalog) BumpVersion() { c.version++ }

// Table looks up a table schema by name.
func (c *Catalog) Table(name string) (*Schema, bool) {
	s, ok := c.tables[name]
	return s, ok
}

// PutTable registers or replaces a table schema.
func (c *Catalog) PutTable(s *Schema) { c.tables[s.Name] = s }

// DropTable removes a table schema.
func (c *Catalog) DropTable(name string) { delete(c.tables, name) }

// TableNames returns every registered table name, unordered.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for n := range c.tables {
		names = append(names, n)
	}
	return names
}

// Index looks up a secondary index by name.
func (c *Catalog) Index(name string) (*Index, bool) {
	ix, ok := c.indexes[name]
	return ix, ok
}

// PutIndex registers or replaces a secondary index.
func (c *Catalog) PutIndex(ix *Index) { c.indexes[ix.Name] = ix }

// DropIndex removes a secondary index by name.
func (c *Catalog) DropIndex(name string) { delete(c.indexes, name) }

// IndexesForTable returns every index defined on table, unordered.
func (c *Catalog) IndexesForTable(table string) []*Index {
	var out []*Index
	for _, ix := range c.indexes {
		if ix.Table == table {
			out = append(out, ix)
		}
	}
	return out
}

// IndexForColumn returns the first index found on table.column, if any.
func (c *Catalog) IndexForColumn(table, column string) (*Index, bool) {
	for _, ix := range c.indexes {
		if ix.Table == table && ix.Column == column {
			return ix, true
		}
	}
	return nil, false
}

// HasExtension reports whether name has been enabled via CREATE EXTENSION.
func (c *Catalog) HasExtension(name string) bool { return c.extensions[name] }

// PutExtension marks name as enabled.
func (c *Catalog) PutExtension(name string) { c.extensions[name] = true }

// DropExtension marks name as disabled.
func (c *Catalog) DropExtension(name string) { delete(c.extensions, name) }

// ExtensionNames returns every enabled extension name, unordered.
func (c *Catalog) ExtensionNames() []string {
	names := make([]string, 0, len(c.extensions))
	for n := range c.extensions {
		names = append(names, n)
	}
	return names
}
