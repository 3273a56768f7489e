package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

// Storage key prefixes for catalog metadata persisted alongside row data in
// the same log. These keys are invisible to SQL.
const (
	SchemaPrefix    = "__schema__:"
	IndexPrefix     = "__index__:"
	ExtensionPrefix = "__extension__:"
)

// SchemaKey returns the storage key a table's schema entry is written under.
func SchemaKey(table string) []byte { return []byte(SchemaPrefix + table) }

// IndexKey returns the storage key an index definition is written under.
func IndexKey(name string) []byte { return []byte(IndexPrefix + name) }

// ExtensionKey returns the storage key an extension marker is written under.
func ExtensionKey(name string) []byte { return []byte(ExtensionPrefix + name) }

// SerializeSchema encodes a Schema as
// "name:TYPE:constraints|name:TYPE:constraints|...". The type token embeds
// the declared length/dimension (e.g. "TEXT(64)", "VECTOR(128)") so the
// column layout can be recomputed after a reload.
func SerializeSchema(s *Schema) []byte {
	parts := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		var constraints []string
		if c.PrimaryKey {
			constraints = append(constraints, "PRIMARY_KEY")
		}
		if c.NotNull {
			constraints = append(constraints, "NOT_NULL")
		}
		if c.Unique {
			constraints = append(constraints, "UNIQUE")
		}
		parts = append(parts, fmt.Sprintf("%s:%s:%s", c.Name, typeToken(c.Type), strings.Join(constraints, ",")))
	}
	return []byte(strings.Join(parts, "|"))
}

func typeToken(t sqlast.ColumnType) string {
	switch t.Kind {
	case sqlast.TypeInteger:
		return "INTEGER"
	case sqlast.TypeReal:
		return "REAL"
	case sqlast.TypeText:
		return fmt.Sprintf("TEXT(%d)", t.Len)
	case sqlast.TypeBlob:
		return fmt.Sprintf("BLOB(%d)", t.Len)
	case sqlast.TypeVector:
		return fmt.Sprintf("VECTOR(%d)", t.Dim)
	default:
		return "TEXT(0)"
	}
}

// DeserializeSchema reverses SerializeSchema. name is supplied by the
// caller: the table name is embedded in the storage key, not the payload.
func DeserializeSchema(name string, data []byte) (*Schema, error) {
	s := &Schema{Name: name}
	for _, part := range strings.Split(string(data), "|") {
		if part == "" {
			continue
		}
		components := strings.SplitN(part, ":", 3)
		if len(components) < 2 {
			return nil, fmt.Errorf("tegdb: malformed schema entry %q", part)
		}
		col := Column{Name: components[0]}
		t, err := parseTypeToken(components[1])
		if err != nil {
			return nil, err
		}
		col.Type = t
		if len(components) == 3 && components[2] != "" {
			for _, c := range strings.Split(components[2], ",") {
				switch c {
				case "PRIMARY_KEY":
					col.PrimaryKey = true
					s.PrimaryKey = col.Name
				case "NOT_NULL":
					col.NotNull = true
				case "UNIQUE":
					col.Unique = true
				}
			}
		}
		s.Columns = append(s.Columns, col)
	}
	if err := ComputeLayout(s); err != nil {
		return nil, err
	}
	return s, nil
}

func parseTypeToken(tok string) (sqlast.ColumnType, error) {
	open := strings.IndexByte(tok, '(')
	if open < 0 {
		switch tok {
		case "INTEGER":
			return sqlast.ColumnType{Kind: sqlast.TypeInteger}, nil
		case "REAL":
			return sqlast.ColumnType{Kind: sqlast.TypeReal}, nil
		default:
			return sqlast.ColumnType{}, fmt.Errorf("tegdb: unknown serialized type %q", tok)
		}
	}
	base := tok[:open]
	arg := strings.TrimSuffix(tok[open+1:], ")")
	n, err := strconv.Atoi(arg)
	if err != nil {
		return sqlast.ColumnType{}, fmt.Errorf("tegdb: malformed type argument in %q: %w", tok, err)
	}
	switch base {
	case "TEXT":
		return sqlast.ColumnType{Kind: sqlast.TypeText, Len: n}, nil
	case "BLOB":
		return sqlast.ColumnType{Kind: sqlast.TypeBlob, Len: n}, nil
	case "VECTOR":
		return sqlast.ColumnType{Kind: sqlast.TypeVector, Dim: n}, nil
	default:
		return sqlast.ColumnType{}, fmt.Errorf("tegdb: unknown serialized type %q", tok)
	}
}

// SerializeIndex encodes an index definition as "table:column:KIND".
func SerializeIndex(ix *Index) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", ix.Table, ix.Column, ix.Kind))
}

// DeserializeIndex reverses SerializeIndex. name is the index name embedded
// in the storage key.
func DeserializeIndex(name string, data []byte) (*Index, error) {
	parts := strings.SplitN(string(data), ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("tegdb: malformed index entry %q", string(data))
	}
	kind, err := parseIndexKind(parts[2])
	if err != nil {
		return nil, err
	}
	return &Index{Name: name, Table: parts[0], Column: parts[1], Kind: kind}, nil
}

func parseIndexKind(s string) (sqlast.IndexKind, error) {
	switch s {
	case "BTREE", "":
		return sqlast.IndexBTree, nil
	case "HNSW":
		return sqlast.IndexHNSW, nil
	case "IVF":
		return sqlast.IndexIVF, nil
	case "LSH":
		return sqlast.IndexLSH, nil
	default:
		return 0, fmt.Errorf("tegdb: unknown index kind %q", s)
	}
}
