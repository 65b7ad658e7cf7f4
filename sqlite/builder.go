package sqlite

import (
	"fmt"
	"strings"

	"github.com/egtann/schema"
)

// Builder renders SQLite column clauses. Unsigned, After and both comment
// forms have no SQLite equivalent and emit nothing. Set is plain TEXT and its
// members are not checked. UNIQUE is written inline on the column since table
// constraints must follow every column. An added column cannot be UNIQUE, so
// it gets a unique index instead.
type Builder struct {
	def *schema.Definition

	// uniques are added columns that need a unique index.
	uniques []string

	// unsupported names the first requested operation SQLite cannot
	// perform through ALTER TABLE.
	unsupported string
}

var _ schema.TableBuilder = (*Builder)(nil)

func NewBuilder(collation string) *Builder {
	return &Builder{def: schema.NewDefinition(collation, nil)}
}

func (b *Builder) column(name, decl string) schema.TableBuilder {
	b.def.Column(name, quote(name), decl)
	return b
}

func (b *Builder) collated(decl string) string {
	if c := b.def.Collation(); c != "" {
		return decl + " COLLATE " + c
	}
	return decl
}

func (b *Builder) unsupport(op string) {
	if b.unsupported == "" {
		b.unsupported = op
	}
}

func (b *Builder) Increments(col string) schema.TableBuilder {
	return b.column(col, "INTEGER PRIMARY KEY AUTOINCREMENT")
}

func (b *Builder) BigIncrements(col string) schema.TableBuilder {
	return b.column(col, "INTEGER PRIMARY KEY AUTOINCREMENT")
}

func (b *Builder) Integer(col string) schema.TableBuilder {
	return b.column(col, "INTEGER")
}

func (b *Builder) BigInteger(col string) schema.TableBuilder {
	return b.column(col, "BIGINT")
}

func (b *Builder) Decimal(col string, precision, scale int) schema.TableBuilder {
	return b.column(col, fmt.Sprintf("NUMERIC(%d, %d)", precision, scale))
}

func (b *Builder) Boolean(col string) schema.TableBuilder {
	return b.column(col, "BOOLEAN")
}

func (b *Builder) Date(col string) schema.TableBuilder {
	return b.column(col, "DATE")
}

func (b *Builder) Time(col string) schema.TableBuilder {
	return b.column(col, "TIME")
}

func (b *Builder) DateTime(col string) schema.TableBuilder {
	return b.column(col, "DATETIME")
}

func (b *Builder) Timestamp(col string) schema.TableBuilder {
	return b.column(col, "TIMESTAMP")
}

func (b *Builder) String(col string, length int) schema.TableBuilder {
	return b.column(col, b.collated(fmt.Sprintf("VARCHAR(%d)", length)))
}

func (b *Builder) Text(col string) schema.TableBuilder {
	return b.column(col, b.collated("TEXT"))
}

func (b *Builder) LongText(col string) schema.TableBuilder {
	return b.column(col, b.collated("TEXT"))
}

func (b *Builder) UUID(col string) schema.TableBuilder {
	return b.column(col, "CHAR(36)")
}

func (b *Builder) Blob(col string) schema.TableBuilder {
	return b.column(col, "BLOB")
}

func (b *Builder) Enum(col string, allowed ...string) schema.TableBuilder {
	return b.column(col, fmt.Sprintf("TEXT CHECK (%s IN (%s))", quote(col),
		schema.LiteralList(allowed)))
}

func (b *Builder) Set(col string, allowed ...string) schema.TableBuilder {
	return b.column(col, "TEXT")
}

func (b *Builder) JSON(col string) schema.TableBuilder {
	return b.column(col, "TEXT")
}

func (b *Builder) Bit(col string, length int) schema.TableBuilder {
	return b.column(col, "INTEGER")
}

func (b *Builder) Geometry(col string) schema.TableBuilder {
	return b.column(col, "BLOB")
}

func (b *Builder) Point(col string) schema.TableBuilder {
	return b.column(col, "BLOB")
}

func (b *Builder) LineString(col string) schema.TableBuilder {
	return b.column(col, "BLOB")
}

func (b *Builder) Polygon(col string) schema.TableBuilder {
	return b.column(col, "BLOB")
}

func (b *Builder) Nullable() schema.TableBuilder {
	b.def.Append("NULL")
	return b
}

func (b *Builder) Required() schema.TableBuilder {
	b.def.Append("NOT NULL")
	return b
}

func (b *Builder) Unsigned() schema.TableBuilder { return b }

func (b *Builder) Unique() schema.TableBuilder {
	col := b.def.LastColumn()
	switch {
	case col == "":
	case b.def.Mode() == schema.AlterAdd:
		b.uniques = append(b.uniques, col)
	default:
		b.def.Append("UNIQUE")
	}
	return b
}

func (b *Builder) Default(v interface{}) schema.TableBuilder {
	b.def.Append(schema.DefaultClause(v))
	return b
}

func (b *Builder) Comment(string) schema.TableBuilder { return b }

func (b *Builder) After(string) schema.TableBuilder { return b }

func (b *Builder) AddColumns() schema.TableBuilder {
	b.def.SetMode(schema.AlterAdd)
	return b
}

func (b *Builder) ModifyColumns() schema.TableBuilder {
	b.unsupport("modify column")
	b.def.SetMode(schema.AlterModify)
	return b
}

func (b *Builder) DropColumns() schema.TableBuilder {
	b.def.SetMode(schema.AlterDrop)
	return b
}

// DropColumn drops col. SQLite has no IF EXISTS form.
func (b *Builder) DropColumn(col string) schema.TableBuilder {
	b.def.Named(col, "DROP COLUMN "+quote(col))
	return b
}

// Foreign declares a table constraint, so call it after every column. SQLite
// cannot add constraints to an existing table.
func (b *Builder) Foreign(fk schema.ForeignKey) schema.TableBuilder {
	if b.def.Mode() != schema.AlterNone {
		b.unsupport("add foreign key")
	}
	var s strings.Builder
	fmt.Fprintf(&s, "CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		quote(fk.Name), quote(fk.Column), quote(fk.On),
		quote(fk.References))
	if fk.CascadeOnDelete {
		s.WriteString(" ON DELETE CASCADE")
	}
	b.def.Append(s.String())
	return b
}

func (b *Builder) Collation(c string) schema.TableBuilder {
	b.def.SetCollation(c)
	return b
}

func (b *Builder) TableComment(string) schema.TableBuilder { return b }

func (b *Builder) Definition() *schema.Definition { return b.def }

func (b *Builder) SQL() string { return b.def.SQL() }

// AlterSQL returns one ALTER TABLE statement per member, since SQLite
// accepts a single action per statement, followed by the unique indexes of
// added columns.
func (b *Builder) AlterSQL(table string) []string {
	members := b.def.Members()
	stmts := make([]string, 0, len(members)+len(b.uniques))
	for _, m := range members {
		stmts = append(stmts, "ALTER TABLE "+quote(table)+" "+
			strings.Join(m, " "))
	}
	for _, col := range b.uniques {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			quote(table+"_"+col+"_unique"), quote(table), quote(col)))
	}
	return stmts
}
