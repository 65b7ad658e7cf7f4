package postgres

import (
	"fmt"
	"strings"

	"github.com/egtann/schema"
)

var keywords = schema.Keywords{
	schema.AlterAdd:    "ADD COLUMN",
	schema.AlterModify: "ALTER COLUMN",
	schema.AlterDrop:   "DROP COLUMN",
}

type comment struct {
	column string
	text   string
}

// Builder renders PostgreSQL column and constraint clauses. Unsigned and
// After have no PostgreSQL equivalent and emit nothing. Comments are issued
// as separate COMMENT ON statements once the table exists.
type Builder struct {
	def          *schema.Definition
	comments     []comment
	tableComment string
}

var _ schema.TableBuilder = (*Builder)(nil)

func NewBuilder(collation string) *Builder {
	return &Builder{def: schema.NewDefinition(collation, keywords)}
}

func (b *Builder) column(name, decl string) schema.TableBuilder {
	if b.def.Mode() == schema.AlterModify {
		decl = "TYPE " + decl
	}
	b.def.Column(name, quote(name), decl)
	return b
}

func (b *Builder) collated(decl string) string {
	if c := b.def.Collation(); c != "" {
		return decl + " COLLATE " + quote(c)
	}
	return decl
}

// alterColumn reports whether modifiers must be spelled as separate ALTER
// COLUMN actions rather than inline constraints.
func (b *Builder) alterColumn() bool {
	return b.def.Mode() == schema.AlterModify
}

func (b *Builder) Increments(col string) schema.TableBuilder {
	return b.column(col, "SERIAL PRIMARY KEY")
}

func (b *Builder) BigIncrements(col string) schema.TableBuilder {
	return b.column(col, "BIGSERIAL PRIMARY KEY")
}

func (b *Builder) Integer(col string) schema.TableBuilder {
	return b.column(col, "INTEGER")
}

func (b *Builder) BigInteger(col string) schema.TableBuilder {
	return b.column(col, "BIGINT")
}

func (b *Builder) Decimal(col string, precision, scale int) schema.TableBuilder {
	return b.column(col, fmt.Sprintf("DECIMAL(%d, %d)", precision, scale))
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
	return b.column(col, "TIMESTAMP")
}

func (b *Builder) Timestamp(col string) schema.TableBuilder {
	return b.column(col, "TIMESTAMP WITH TIME ZONE")
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
	return b.column(col, "UUID")
}

func (b *Builder) Blob(col string) schema.TableBuilder {
	return b.column(col, "BYTEA")
}

func (b *Builder) Enum(col string, allowed ...string) schema.TableBuilder {
	return b.column(col, fmt.Sprintf("VARCHAR(255) CHECK (%s IN (%s))",
		quote(col), schema.LiteralList(allowed)))
}

// Set stores the members as an array, each of which must be one of allowed.
func (b *Builder) Set(col string, allowed ...string) schema.TableBuilder {
	if len(allowed) == 0 {
		return b.column(col, "TEXT[]")
	}
	return b.column(col, fmt.Sprintf("TEXT[] CHECK (%s <@ ARRAY[%s]::TEXT[])",
		quote(col), schema.LiteralList(allowed)))
}

func (b *Builder) JSON(col string) schema.TableBuilder {
	return b.column(col, "JSONB")
}

func (b *Builder) Bit(col string, length int) schema.TableBuilder {
	return b.column(col, fmt.Sprintf("BIT(%d)", length))
}

// Spatial types require the PostGIS extension.

func (b *Builder) Geometry(col string) schema.TableBuilder {
	return b.column(col, "GEOMETRY")
}

func (b *Builder) Point(col string) schema.TableBuilder {
	return b.column(col, "GEOMETRY(POINT)")
}

func (b *Builder) LineString(col string) schema.TableBuilder {
	return b.column(col, "GEOMETRY(LINESTRING)")
}

func (b *Builder) Polygon(col string) schema.TableBuilder {
	return b.column(col, "GEOMETRY(POLYGON)")
}

func (b *Builder) Nullable() schema.TableBuilder {
	if b.alterColumn() {
		b.def.Append(", ALTER COLUMN " + quote(b.def.LastColumn()) +
			" DROP NOT NULL")
		return b
	}
	b.def.Append("NULL")
	return b
}

func (b *Builder) Required() schema.TableBuilder {
	if b.alterColumn() {
		b.def.Append(", ALTER COLUMN " + quote(b.def.LastColumn()) +
			" SET NOT NULL")
		return b
	}
	b.def.Append("NOT NULL")
	return b
}

func (b *Builder) Unsigned() schema.TableBuilder { return b }

// Unique is ignored until a column has been declared.
func (b *Builder) Unique() schema.TableBuilder {
	if b.def.LastColumn() == "" {
		return b
	}
	col := quote(b.def.LastColumn())
	if b.def.Mode() == schema.AlterNone {
		b.def.Append(", UNIQUE (" + col + ")")
	} else {
		b.def.Append(", ADD UNIQUE (" + col + ")")
	}
	return b
}

func (b *Builder) Default(v interface{}) schema.TableBuilder {
	if b.alterColumn() {
		b.def.Append(", ALTER COLUMN " + quote(b.def.LastColumn()) +
			" SET " + schema.DefaultClause(v))
		return b
	}
	b.def.Append(schema.DefaultClause(v))
	return b
}

func (b *Builder) Comment(text string) schema.TableBuilder {
	b.comments = append(b.comments, comment{
		column: b.def.LastColumn(),
		text:   text,
	})
	return b
}

func (b *Builder) After(string) schema.TableBuilder { return b }

func (b *Builder) AddColumns() schema.TableBuilder {
	b.def.SetMode(schema.AlterAdd)
	return b
}

func (b *Builder) ModifyColumns() schema.TableBuilder {
	b.def.SetMode(schema.AlterModify)
	return b
}

func (b *Builder) DropColumns() schema.TableBuilder {
	b.def.SetMode(schema.AlterDrop)
	return b
}

func (b *Builder) DropColumn(col string) schema.TableBuilder {
	b.def.Named(col, "DROP COLUMN IF EXISTS "+quote(col))
	return b
}

func (b *Builder) Foreign(fk schema.ForeignKey) schema.TableBuilder {
	var s strings.Builder
	if b.def.Mode() != schema.AlterNone {
		s.WriteString("ADD ")
	}
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

func (b *Builder) TableComment(text string) schema.TableBuilder {
	b.tableComment = text
	return b
}

func (b *Builder) Definition() *schema.Definition { return b.def }

func (b *Builder) SQL() string { return b.def.SQL() }

// CommentSQL returns the COMMENT ON statements to run after the table
// statement succeeds.
func (b *Builder) CommentSQL(table string) []string {
	var stmts []string
	if b.tableComment != "" {
		stmts = append(stmts, fmt.Sprintf("COMMENT ON TABLE %s IS %s",
			quote(table), schema.Literal(b.tableComment)))
	}
	for _, c := range b.comments {
		stmts = append(stmts, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
			quote(table), quote(c.column), schema.Literal(c.text)))
	}
	return stmts
}
