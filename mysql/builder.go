package mysql

import (
	"fmt"
	"strings"

	"github.com/egtann/schema"
)

// Builder renders MySQL column and constraint clauses.
type Builder struct {
	def          *schema.Definition
	tableComment string
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

func (b *Builder) Increments(col string) schema.TableBuilder {
	return b.column(col, "INT AUTO_INCREMENT PRIMARY KEY")
}

func (b *Builder) BigIncrements(col string) schema.TableBuilder {
	return b.column(col, "BIGINT AUTO_INCREMENT PRIMARY KEY")
}

func (b *Builder) Integer(col string) schema.TableBuilder {
	return b.column(col, "INT")
}

func (b *Builder) BigInteger(col string) schema.TableBuilder {
	return b.column(col, "BIGINT")
}

func (b *Builder) Decimal(col string, precision, scale int) schema.TableBuilder {
	return b.column(col, fmt.Sprintf("DECIMAL(%d, %d)", precision, scale))
}

func (b *Builder) Boolean(col string) schema.TableBuilder {
	return b.column(col, "TINYINT(1)")
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
	return b.column(col, b.collated("LONGTEXT"))
}

func (b *Builder) UUID(col string) schema.TableBuilder {
	return b.column(col, b.collated("CHAR(36)"))
}

func (b *Builder) Blob(col string) schema.TableBuilder {
	return b.column(col, "BLOB")
}

func (b *Builder) Enum(col string, allowed ...string) schema.TableBuilder {
	return b.column(col, b.collated("ENUM("+schema.LiteralList(allowed)+")"))
}

func (b *Builder) Set(col string, allowed ...string) schema.TableBuilder {
	return b.column(col, "SET("+schema.LiteralList(allowed)+")")
}

func (b *Builder) JSON(col string) schema.TableBuilder {
	return b.column(col, "JSON")
}

func (b *Builder) Bit(col string, length int) schema.TableBuilder {
	return b.column(col, fmt.Sprintf("BIT(%d)", length))
}

func (b *Builder) Geometry(col string) schema.TableBuilder {
	return b.column(col, "GEOMETRY")
}

func (b *Builder) Point(col string) schema.TableBuilder {
	return b.column(col, "POINT")
}

func (b *Builder) LineString(col string) schema.TableBuilder {
	return b.column(col, "LINESTRING")
}

func (b *Builder) Polygon(col string) schema.TableBuilder {
	return b.column(col, "POLYGON")
}

func (b *Builder) Nullable() schema.TableBuilder {
	b.def.Append("NULL")
	return b
}

func (b *Builder) Required() schema.TableBuilder {
	b.def.Append("NOT NULL")
	return b
}

func (b *Builder) Unsigned() schema.TableBuilder {
	b.def.Append("UNSIGNED")
	return b
}

// Unique adds a unique index named after the last declared column.
// Unique is ignored until a column has been declared.
func (b *Builder) Unique() schema.TableBuilder {
	if b.def.LastColumn() == "" {
		return b
	}
	col := quote(b.def.LastColumn())
	if b.def.Mode() == schema.AlterNone {
		b.def.Append(fmt.Sprintf(", UNIQUE %s (%s)", col, col))
	} else {
		b.def.Append(fmt.Sprintf(", ADD UNIQUE %s (%s)", col, col))
	}
	return b
}

func (b *Builder) Default(v interface{}) schema.TableBuilder {
	b.def.Append(schema.DefaultClause(v))
	return b
}

func (b *Builder) Comment(text string) schema.TableBuilder {
	b.def.Append("COMMENT " + schema.Literal(text))
	return b
}

func (b *Builder) After(col string) schema.TableBuilder {
	b.def.Append("AFTER " + quote(col))
	return b
}

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

// DropColumn drops col if it exists. IF EXISTS requires MariaDB.
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
