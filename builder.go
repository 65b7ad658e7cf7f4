package schema

// TableBuilder accumulates column and constraint operations for one Create
// or Alter call. Every method returns the builder so calls chain; modifiers
// apply to the column declared immediately before them.
//
// Each dialect provides its own implementation. Capabilities a dialect
// cannot express are documented on that implementation and emit nothing.
type TableBuilder interface {
	// Keys
	Increments(column string) TableBuilder
	BigIncrements(column string) TableBuilder

	// Numeric
	Integer(column string) TableBuilder
	BigInteger(column string) TableBuilder
	Decimal(column string, precision, scale int) TableBuilder
	Boolean(column string) TableBuilder

	// Temporal
	Date(column string) TableBuilder
	Time(column string) TableBuilder
	DateTime(column string) TableBuilder
	Timestamp(column string) TableBuilder

	// Text and binary
	String(column string, length int) TableBuilder
	Text(column string) TableBuilder
	LongText(column string) TableBuilder
	UUID(column string) TableBuilder
	Blob(column string) TableBuilder

	// Structured
	Enum(column string, allowed ...string) TableBuilder
	Set(column string, allowed ...string) TableBuilder
	JSON(column string) TableBuilder
	Bit(column string, length int) TableBuilder

	// Spatial
	Geometry(column string) TableBuilder
	Point(column string) TableBuilder
	LineString(column string) TableBuilder
	Polygon(column string) TableBuilder

	// Modifiers
	Nullable() TableBuilder
	Required() TableBuilder
	Unsigned() TableBuilder
	Unique() TableBuilder
	Default(value interface{}) TableBuilder
	Comment(text string) TableBuilder
	After(column string) TableBuilder

	// Alteration
	AddColumns() TableBuilder
	ModifyColumns() TableBuilder
	DropColumns() TableBuilder
	DropColumn(column string) TableBuilder

	Foreign(fk ForeignKey) TableBuilder

	// Collation changes the collation used by subsequent text columns.
	Collation(collation string) TableBuilder

	// TableComment sets the comment attached to the created table.
	TableComment(text string) TableBuilder

	Definition() *Definition
	SQL() string
}

// ForeignKey describes a named FOREIGN KEY ... REFERENCES constraint.
type ForeignKey struct {
	Name            string
	Column          string
	References      string
	On              string
	CascadeOnDelete bool
}

// BuildFunc is the callback handed to Create and Alter.
type BuildFunc func(TableBuilder)
