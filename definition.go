package schema

import (
	"fmt"
	"strings"
)

// AlterMode selects the structural keyword prefixed to column definitions
// while altering an existing table.
type AlterMode int

const (
	AlterNone AlterMode = iota
	AlterAdd
	AlterModify
	AlterDrop
)

func (m AlterMode) String() string {
	switch m {
	case AlterAdd:
		return "ADD"
	case AlterModify:
		return "MODIFY"
	case AlterDrop:
		return "DROP"
	default:
		return ""
	}
}

// Keywords maps each AlterMode to the prefix a dialect emits for it.
type Keywords map[AlterMode]string

// DefaultKeywords are the MySQL-style prefixes. Dialects override entries
// they spell differently.
var DefaultKeywords = Keywords{
	AlterAdd:    "ADD COLUMN",
	AlterModify: "MODIFY COLUMN",
	AlterDrop:   "DROP COLUMN",
}

// continuationKeywords begin a fragment that modifies the previous column
// rather than declaring a new one. Longest first so NOT NULL wins over NULL.
var continuationKeywords = []string{
	"NOT NULL",
	"NULL",
	"DEFAULT",
	"COMMENT",
	"UNSIGNED",
	"UNIQUE",
	"AFTER",
}

type fragmentKind int

const (
	member fragmentKind = iota
	continuation
	attached
)

// classify decides how a fragment joins the one before it. Attached
// fragments carry their own leading comma; continuations are separated by a
// space; everything else starts a new comma-separated member.
func classify(frag string) fragmentKind {
	if strings.HasPrefix(frag, ",") {
		return attached
	}
	for _, kw := range continuationKeywords {
		if !strings.HasPrefix(frag, kw) {
			continue
		}
		rest := frag[len(kw):]
		if rest == "" || rest[0] == ' ' || rest[0] == '(' {
			return continuation
		}
	}
	return member
}

// Definition is the ordered fragment list a TableBuilder accumulates. It
// lives for one Create or Alter call.
type Definition struct {
	fragments []string
	columns   []string
	mode      AlterMode
	keywords  Keywords
	collation string
}

// NewDefinition returns an empty definition. Nil keywords means
// DefaultKeywords.
func NewDefinition(collation string, keywords Keywords) *Definition {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	return &Definition{collation: collation, keywords: keywords}
}

// Column appends a column declaration, prefixed by the active AlterMode's
// keyword. In drop mode the type is omitted.
func (d *Definition) Column(name, quoted, decl string) {
	d.columns = append(d.columns, name)
	prefix := d.keywords[d.mode]
	switch {
	case d.mode == AlterDrop:
		d.fragments = append(d.fragments, prefix+" "+quoted)
	case prefix != "":
		d.fragments = append(d.fragments, prefix+" "+quoted+" "+decl)
	default:
		d.fragments = append(d.fragments, quoted+" "+decl)
	}
}

// Named appends a fragment that targets a column without going through the
// AlterMode prefix.
func (d *Definition) Named(name, frag string) {
	d.columns = append(d.columns, name)
	d.fragments = append(d.fragments, frag)
}

// Append adds a raw fragment.
func (d *Definition) Append(frag string) {
	d.fragments = append(d.fragments, frag)
}

// LastColumn is the most recently declared column name, or "".
func (d *Definition) LastColumn() string {
	if len(d.columns) == 0 {
		return ""
	}
	return d.columns[len(d.columns)-1]
}

func (d *Definition) Columns() []string { return d.columns }

func (d *Definition) Mode() AlterMode { return d.mode }

func (d *Definition) SetMode(m AlterMode) { d.mode = m }

func (d *Definition) Collation() string { return d.collation }

func (d *Definition) SetCollation(c string) { d.collation = c }

func (d *Definition) Fragments() []string {
	out := make([]string, len(d.fragments))
	copy(out, d.fragments)
	return out
}

// Members groups fragments into top-level comma-separated members: each
// member is a declaring fragment followed by its continuations and attached
// clauses.
func (d *Definition) Members() [][]string {
	var members [][]string
	for _, frag := range d.fragments {
		if len(members) == 0 || classify(frag) == member {
			members = append(members, []string{frag})
			continue
		}
		last := len(members) - 1
		members[last] = append(members[last], frag)
	}
	return members
}

// SQL renders the fragment list as one clause list. A comma is placed
// between fragments unless the next one continues the previous column.
func (d *Definition) SQL() string {
	var b strings.Builder
	for i, frag := range d.fragments {
		if i == 0 {
			b.WriteString(strings.TrimPrefix(frag, ", "))
			continue
		}
		switch classify(frag) {
		case attached:
			b.WriteString(frag)
		case continuation:
			b.WriteString(" " + frag)
		default:
			b.WriteString(", " + frag)
		}
	}
	return b.String()
}

// Token is a default value emitted without quotes.
type Token string

const (
	Null             Token = "NULL"
	CurrentTimestamp Token = "CURRENT_TIMESTAMP"
)

// DefaultClause renders a DEFAULT fragment. Nil and the tokens are emitted
// bare; everything else is quoted as a string literal.
func DefaultClause(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "DEFAULT " + string(Null)
	case Token:
		return "DEFAULT " + string(t)
	case bool:
		if t {
			return "DEFAULT '1'"
		}
		return "DEFAULT '0'"
	default:
		return "DEFAULT " + Literal(fmt.Sprint(t))
	}
}

// Literal single-quotes s for inclusion in DDL.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// LiteralList renders values as a comma-separated list of literals.
func LiteralList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Literal(v)
	}
	return strings.Join(quoted, ", ")
}
