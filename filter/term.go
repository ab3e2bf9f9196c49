package filter

import (
	"strconv"
	"strings"
	"unicode"
)

// Relation is the comparison operator between a keyword and its value.
type Relation int

const (
	// RelationNone marks a bare keyword: no relation and no value.
	RelationNone Relation = iota
	RelationEqual
	RelationApprox
	RelationLess
	RelationGreater
	RelationLessOrEqual
	RelationGreaterOrEqual
)

// relationGlyphs is ordered longest glyph first so matching prefers
// "<=" over "<".
var relationGlyphs = []struct {
	glyph    string
	relation Relation
}{
	{"<=", RelationLessOrEqual},
	{">=", RelationGreaterOrEqual},
	{"=", RelationEqual},
	{"~", RelationApprox},
	{"<", RelationLess},
	{">", RelationGreater},
}

const glyphChars = "=~<>"

// String returns the glyph used in the filter language, or "" for
// RelationNone.
func (r Relation) String() string {
	for _, g := range relationGlyphs {
		if g.relation == r {
			return g.glyph
		}
	}
	return ""
}

// Term is one keyword/relation/value unit of a filter string.
type Term struct {
	Keyword  string
	Relation Relation
	Value    string
}

// NewTerm is shorthand for a relational term.
func NewTerm(keyword string, rel Relation, value string) Term {
	return Term{Keyword: keyword, Relation: rel, Value: value}
}

// IsBare reports whether the term has no relation, as in tag-presence
// predicates or free-text words.
func (t Term) IsBare() bool {
	return t.Relation == RelationNone || t.Relation.String() == ""
}

// unset reports whether the term carries the empty "unset" value. Unset terms
// are never stored in a Filter and never serialized.
func (t Term) unset() bool {
	return !t.IsBare() && t.Value == ""
}

// Int coerces the value to an integer.
func (t Term) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(t.Value))
	if err != nil {
		return 0, false
	}
	return n, true
}

// String serializes the term. The keyword and the value are quoted when
// they contain whitespace, a relation glyph or a quote. Unset terms
// serialize to "".
func (t Term) String() string {
	if t.Keyword == "" || t.unset() {
		return ""
	}
	keyword := quoteIfNeeded(t.Keyword)
	if t.IsBare() {
		return keyword
	}
	return keyword + t.Relation.String() + quoteIfNeeded(t.Value)
}

// ParseTerm decodes a single keyword<relation>value fragment.
//
// Parsing is total: a fragment that does not fit the grammar becomes a bare
// term whose keyword is the whole fragment, so hand-typed input is never
// dropped.
func ParseTerm(fragment string) Term {
	keyword, rest, ok := splitKeyword(fragment)
	if !ok || keyword == "" {
		return Term{Keyword: fragment}
	}
	if rest == "" {
		return Term{Keyword: keyword}
	}

	rel, n := matchRelation(rest)
	if rel == RelationNone {
		return Term{Keyword: fragment}
	}
	return Term{Keyword: keyword, Relation: rel, Value: unquote(rest[n:])}
}

// splitKeyword separates the keyword from the remainder starting at the
// relation glyph. A keyword may itself be a quoted span.
func splitKeyword(fragment string) (string, string, bool) {
	if strings.HasPrefix(fragment, `"`) {
		if end := closingQuote(fragment, 1); end > 0 {
			return unescape(fragment[1:end]), fragment[end+1:], true
		}
	}

	i := strings.IndexAny(fragment, glyphChars)
	if i < 0 {
		return fragment, "", true
	}
	return fragment[:i], fragment[i:], true
}

func matchRelation(s string) (Relation, int) {
	for _, g := range relationGlyphs {
		if strings.HasPrefix(s, g.glyph) {
			return g.relation, len(g.glyph)
		}
	}
	return RelationNone, 0
}

// closingQuote returns the index of the first unescaped '"' at or after
// from, or -1.
func closingQuote(s string, from int) int {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && closingQuote(v, 1) == len(v)-1 {
		return unescape(v[1 : len(v)-1])
	}
	return v
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func needsQuoting(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || r == '"' || strings.ContainsRune(glyphChars, r) {
			return true
		}
	}
	return false
}

func quoteIfNeeded(s string) string {
	if !needsQuoting(s) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
