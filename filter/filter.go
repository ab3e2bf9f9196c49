// Package filter implements the console's filter query language: an ordered
// list of keyword/relation/value terms with a handful of reserved keywords
// that carry paging and sorting.
//
// A Filter is an immutable value. Every mutating method returns a new Filter
// and leaves the receiver untouched, so a committed filter can be shared with
// an open editor without aliasing.
package filter

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reserved keywords.
const (
	KeywordFirst       = "first"
	KeywordRows        = "rows"
	KeywordSort        = "sort"
	KeywordSortReverse = "sort-reverse"
)

// DefaultRows is the page size assumed by navigation when a filter does not
// carry rows.
const DefaultRows = 10

// RowsAll is the rows value that requests every matching entity.
const RowsAll = -1

type keywordInfo struct {
	// slot groups mutually exclusive singletons; a filter holds at most one
	// term per slot.
	slot string
}

var reservedKeywords = map[string]keywordInfo{
	KeywordFirst:       {slot: KeywordFirst},
	KeywordRows:        {slot: KeywordRows},
	KeywordSort:        {slot: KeywordSort},
	KeywordSortReverse: {slot: KeywordSort},
}

// IsReserved reports whether keyword is a singleton with special meaning.
func IsReserved(keyword string) bool {
	_, ok := reservedKeywords[keyword]
	return ok
}

// Filter is an ordered sequence of terms. The zero value is an empty filter.
type Filter struct {
	terms []Term
}

// New builds a filter by folding terms in order, with the same rules as
// Parse.
func New(terms ...Term) Filter {
	var f Filter
	for _, t := range terms {
		f.put(t)
	}
	return f
}

// Parse reads a filter string. It never fails: unparseable fragments are
// kept as bare terms.
func Parse(s string) Filter {
	var f Filter
	for _, token := range tokenize(s) {
		f.put(ParseTerm(token))
	}
	return f
}

// tokenize splits on whitespace outside quoted spans. A quote without a
// matching closing quote is an ordinary character.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			flush()
			i += size
		case r == '"':
			end := closingQuote(s, i+1)
			if end < 0 {
				cur.WriteByte('"')
				i++
				continue
			}
			cur.WriteString(s[i : end+1])
			i = end + 1
		default:
			cur.WriteString(s[i : i+size])
			i += size
		}
	}
	flush()
	return tokens
}

// String serializes the filter in term order.
func (f Filter) String() string {
	parts := make([]string, 0, len(f.terms))
	for _, t := range f.terms {
		if s := t.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// MarshalText encodes the filter as its filter string.
func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses a filter string into f.
func (f *Filter) UnmarshalText(text []byte) error {
	*f = Parse(string(text))
	return nil
}

// put folds t into f in place. Callers must own f.terms.
func (f *Filter) put(t Term) {
	if t.Keyword == "" {
		return
	}

	info, reserved := reservedKeywords[t.Keyword]
	if !reserved {
		if !t.unset() {
			f.terms = append(f.terms, t)
		}
		return
	}

	idx := f.slotIndex(info.slot)
	switch {
	case t.unset():
		if idx >= 0 {
			f.terms = append(f.terms[:idx], f.terms[idx+1:]...)
		}
	case idx < 0:
		f.terms = append(f.terms, t)
	default:
		f.terms[idx] = t
	}
}

func (f Filter) slotIndex(slot string) int {
	for i, t := range f.terms {
		if info, ok := reservedKeywords[t.Keyword]; ok && info.slot == slot {
			return i
		}
	}
	return -1
}

func (f Filter) index(keyword string) int {
	for i, t := range f.terms {
		if t.Keyword == keyword {
			return i
		}
	}
	return -1
}

// Copy returns an independent copy of f.
func (f Filter) Copy() Filter {
	if f.terms == nil {
		return Filter{}
	}
	terms := make([]Term, len(f.terms))
	copy(terms, f.terms)
	return Filter{terms: terms}
}

// Len returns the number of terms.
func (f Filter) Len() int {
	return len(f.terms)
}

// Terms returns a copy of the term sequence.
func (f Filter) Terms() []Term {
	return f.Copy().terms
}

// Has reports whether any term uses keyword.
func (f Filter) Has(keyword string) bool {
	return f.index(keyword) >= 0
}

// Term returns the first term with keyword.
func (f Filter) Term(keyword string) (Term, bool) {
	if i := f.index(keyword); i >= 0 {
		return f.terms[i], true
	}
	return Term{}, false
}

// Get returns the value of the first term with keyword.
func (f Filter) Get(keyword string) (string, bool) {
	t, ok := f.Term(keyword)
	return t.Value, ok
}

// Set stores keyword with value and relation (RelationEqual by default).
// Reserved keywords are replaced in place; other keywords are appended.
// Setting a reserved keyword to "" removes it.
func (f Filter) Set(keyword, value string, rel ...Relation) Filter {
	r := RelationEqual
	if len(rel) > 0 {
		r = rel[0]
	}
	return f.Add(Term{Keyword: keyword, Relation: r, Value: value})
}

// Add folds a prebuilt term into a copy of f with the same rules as Set.
func (f Filter) Add(t Term) Filter {
	g := f.Copy()
	g.put(t)
	return g
}

// SetInt is Set for integer values.
func (f Filter) SetInt(keyword string, n int) Filter {
	return f.Set(keyword, strconv.Itoa(n))
}

// Replace swaps every term with keyword for a single term positioned where
// the first one was. The term is appended when keyword is absent.
func (f Filter) Replace(keyword, value string, rel ...Relation) Filter {
	r := RelationEqual
	if len(rel) > 0 {
		r = rel[0]
	}
	t := Term{Keyword: keyword, Relation: r, Value: value}
	if IsReserved(keyword) {
		return f.Add(t)
	}
	if t.unset() {
		return f.Delete(keyword)
	}
	return f.replaceGroup(keyword, []Term{t})
}

// replaceGroup removes every term with keyword and inserts group where the
// first removed term stood.
func (f Filter) replaceGroup(keyword string, group []Term) Filter {
	at := f.index(keyword)
	if at < 0 {
		g := f.Copy()
		g.terms = append(g.terms, group...)
		return g
	}

	terms := make([]Term, 0, len(f.terms)+len(group))
	for i, t := range f.terms {
		if i == at {
			terms = append(terms, group...)
		}
		if t.Keyword != keyword {
			terms = append(terms, t)
		}
	}
	return Filter{terms: terms}
}

// Delete removes every term with keyword.
func (f Filter) Delete(keyword string) Filter {
	terms := make([]Term, 0, len(f.terms))
	for _, t := range f.terms {
		if t.Keyword != keyword {
			terms = append(terms, t)
		}
	}
	return Filter{terms: terms}
}

// MergeKeywords layers other onto a copy of f. For each keyword present in
// other, other's terms replace f's terms with that keyword, keeping the
// position of f's first one; keywords only found in other are appended.
func (f Filter) MergeKeywords(other Filter) Filter {
	out := f.Copy()
	done := make(map[string]bool)
	for _, t := range other.terms {
		if IsReserved(t.Keyword) {
			out.put(t)
			continue
		}
		if done[t.Keyword] {
			continue
		}
		done[t.Keyword] = true

		var group []Term
		for _, o := range other.terms {
			if o.Keyword == t.Keyword {
				group = append(group, o)
			}
		}
		out = out.replaceGroup(t.Keyword, group)
	}
	return out
}

// Equals reports whether both filters serialize to the same string.
func (f Filter) Equals(other Filter) bool {
	return f.String() == other.String()
}

// FirstIndex returns the 1-based start index. Missing or invalid values
// give 1.
func (f Filter) FirstIndex() int {
	t, ok := f.Term(KeywordFirst)
	if !ok {
		return 1
	}
	n, ok := t.Int()
	if !ok || n < 1 {
		return 1
	}
	return n
}

// Rows returns the page size: 0 when unset or invalid, RowsAll for "all".
func (f Filter) Rows() int {
	t, ok := f.Term(KeywordRows)
	if !ok {
		return 0
	}
	n, ok := t.Int()
	if !ok {
		return 0
	}
	if n < 0 {
		return RowsAll
	}
	return n
}

// SortField returns the sort column from either sort or sort-reverse.
func (f Filter) SortField() string {
	if i := f.slotIndex(KeywordSort); i >= 0 {
		return f.terms[i].Value
	}
	return ""
}

// SortReverse reports whether the filter sorts descending.
func (f Filter) SortReverse() bool {
	return f.Has(KeywordSortReverse)
}

// SortBy sets the sort column and direction.
func (f Filter) SortBy(field string, reverse bool) Filter {
	if reverse {
		return f.Set(KeywordSortReverse, field)
	}
	return f.Set(KeywordSort, field)
}

// All returns a copy that asks for every match from the first one.
func (f Filter) All() Filter {
	return f.SetInt(KeywordFirst, 1).SetInt(KeywordRows, RowsAll)
}

func (f Filter) pageRows() int {
	if rows := f.Rows(); rows != 0 {
		return rows
	}
	return DefaultRows
}

// FirstPage moves to the first page.
func (f Filter) FirstPage() Filter {
	return f.SetInt(KeywordFirst, 1)
}

// NextPage advances first by one page. It does not clamp against the result
// size; check CollectionCounts.HasNext first.
func (f Filter) NextPage() Filter {
	rows := f.pageRows()
	if rows < 0 {
		return f.Copy()
	}
	return f.SetInt(KeywordFirst, f.FirstIndex()+rows)
}

// PreviousPage moves first back by one page, never below 1.
func (f Filter) PreviousPage() Filter {
	rows := f.pageRows()
	if rows < 0 {
		return f.Copy()
	}
	return f.SetInt(KeywordFirst, max(1, f.FirstIndex()-rows))
}

// LastPage moves first to the start of the final page described by c.
func (f Filter) LastPage(c CollectionCounts) Filter {
	first := 1
	if c.Rows() > 0 && c.Filtered() > 0 {
		first = (c.Filtered()-1)/c.Rows()*c.Rows() + 1
	}
	return f.SetInt(KeywordFirst, first)
}
