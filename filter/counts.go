package filter

import "encoding/json"

// Counts holds the raw numbers a list query reports back.
type Counts struct {
	First    int `json:"first"`
	All      int `json:"all"`
	Filtered int `json:"filtered"`
	Length   int `json:"length"`
	Rows     int `json:"rows"`
}

// CollectionCounts describes where a returned page sits in the filtered and
// unfiltered result sets. It is immutable; last is derived once at
// construction.
type CollectionCounts struct {
	first    int
	all      int
	filtered int
	length   int
	rows     int
	last     int
}

// NewCollectionCounts builds counts and derives the index of the last
// returned entity.
func NewCollectionCounts(in Counts) CollectionCounts {
	last := 0
	if in.First > 0 && in.Length > 0 {
		last = in.First + in.Length - 1
	}
	return CollectionCounts{
		first:    in.First,
		all:      in.All,
		filtered: in.Filtered,
		length:   in.Length,
		rows:     in.Rows,
		last:     last,
	}
}

func (c CollectionCounts) First() int    { return c.first }
func (c CollectionCounts) All() int      { return c.all }
func (c CollectionCounts) Filtered() int { return c.filtered }
func (c CollectionCounts) Length() int   { return c.length }
func (c CollectionCounts) Rows() int     { return c.rows }
func (c CollectionCounts) Last() int     { return c.last }

// Counts returns the construction inputs.
func (c CollectionCounts) Counts() Counts {
	return Counts{
		First:    c.first,
		All:      c.all,
		Filtered: c.filtered,
		Length:   c.length,
		Rows:     c.rows,
	}
}

// CountsOption overrides one input of Clone.
type CountsOption func(*Counts)

func WithFirst(n int) CountsOption    { return func(c *Counts) { c.First = n } }
func WithAll(n int) CountsOption      { return func(c *Counts) { c.All = n } }
func WithFiltered(n int) CountsOption { return func(c *Counts) { c.Filtered = n } }
func WithLength(n int) CountsOption   { return func(c *Counts) { c.Length = n } }
func WithRows(n int) CountsOption     { return func(c *Counts) { c.Rows = n } }

// Clone returns new counts with opts applied over c's inputs. last is
// recomputed from the result.
func (c CollectionCounts) Clone(opts ...CountsOption) CollectionCounts {
	in := c.Counts()
	for _, opt := range opts {
		opt(&in)
	}
	return NewCollectionCounts(in)
}

func (c CollectionCounts) showsAll() bool {
	return c.rows < 0
}

// IsFirst reports whether the page starts at the first entity.
func (c CollectionCounts) IsFirst() bool {
	return !c.showsAll() && c.first == 1
}

// HasPrevious reports whether a full page exists before this one.
func (c CollectionCounts) HasPrevious() bool {
	return !c.showsAll() && c.first > c.rows && c.rows > 0
}

// IsLast reports whether the page reaches the final filtered entity.
func (c CollectionCounts) IsLast() bool {
	return !c.showsAll() && c.last >= c.filtered
}

// HasNext reports whether entities remain after this page.
func (c CollectionCounts) HasNext() bool {
	return !c.showsAll() && c.last < c.filtered
}

type countsJSON struct {
	Counts
	Last int `json:"last"`
}

// MarshalJSON includes the derived last index.
func (c CollectionCounts) MarshalJSON() ([]byte, error) {
	return json.Marshal(countsJSON{Counts: c.Counts(), Last: c.last})
}

// UnmarshalJSON ignores any transmitted last and derives it again.
func (c *CollectionCounts) UnmarshalJSON(data []byte) error {
	var in Counts
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = NewCollectionCounts(in)
	return nil
}
