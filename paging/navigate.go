// Package paging turns a filter and the counts its last query returned into
// the next filter to fetch, and arbitrates between overlapping fetches.
package paging

import (
	"fmt"
	"strings"

	"vigil/filter"
)

// Action is a navigation request from a pagination control.
type Action int

const (
	First Action = iota
	Previous
	Next
	Last
	// Reload refetches the current page.
	Reload
)

var actionNames = map[Action]string{
	First:    "first",
	Previous: "previous",
	Next:     "next",
	Last:     "last",
	Reload:   "reload",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction maps a name such as "next" or "prev" to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first":
		return First, nil
	case "previous", "prev":
		return Previous, nil
	case "next":
		return Next, nil
	case "last":
		return Last, nil
	case "reload", "":
		return Reload, nil
	}
	return 0, fmt.Errorf("unknown page action %q", s)
}

// Enabled reports whether action is allowed given the counts of the current
// page.
func Enabled(c filter.CollectionCounts, action Action) bool {
	switch action {
	case First:
		return c.Rows() >= 0 && c.First() > 1
	case Previous:
		return c.HasPrevious()
	case Next:
		// an empty page past the end has nothing after it
		if c.Length() == 0 && c.First() > 1 {
			return false
		}
		return c.HasNext()
	case Last:
		return c.Rows() > 0 && !c.IsLast()
	case Reload:
		return true
	}
	return false
}

// Navigate returns the filter for action, or false when the counts say the
// action is not available.
func Navigate(f filter.Filter, c filter.CollectionCounts, action Action) (filter.Filter, bool) {
	if !Enabled(c, action) {
		return f, false
	}

	switch action {
	case First:
		return f.FirstPage(), true
	case Previous:
		return f.PreviousPage(), true
	case Next:
		return f.NextPage(), true
	case Last:
		return f.LastPage(c), true
	}
	return f.Copy(), true
}

// PageLinks holds the filter string for each enabled navigation action.
type PageLinks struct {
	First    *string `json:"first,omitempty"`
	Previous *string `json:"previous,omitempty"`
	Next     *string `json:"next,omitempty"`
	Last     *string `json:"last,omitempty"`
}

// Links computes PageLinks for a page.
func Links(f filter.Filter, c filter.CollectionCounts) PageLinks {
	link := func(action Action) *string {
		g, ok := Navigate(f, c, action)
		if !ok {
			return nil
		}
		s := g.String()
		return &s
	}

	return PageLinks{
		First:    link(First),
		Previous: link(Previous),
		Next:     link(Next),
		Last:     link(Last),
	}
}
