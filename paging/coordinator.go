package paging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"vigil/filter"
)

// ErrNavigationDisabled is returned by Coordinator.Navigate when the current
// counts do not allow the requested action.
var ErrNavigationDisabled = errors.New("navigation not available for current page")

// Fetcher runs a list query for a filter.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, f filter.Filter) ([]T, filter.CollectionCounts, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc[T any] func(ctx context.Context, f filter.Filter) ([]T, filter.CollectionCounts, error)

func (fn FetcherFunc[T]) Fetch(ctx context.Context, f filter.Filter) ([]T, filter.CollectionCounts, error) {
	return fn(ctx, f)
}

// State is the last successfully applied query: the filter that was asked,
// and the page and counts that came back for it.
type State[T any] struct {
	Filter filter.Filter
	Items  []T
	Counts filter.CollectionCounts
	// Seq is the sequence number of the request that produced this state;
	// 0 before the first successful fetch.
	Seq uint64
}

// Coordinator pairs a filter with the counts of its latest result and makes
// sure that only the most recently issued request can change that pairing.
// Older responses arriving late are dropped, whether they succeeded or not.
type Coordinator[T any] struct {
	fetcher Fetcher[T]
	logger  *log.Entry

	mu     sync.Mutex
	issued uint64
	state  State[T]
}

// NewCoordinator starts from initial with no fetched page.
func NewCoordinator[T any](fetcher Fetcher[T], initial filter.Filter) *Coordinator[T] {
	return &Coordinator[T]{
		fetcher: fetcher,
		logger:  log.WithField("component", "paging"),
		state:   State[T]{Filter: initial.Copy()},
	}
}

// WithLogger replaces the coordinator's log entry.
func (c *Coordinator[T]) WithLogger(logger *log.Entry) *Coordinator[T] {
	c.logger = logger
	return c
}

// State returns the last applied state.
func (c *Coordinator[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Latest returns the sequence number of the most recently issued request.
func (c *Coordinator[T]) Latest() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issued
}

// Apply fetches f and commits the result if no newer request was issued in
// the meantime. The bool result reports whether the state changed. A
// superseded request returns (current state, false, nil). A failed latest
// request returns the error and keeps the previous state.
func (c *Coordinator[T]) Apply(ctx context.Context, f filter.Filter) (State[T], bool, error) {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	items, counts, err := c.fetcher.Fetch(ctx, f)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.issued {
		c.logger.WithFields(log.Fields{
			"seq":    seq,
			"latest": c.issued,
			"filter": f.String(),
		}).Debug("discarding superseded response")
		return c.state, false, nil
	}

	if err != nil {
		return c.state, false, fmt.Errorf("fetch %q: %w", f.String(), err)
	}

	committed := f.Copy()
	if counts.Rows() != 0 && counts.Rows() != committed.Rows() {
		// navigation steps by the page size the backend used, which may be
		// a default or a capped version of the requested one
		committed = committed.SetInt(filter.KeywordRows, counts.Rows())
	}

	c.state = State[T]{
		Filter: committed,
		Items:  items,
		Counts: counts,
		Seq:    seq,
	}
	return c.state, true, nil
}

// Navigate applies the filter derived from the current state for action.
func (c *Coordinator[T]) Navigate(ctx context.Context, action Action) (State[T], bool, error) {
	current := c.State()
	next, ok := Navigate(current.Filter, current.Counts, action)
	if !ok {
		return current, false, fmt.Errorf("%s: %w", action, ErrNavigationDisabled)
	}
	return c.Apply(ctx, next)
}

// Reload refetches the current filter.
func (c *Coordinator[T]) Reload(ctx context.Context) (State[T], bool, error) {
	return c.Apply(ctx, c.State().Filter)
}
