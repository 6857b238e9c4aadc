package domain

import (
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the number of jobs collected per location when no limit is set.
	DefaultLimit = 25
	// DefaultLocation is searched when no location is set.
	DefaultLocation = "Worldwide"
)

// Query describes one scraping request. It is merged with global options
// exactly once before dispatch and never mutated afterwards.
type Query struct {
	Keyword string       `json:"query" yaml:"query"`
	Options QueryOptions `json:"options" yaml:"options"`
}

// QueryOptions holds per-query settings. Nil fields are unset and inherit
// from the global options at merge time.
type QueryOptions struct {
	// Limit caps the jobs collected per location. Zero means no cap.
	Limit        *int          `json:"limit,omitempty" yaml:"limit"`
	Locations    []string      `json:"locations,omitempty" yaml:"locations"`
	Filters      *QueryFilters `json:"filters,omitempty" yaml:"filters"`
	ApplyLink    *bool         `json:"apply_link,omitempty" yaml:"apply_link"`
	SkipPromoted *bool         `json:"skip_promoted,omitempty" yaml:"skip_promoted"`
	PageOffset   *int          `json:"page_offset,omitempty" yaml:"page_offset"`
	Skip         *SkipOptions  `json:"skip,omitempty" yaml:"skip"`
}

// NewQuery builds a query for keyword with the given options.
func NewQuery(keyword string, opts QueryOptions) Query {
	return Query{Keyword: keyword, Options: opts}
}

// Merge fills every unset option from global, then from the defaults.
// Fields already set are left untouched, so merging twice is a no-op.
func (q Query) Merge(global *QueryOptions) Query {
	if global == nil {
		global = &QueryOptions{}
	}
	out := Query{Keyword: q.Keyword}
	o := q.Options

	out.Options.Limit = firstInt(o.Limit, global.Limit, DefaultLimit)
	out.Options.PageOffset = firstInt(o.PageOffset, global.PageOffset, 0)
	out.Options.ApplyLink = firstBool(o.ApplyLink, global.ApplyLink)
	out.Options.SkipPromoted = firstBool(o.SkipPromoted, global.SkipPromoted)

	switch {
	case o.Locations != nil:
		out.Options.Locations = append([]string(nil), o.Locations...)
	case global.Locations != nil:
		out.Options.Locations = append([]string(nil), global.Locations...)
	default:
		out.Options.Locations = []string{DefaultLocation}
	}

	switch {
	case o.Filters != nil:
		out.Options.Filters = o.Filters
	case global.Filters != nil:
		out.Options.Filters = global.Filters.Clone()
	}

	switch {
	case o.Skip != nil:
		out.Options.Skip = o.Skip
	case global.Skip != nil:
		out.Options.Skip = global.Skip.Clone()
	}

	return out
}

// Validate reports the first malformed field of the query.
func (q Query) Validate() error {
	return q.Options.Validate()
}

// Validate reports the first malformed option.
func (o *QueryOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.Limit != nil && *o.Limit < 0 {
		return &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be >= 0, got %d", *o.Limit)}
	}
	if o.PageOffset != nil && *o.PageOffset < 0 {
		return &ValidationError{Field: "page_offset", Reason: fmt.Sprintf("must be >= 0, got %d", *o.PageOffset)}
	}
	if o.Locations != nil {
		if len(o.Locations) == 0 {
			return &ValidationError{Field: "locations", Reason: "must not be empty"}
		}
		for i, l := range o.Locations {
			if strings.TrimSpace(l) == "" {
				return &ValidationError{Field: fmt.Sprintf("locations[%d]", i), Reason: "must not be blank"}
			}
		}
	}
	if err := o.Filters.Validate(); err != nil {
		return err
	}
	return nil
}

// LimitValue returns the merged limit.
func (o QueryOptions) LimitValue() int {
	if o.Limit == nil {
		return DefaultLimit
	}
	return *o.Limit
}

// PageOffsetValue returns the merged page offset.
func (o QueryOptions) PageOffsetValue() int {
	if o.PageOffset == nil {
		return 0
	}
	return *o.PageOffset
}

// ApplyLinkValue reports whether apply links should be resolved.
func (o QueryOptions) ApplyLinkValue() bool {
	return o.ApplyLink != nil && *o.ApplyLink
}

// SkipPromotedValue reports whether promoted jobs are skipped.
func (o QueryOptions) SkipPromotedValue() bool {
	return o.SkipPromoted != nil && *o.SkipPromoted
}

// Int returns a pointer to v, for building options literals.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for building options literals.
func Bool(v bool) *bool { return &v }

func firstInt(a, b *int, def int) *int {
	switch {
	case a != nil:
		return Int(*a)
	case b != nil:
		return Int(*b)
	default:
		return Int(def)
	}
}

func firstBool(a, b *bool) *bool {
	switch {
	case a != nil:
		return Bool(*a)
	case b != nil:
		return Bool(*b)
	default:
		return Bool(false)
	}
}
