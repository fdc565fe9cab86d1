package catalog

import "fmt"

const (
	// DefaultPageSize is the number of products on a catalog page.
	DefaultPageSize = 12

	// DefaultMaxPageSize is the largest page a caller may request.
	DefaultMaxPageSize = 100

	// MaxPage is the deepest numbered page served. A cold jump replays every
	// page before it, so the depth bounds the fetches one request can cause.
	MaxPage = 1000
)

// ValidatePage rejects page numbers outside [1, MaxPage].
func ValidatePage(page int) error {
	if page < 1 {
		return &ValidationError{Field: "page", Reason: "must be 1 or greater"}
	}
	if page > MaxPage {
		return &ValidationError{Field: "page", Reason: fmt.Sprintf("must not exceed %d", MaxPage)}
	}
	return nil
}

// PageConfig bounds the page sizes a caller may ask for. The zero value and a
// nil *PageConfig behave like NewPageConfig().
//
// Example:
//
//	pages := catalog.NewPageConfig().WithDefaultSize(24).WithMaxSize(48)
//	if err := args.ValidateWith(pages); err != nil {
//		return err
//	}
//	limit := pages.EffectiveLimit(args)
type PageConfig struct {
	DefaultSize int
	MaxSize     int
}

// NewPageConfig returns a config of DefaultPageSize capped at DefaultMaxPageSize.
func NewPageConfig() *PageConfig {
	return &PageConfig{DefaultSize: DefaultPageSize, MaxSize: DefaultMaxPageSize}
}

// WithDefaultSize overrides the default size. Non-positive sizes are ignored.
func (c *PageConfig) WithDefaultSize(size int) *PageConfig {
	if size > 0 {
		c.DefaultSize = size
	}
	return c
}

// WithMaxSize overrides the cap. Non-positive sizes are ignored.
func (c *PageConfig) WithMaxSize(size int) *PageConfig {
	if size > 0 {
		c.MaxSize = size
	}
	return c
}

func (c *PageConfig) bounds() (def, max int) {
	def, max = DefaultPageSize, DefaultMaxPageSize
	if c == nil {
		return def, max
	}
	if c.DefaultSize > 0 {
		def = c.DefaultSize
	}
	if c.MaxSize > 0 {
		max = c.MaxSize
	}
	return def, max
}

// EffectiveLimit is the page size to serve for args: First when set, capped
// at MaxSize, otherwise DefaultSize.
func (c *PageConfig) EffectiveLimit(args *PageArgs) int {
	def, max := c.bounds()
	first := args.GetFirst()
	switch {
	case first == nil || *first <= 0:
		return def
	case *first > max:
		return max
	}
	return *first
}

// Validate rejects a page number outside [1, MaxPage] and a First above MaxSize.
// EffectiveLimit caps silently; handlers call Validate to answer 400 instead.
func (c *PageConfig) Validate(args *PageArgs) error {
	if args == nil {
		return nil
	}
	if args.Page != nil {
		if err := ValidatePage(*args.Page); err != nil {
			return err
		}
	}
	_, max := c.bounds()
	if first := args.GetFirst(); first != nil && *first > max {
		return &PageSizeError{Requested: *first, Maximum: max}
	}
	return nil
}

// TotalPages is the number of pages of EffectiveLimit(args) products needed
// to show total products.
func (c *PageConfig) TotalPages(total int, args *PageArgs) int {
	if total <= 0 {
		return 0
	}
	size := c.EffectiveLimit(args)
	return (total + size - 1) / size
}

// PageArgs are the paging parameters of a listing request. Page selects a
// numbered page for storefront navigation; After resumes from an opaque
// cursor for API clients. After wins when both are set.
type PageArgs struct {
	First *int    `json:"first,omitempty"`
	After *string `json:"after,omitempty"`
	Page  *int    `json:"page,omitempty"`
}

// GetFirst returns the requested page size, nil on a nil receiver.
func (pa *PageArgs) GetFirst() *int {
	if pa == nil {
		return nil
	}
	return pa.First
}

// GetAfter returns the resume cursor, nil on a nil receiver.
func (pa *PageArgs) GetAfter() *string {
	if pa == nil {
		return nil
	}
	return pa.After
}

// PageNumber returns the requested 1-based page, defaulting to 1.
func (pa *PageArgs) PageNumber() int {
	if pa == nil || pa.Page == nil || *pa.Page < 1 {
		return 1
	}
	return *pa.Page
}

// Validate checks pa against the default PageConfig.
func (pa *PageArgs) Validate() error {
	return NewPageConfig().Validate(pa)
}

// ValidateWith checks pa against config.
func (pa *PageArgs) ValidateWith(config *PageConfig) error {
	return config.Validate(pa)
}

// PageSizeError reports a First above the configured maximum.
type PageSizeError struct {
	Requested int
	Maximum   int
}

func (e *PageSizeError) Error() string {
	return fmt.Sprintf("page size %d is above the limit of %d", e.Requested, e.Maximum)
}
