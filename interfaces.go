package catalog

import "context"

// Store is the backing document store the catalog reads products from.
// Implementations include the Firestore, PostgreSQL and in-memory adapters
// under store/, plus the Redis read-through decorator.
//
// Every implementation must call Query.Validate before issuing a query so
// that unsupported filter combinations fail fast with a clear error instead
// of being rejected (or silently mis-executed) by the vendor backend.
type Store interface {
	// Fetch runs the query and returns the matching products in query order.
	Fetch(ctx context.Context, q Query) ([]*Product, error)

	// Count returns the number of products matching the query constraints.
	// OrderBy, Limit and StartAfter are ignored. Implementations should use a
	// server-side aggregation rather than transferring documents.
	Count(ctx context.Context, q Query) (int64, error)
}

// GenreSource resolves a curated genre (e.g. "New Arrivals") to the ids of
// the products it groups.
type GenreSource interface {
	// GenreProductIDs returns ErrNotFound when the genre does not exist.
	GenreProductIDs(ctx context.Context, genreID string) ([]string, error)
}

// Strategy names reported in Metadata.Strategy.
const (
	StrategyCursor     = "cursor"
	StrategyMembership = "membership"
	StrategyFill       = "quotafill"
)

// Page represents a single page of catalog results.
//
// Type parameter T is the item type being paginated.
type Page[T any] struct {
	// Number is the 1-based page number. Zero for keyset (After) requests.
	Number int

	// Nodes contains the items for this page, after post-filtering.
	Nodes []T

	// PageInfo contains lazily evaluated pagination metadata.
	PageInfo *PageInfo

	// Metadata provides observability information about how the page was built.
	Metadata Metadata
}

// Metadata provides observability and debugging information about how a page
// was produced.
type Metadata struct {
	// Strategy identifies the listing path: "cursor", "membership" or
	// "quotafill".
	Strategy string

	// QueryTimeMs is the total time spent in backing store calls.
	QueryTimeMs int64

	// ItemsExamined is the number of products fetched before post-filtering.
	ItemsExamined int

	// Fetches is the number of Fetch calls issued to build the page.
	Fetches int

	// Replayed is true when earlier pages had to be re-fetched to rebuild the
	// cursor chain (random access to an uncached page).
	Replayed bool

	// Partial is true when some membership batches failed and the page may be
	// missing products.
	Partial bool

	// FailedBatches is the number of membership batches that failed.
	FailedBatches int

	// Iterations is the number of fill iterations run for a searched keyset page.
	Iterations int

	// SafeguardHit names the safeguard that stopped a fill early, if any.
	SafeguardHit string
}

// FilterFunc narrows a batch of items after they were fetched.
// The text post-filter in package search is the main implementation.
type FilterFunc[T any] func(ctx context.Context, items []T) ([]T, error)

// CursorEncoder converts items into opaque cursor strings and back.
//
// Type parameter T is the item type (e.g., *Product).
type CursorEncoder[T any] interface {
	// Encode creates an opaque cursor string from an item.
	Encode(item T) (*string, error)

	// Decode extracts the cursor position from an opaque cursor string.
	Decode(cursor string) (*CursorPosition, error)
}
