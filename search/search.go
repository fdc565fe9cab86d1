// Package search implements the client-side text matching that refines the
// coarse tag pre-filter the backing store can evaluate.
//
// The store only supports an "array-contains" test against each product's
// two-character word prefixes, so a query narrows candidates by the first
// token's prefix and Filter then keeps products whose name contains every
// token of the phrase, in any order.
package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/nrfta/catalog-go"
)

// PrefixLen is the number of runes kept in a search tag.
const PrefixLen = 2

// Tokenize lower-cases phrase and splits it on whitespace.
func Tokenize(phrase string) []string {
	return strings.Fields(strings.ToLower(phrase))
}

// Match reports whether name contains every token as a case-insensitive
// substring. An empty token list matches everything.
func Match(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, t := range tokens {
		if !strings.Contains(lower, t) {
			return false
		}
	}
	return true
}

// Filter keeps the products whose name matches every token of phrase.
// The input slice is not modified.
func Filter(products []*catalog.Product, phrase string) []*catalog.Product {
	tokens := Tokenize(phrase)
	if len(tokens) == 0 {
		return products
	}
	out := make([]*catalog.Product, 0, len(products))
	for _, p := range products {
		if Match(p.Name, tokens) {
			out = append(out, p)
		}
	}
	return out
}

// PostFilter adapts Filter to a catalog.FilterFunc.
func PostFilter(phrase string) catalog.FilterFunc[*catalog.Product] {
	return func(_ context.Context, items []*catalog.Product) ([]*catalog.Product, error) {
		return Filter(items, phrase), nil
	}
}

// PrefixTag returns the tag used to pre-filter a phrase in the backing store:
// the first PrefixLen runes of its first token. It returns "" for a blank phrase.
func PrefixTag(phrase string) string {
	tokens := Tokenize(phrase)
	if len(tokens) == 0 {
		return ""
	}
	return prefix(tokens[0])
}

// Tags derives the tag array stored on a product with the given name.
func Tags(name string) []string {
	tokens := Tokenize(name)
	seen := make(map[string]struct{}, len(tokens))
	tags := make([]string, 0, len(tokens))
	for _, t := range tokens {
		p := prefix(t)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		tags = append(tags, p)
	}
	return tags
}

func prefix(token string) string {
	if utf8.RuneCountInString(token) <= PrefixLen {
		return token
	}
	runes := []rune(token)
	return string(runes[:PrefixLen])
}
