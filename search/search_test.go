package search_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/search"
)

var _ = Describe("Filter", func() {
	products := []*catalog.Product{
		{ID: "1", Name: "Red Shawl"},
		{ID: "2", Name: "Red Saree"},
		{ID: "3", Name: "Shawl of Red Wool"},
		{ID: "4", Name: "Blue Shawl"},
	}

	names := func(ps []*catalog.Product) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Name
		}
		return out
	}

	It("should keep names containing every token in any order", func() {
		Expect(names(search.Filter(products, "red shawl"))).To(Equal([]string{"Red Shawl", "Shawl of Red Wool"}))
	})

	It("should match substrings case-insensitively", func() {
		Expect(names(search.Filter(products, "SAR"))).To(Equal([]string{"Red Saree"}))
	})

	It("should pass everything for a blank phrase", func() {
		Expect(search.Filter(products, "   ")).To(HaveLen(4))
	})

	It("should not modify the input", func() {
		_ = search.Filter(products, "blue")
		Expect(products).To(HaveLen(4))
		Expect(products[0].Name).To(Equal("Red Shawl"))
	})

	It("should adapt to a FilterFunc", func() {
		out, err := search.PostFilter("blue")(context.Background(), products)
		Expect(err).ToNot(HaveOccurred())
		Expect(names(out)).To(Equal([]string{"Blue Shawl"}))
	})
})

var _ = Describe("Tags", func() {
	DescribeTable("PrefixTag",
		func(phrase, expected string) {
			Expect(search.PrefixTag(phrase)).To(Equal(expected))
		},
		Entry("first token prefix", "Red shawl", "re"),
		Entry("short token", "A line", "a"),
		Entry("multibyte runes", "ßeta shawl", "ße"),
		Entry("blank", "  ", ""),
	)

	It("should derive unique word prefixes from a name", func() {
		Expect(search.Tags("Red Shawl with Red Shimmer")).To(Equal([]string{"re", "sh", "wi"}))
		Expect(search.Tags("")).To(BeEmpty())
	})

	It("should tokenize on any whitespace", func() {
		Expect(search.Tokenize("Red\tSHAWL\n")).To(Equal([]string{"red", "shawl"}))
		Expect(search.Match("Red Shawl", nil)).To(BeTrue())
	})
})
