package postgres

import (
	"time"

	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/queries/qm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/catalog-go"
)

var _ = Describe("QueryMods", func() {
	newest := []catalog.OrderBy{
		{Field: catalog.FieldCreatedAt, Desc: true},
		{Field: catalog.FieldID, Desc: true},
	}

	It("should return no mods for an empty query", func() {
		mods, err := QueryMods(catalog.Query{})
		Expect(err).ToNot(HaveOccurred())
		Expect(mods).To(BeEmpty())
	})

	It("should add LIMIT and ORDER BY mods", func() {
		mods, err := QueryMods(catalog.Query{OrderBy: newest, Limit: 13})
		Expect(err).ToNot(HaveOccurred())
		Expect(mods).To(HaveLen(2))
		Expect(modTypeName(mods[0])).To(Equal("qm.orderByQueryMod"))
		Expect(modTypeName(mods[1])).To(Equal("qm.limitQueryMod"))
	})

	It("should reject what the document store rejects", func() {
		q := catalog.Query{}.
			Where(catalog.FieldPrice, catalog.OpGreaterEqual, int64(10)).
			Where(catalog.FieldCreatedAt, catalog.OpLess, time.Now())
		_, err := QueryMods(q)
		Expect(err).To(MatchError(catalog.ErrMultipleRangeFields))
	})

	It("should reject unknown fields", func() {
		_, err := QueryMods(catalog.Query{}.Where("colour", catalog.OpEqual, "red"))
		Expect(catalog.IsInvalid(err)).To(BeTrue())
	})

	It("should build a full SELECT", func() {
		q := catalog.Query{}.
			Where(catalog.FieldCategory, catalog.OpEqual, "shawls").
			Where(catalog.FieldPrice, catalog.OpGreaterEqual, int64(500)).
			Where(catalog.FieldPrice, catalog.OpLessEqual, int64(1500)).
			Where(catalog.FieldTag, catalog.OpArrayContains, "re").
			Order(catalog.FieldPrice, false).
			Order(catalog.FieldID, false).
			WithLimit(5)

		mods, err := QueryMods(q)
		Expect(err).ToNot(HaveOccurred())
		sql, args := queries.BuildQuery(newQuery(append([]qm.QueryMod{qm.Select(productColumns), qm.From(`"products"`)}, mods...)...))

		Expect(sql).To(ContainSubstring(`"category_id" = $1`))
		Expect(sql).To(ContainSubstring(`"price" >= $2`))
		Expect(sql).To(ContainSubstring(`"price" <= $3`))
		Expect(sql).To(ContainSubstring(`$4 = ANY("tags")`))
		Expect(sql).To(ContainSubstring(`ORDER BY "price", "id"`))
		Expect(sql).To(ContainSubstring("LIMIT 5"))
		Expect(args).To(Equal([]interface{}{"shawls", int64(500), int64(1500), "re"}))
	})

	It("should expand id membership into placeholders", func() {
		q := catalog.Query{}.Where(catalog.FieldID, catalog.OpIn, []string{"a", "b", "c"})
		mods, err := QueryMods(q)
		Expect(err).ToNot(HaveOccurred())
		sql, args := queries.BuildQuery(newQuery(append([]qm.QueryMod{qm.From(`"products"`)}, mods...)...))

		Expect(sql).To(ContainSubstring(`"id" IN ($1,$2,$3)`))
		Expect(args).To(Equal([]interface{}{"a", "b", "c"}))
	})
})

var _ = Describe("buildKeysetWhereClause", func() {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	It("should use < for descending columns", func() {
		pos := &catalog.CursorPosition{Values: map[string]any{
			catalog.FieldCreatedAt: at.Format(time.RFC3339Nano),
			catalog.FieldID:        "p-9",
		}}
		clause, args, err := buildKeysetWhereClause(pos, []catalog.OrderBy{
			{Field: catalog.FieldCreatedAt, Desc: true},
			{Field: catalog.FieldID, Desc: true},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(clause).To(Equal(`("created_at" < ? OR ("created_at" = ? AND "id" < ?))`))
		Expect(args).To(Equal([]interface{}{at, at, "p-9"}))
	})

	It("should pick the operator per column", func() {
		pos := &catalog.CursorPosition{Values: map[string]any{
			catalog.FieldPrice:     float64(700),
			catalog.FieldCreatedAt: at,
			catalog.FieldID:        "p-3",
		}}
		clause, args, err := buildKeysetWhereClause(pos, []catalog.OrderBy{
			{Field: catalog.FieldPrice},
			{Field: catalog.FieldCreatedAt, Desc: true},
			{Field: catalog.FieldID, Desc: true},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(clause).To(Equal(
			`("price" > ? OR ("price" = ? AND "created_at" < ?) OR ("price" = ? AND "created_at" = ? AND "id" < ?))`,
		))
		Expect(args).To(Equal([]interface{}{int64(700), int64(700), at, int64(700), at, "p-3"}))
	})

	It("should fail when the cursor misses an order field", func() {
		pos := &catalog.CursorPosition{Values: map[string]any{catalog.FieldID: "p-1"}}
		_, _, err := buildKeysetWhereClause(pos, []catalog.OrderBy{
			{Field: catalog.FieldName},
			{Field: catalog.FieldID},
		})
		Expect(err).To(HaveOccurred())
	})
})
