package postgres

import (
	"fmt"
	"strings"

	"github.com/aarondl/sqlboiler/v4/drivers"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/queries/qm"
	"github.com/aarondl/strmangle"

	"github.com/nrfta/catalog-go"
)

var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

// columns maps catalog fields to products columns.
var columns = map[string]string{
	catalog.FieldID:        "id",
	catalog.FieldName:      "name",
	catalog.FieldPrice:     "price",
	catalog.FieldCategory:  "category_id",
	catalog.FieldCreatedAt: "created_at",
	catalog.FieldTag:       "tags",
}

func column(field string) (string, error) {
	col, ok := columns[field]
	if !ok {
		return "", &catalog.ValidationError{Field: field, Reason: "unknown field"}
	}
	return strmangle.IdentQuote(dialect.LQ, dialect.RQ, col), nil
}

// QueryMods converts a catalog query into sqlboiler query mods:
//
//   - == and range constraints → qm.Where("col OP ?", v)
//   - in → qm.WhereIn("col IN ?", ids...)
//   - array-contains → qm.Where("? = ANY(tags)", tag)
//   - StartAfter → expanded keyset comparison, one operator per column
//   - OrderBy → qm.OrderBy("col1 DESC, col2")
//   - Limit → qm.Limit(n)
//
// The query is validated first so the SQL store rejects exactly what the
// document store rejects.
func QueryMods(q catalog.Query) ([]qm.QueryMod, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	mods := []qm.QueryMod{}
	for _, c := range q.Constraints {
		mod, err := constraintMod(c)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}

	if q.StartAfter != nil {
		clause, args, err := buildKeysetWhereClause(q.StartAfter, q.OrderBy)
		if err != nil {
			return nil, err
		}
		mods = append(mods, rawWhereClause(clause, args))
	}

	if len(q.OrderBy) > 0 {
		clause, err := buildOrderByClause(q.OrderBy)
		if err != nil {
			return nil, err
		}
		mods = append(mods, qm.OrderBy(clause))
	}

	if q.Limit > 0 {
		mods = append(mods, qm.Limit(q.Limit))
	}
	return mods, nil
}

func constraintMod(c catalog.Constraint) (qm.QueryMod, error) {
	col, err := column(c.Field)
	if err != nil {
		return nil, err
	}

	switch c.Op {
	case catalog.OpIn:
		ids, _ := c.Value.([]string)
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		return qm.WhereIn(col+" IN ?", args...), nil
	case catalog.OpArrayContains:
		return qm.Where("? = ANY("+col+")", c.Value), nil
	case catalog.OpEqual:
		v, err := catalog.NormalizeValue(c.Field, c.Value)
		if err != nil {
			return nil, err
		}
		return qm.Where(col+" = ?", v), nil
	}

	if !c.Op.IsRange() {
		return nil, &catalog.ValidationError{Field: c.Field, Reason: fmt.Sprintf("unsupported operator %q", c.Op)}
	}
	v, err := catalog.NormalizeValue(c.Field, c.Value)
	if err != nil {
		return nil, err
	}
	return qm.Where(fmt.Sprintf("%s %s ?", col, c.Op), v), nil
}

// buildKeysetWhereClause builds the expanded keyset comparison
//
//	c1 OP1 ? OR (c1 = ? AND c2 OP2 ?) OR ...
//
// where OPn is < for descending columns and > for ascending ones. Columns
// may mix directions, e.g. price ascending followed by created_at and id
// descending.
func buildKeysetWhereClause(pos *catalog.CursorPosition, orderBy []catalog.OrderBy) (string, []interface{}, error) {
	values, err := pos.Ordered(orderBy)
	if err != nil {
		return "", nil, err
	}

	cols := make([]string, len(orderBy))
	for i, ob := range orderBy {
		if cols[i], err = column(ob.Field); err != nil {
			return "", nil, err
		}
	}

	var parts []string
	var args []interface{}
	for i, ob := range orderBy {
		op := ">"
		if ob.Desc {
			op = "<"
		}
		if i == 0 {
			parts = append(parts, fmt.Sprintf("%s %s ?", cols[i], op))
			args = append(args, values[i])
			continue
		}

		eq := make([]string, 0, i)
		for j := 0; j < i; j++ {
			eq = append(eq, cols[j]+" = ?")
			args = append(args, values[j])
		}
		parts = append(parts, fmt.Sprintf("(%s AND %s %s ?)", strings.Join(eq, " AND "), cols[i], op))
		args = append(args, values[i])
	}
	return "(" + strings.Join(parts, " OR ") + ")", args, nil
}

// rawWhereClause appends a WHERE clause with its arguments as is.
func rawWhereClause(clause string, args []interface{}) qm.QueryMod {
	return qm.QueryModFunc(func(q *queries.Query) {
		queries.AppendWhere(q, clause, args...)
	})
}

func buildOrderByClause(orderBy []catalog.OrderBy) (string, error) {
	parts := make([]string, len(orderBy))
	for i, ob := range orderBy {
		col, err := column(ob.Field)
		if err != nil {
			return "", err
		}
		if ob.Desc {
			parts[i] = col + " DESC"
		} else {
			parts[i] = col
		}
	}
	return strings.Join(parts, ", "), nil
}

// newQuery returns a products query with the postgres dialect applied.
func newQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}
