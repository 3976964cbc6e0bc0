package render_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govconnect/internal/render"
	"govconnect/internal/schema"
)

func places() *schema.Table {
	return &schema.Table{Name: "places", Fields: []schema.Field{
		{Name: "name", Type: schema.TypeString, Visible: true},
		{Name: "city", Type: schema.TypeString, Visible: true},
		{Name: "secret", Type: schema.TypeString, Visible: false},
	}}
}

func placeRecords() []*schema.Record {
	return []*schema.Record{
		{ID: 1, Values: map[string]any{"name": "Alpha", "city": "Pune", "secret": "zeta"}},
		{ID: 2, Values: map[string]any{"name": "Beta", "city": "Alpha", "secret": "zeta"}},
	}
}

func ids(l *render.List) []int64 {
	out := []int64{}
	for _, r := range l.Rows() {
		out = append(out, r.ID)
	}
	return out
}

func TestSearchScoping(t *testing.T) {
	all := render.NewList(places(), placeRecords(), render.Query{Text: "alpha"}, render.Options{})
	assert.Equal(t, []int64{1, 2}, ids(all))

	scoped := render.NewList(places(), placeRecords(), render.Query{Text: "alpha", Field: "name"}, render.Options{})
	assert.Equal(t, []int64{1}, ids(scoped))
	assert.Equal(t, len(placeRecords()), scoped.Total(), "total counts records before filtering")

	unknown := render.NewList(places(), placeRecords(), render.Query{Text: "alpha", Field: "nope"}, render.Options{})
	assert.Empty(t, ids(unknown))

	hidden := render.NewList(places(), placeRecords(), render.Query{Text: "zeta"}, render.Options{})
	assert.Empty(t, ids(hidden), "hidden values are not searchable")
}

func TestEmptyStates(t *testing.T) {
	empty := render.NewList(places(), nil, render.Query{}, render.Options{})
	assert.Equal(t, render.EmptyNoRecords, empty.EmptyState())
	assert.Equal(t, "No records found. Add your first record!", empty.EmptyState().Message())

	empty = render.NewList(places(), nil, render.Query{Text: "x"}, render.Options{})
	assert.Equal(t, render.EmptyNoRecords, empty.EmptyState())

	none := render.NewList(places(), placeRecords(), render.Query{Text: "gamma"}, render.Options{})
	assert.Equal(t, render.EmptyNoMatches, none.EmptyState())
	assert.Equal(t, "No records match your search.", none.EmptyState().Message())

	some := render.NewList(places(), placeRecords(), render.Query{}, render.Options{})
	assert.Equal(t, render.EmptyNone, some.EmptyState())
}

func TestColumnsAndCells(t *testing.T) {
	tbl := &schema.Table{Name: "t", Fields: []schema.Field{
		{Name: "active", Type: schema.TypeBool, Visible: true},
		{Name: "visit", Type: schema.TypeDate, Visible: true},
		{Name: "size", Type: schema.TypeFloat, Visible: true},
		{Name: "gone", Type: schema.TypeString, Visible: true},
	}}
	recs := []*schema.Record{{ID: 7, Values: map[string]any{"active": true, "visit": "2024-03-05", "size": 4.5}}}

	l := render.NewList(tbl, recs, render.Query{}, render.Options{})
	cols := l.Columns()
	require.Len(t, cols, 5)
	assert.True(t, cols[4].Actions)

	row := l.Rows()[0]
	assert.Equal(t, []string{"Yes", "05 Mar 2024", "4.5", ""}, row.Cells)

	l = render.NewList(tbl, recs, render.Query{}, render.Options{DateLayout: "2006/01/02"})
	assert.Equal(t, "2024/03/05", l.Rows()[0].Cells[1])
}

func TestFormatCell(t *testing.T) {
	b := schema.Field{Name: "b", Type: schema.TypeBool}
	assert.Equal(t, "No", render.FormatCell(b, false, ""))
	assert.Equal(t, "", render.FormatCell(b, nil, ""))

	d := schema.Field{Name: "d", Type: schema.TypeDate}
	assert.Equal(t, "someday", render.FormatCell(d, "someday", ""))

	i := schema.Field{Name: "i", Type: schema.TypeInt}
	assert.Equal(t, "42", render.FormatCell(i, int64(42), ""))
}

func TestSortWithNulls(t *testing.T) {
	tbl := &schema.Table{Name: "t", Fields: []schema.Field{
		{Name: "age", Type: schema.TypeInt, Visible: true},
	}}
	recs := []*schema.Record{
		{ID: 1, Values: map[string]any{"age": int64(30)}},
		{ID: 2, Values: map[string]any{}},
		{ID: 3, Values: map[string]any{"age": int64(9)}},
	}
	q := render.ParseQuery(url.Values{"sort": {"age"}})
	assert.Equal(t, []int64{3, 1, 2}, ids(render.NewList(tbl, recs, q, render.Options{})))

	q = render.ParseQuery(url.Values{"sort": {"-age"}, "nulls": {"first"}})
	assert.Equal(t, []int64{2, 1, 3}, ids(render.NewList(tbl, recs, q, render.Options{})))
}

func TestParseQueryRoundTrip(t *testing.T) {
	q := render.ParseQuery(url.Values{"q": {" alpha "}, "field": {"name"}, "sort": {"-name, city"}})
	assert.Equal(t, "alpha", q.Text)
	assert.Equal(t, "name", q.Field)
	assert.Equal(t, []render.SortKey{{Field: "name", Desc: true}, {Field: "city"}}, q.Sort)
	assert.Equal(t, "last", q.Nulls)

	back, err := url.ParseQuery(q.Encode())
	require.NoError(t, err)
	assert.Equal(t, q, render.ParseQuery(back))
}
