package render

import (
	"govconnect/internal/schema"
)

type EmptyState int

const (
	EmptyNone EmptyState = iota
	EmptyNoRecords
	EmptyNoMatches
)

func (e EmptyState) Message() string {
	switch e {
	case EmptyNoRecords:
		return "No records found. Add your first record!"
	case EmptyNoMatches:
		return "No records match your search."
	default:
		return ""
	}
}

type Options struct {
	DateLayout string
}

type Column struct {
	Name    string
	Label   string
	Type    schema.DataType
	Actions bool // последняя колонка: редактировать/удалить
}

type Row struct {
	ID    int64
	Cells []string
}

// List - табличное представление записей с поиском.
type List struct {
	table   *schema.Table
	query   Query
	opts    Options
	columns []Column
	total   int
	rows    []Row
}

// NewList фильтрует и форматирует записи. Записи без какого-то поля
// (поле удалили после чтения) дают пустую ячейку.
func NewList(t *schema.Table, records []*schema.Record, q Query, opts Options) *List {
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}
	l := &List{table: t, query: q, opts: opts, total: len(records)}

	visible := t.VisibleFields()
	for _, f := range visible {
		l.columns = append(l.columns, Column{Name: f.Name, Label: Label(f.Name), Type: f.Type})
	}
	l.columns = append(l.columns, Column{Label: "Actions", Actions: true})

	matched := make([]*schema.Record, 0, len(records))
	for _, rec := range records {
		if Matches(t, rec, q) {
			matched = append(matched, rec)
		}
	}
	sortRecords(t, matched, q.Sort, q.Nulls)

	l.rows = make([]Row, 0, len(matched))
	for _, rec := range matched {
		row := Row{ID: rec.ID, Cells: make([]string, len(visible))}
		for i, f := range visible {
			row.Cells[i] = FormatCell(f, rec.Values[f.Name], opts.DateLayout)
		}
		l.rows = append(l.rows, row)
	}
	return l
}

func (l *List) Table() *schema.Table { return l.table }
func (l *List) Query() Query { return l.query }
func (l *List) Columns() []Column { return l.columns }
func (l *List) Rows() []Row { return l.rows }
func (l *List) Total() int { return l.total }

// EmptyState различает «записей ещё нет» и «ничего не нашлось».
func (l *List) EmptyState() EmptyState {
	switch {
	case len(l.rows) > 0:
		return EmptyNone
	case l.total == 0:
		return EmptyNoRecords
	default:
		return EmptyNoMatches
	}
}

// Row ищет отображаемую строку по id (для подтверждения удаления).
func (l *List) Row(id int64) (Row, bool) {
	for _, r := range l.rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}
