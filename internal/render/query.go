package render

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"govconnect/internal/schema"
)

type SortKey struct {
	Field string
	Desc  bool
}

// Query - поиск и сортировка списка.
type Query struct {
	Text  string    // подстрока, без учёта регистра
	Field string    // пусто - искать по всем видимым полям
	Sort  []SortKey // пусто - порядок id
	Nulls string    // "last" (default) | "first"
}

// ParseQuery читает ?q=&field=&sort=-name,age&nulls=first.
func ParseQuery(q url.Values) Query {
	var keys []SortKey
	for _, p := range strings.Split(q.Get("sort"), ",") {
		p = strings.TrimSpace(p)
		desc := false
		if strings.HasPrefix(p, "-") {
			desc = true
			p = strings.TrimPrefix(p, "-")
		} else {
			p = strings.TrimPrefix(p, "+")
		}
		if p != "" {
			keys = append(keys, SortKey{Field: p, Desc: desc})
		}
	}

	nulls := strings.ToLower(strings.TrimSpace(q.Get("nulls")))
	if nulls != "first" {
		nulls = "last"
	}
	return Query{
		Text:  strings.TrimSpace(q.Get("q")),
		Field: strings.TrimSpace(q.Get("field")),
		Sort:  keys,
		Nulls: nulls,
	}
}

// Encode - обратное к ParseQuery, для ссылок на странице.
func (q Query) Encode() string {
	v := url.Values{}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	if q.Field != "" {
		v.Set("field", q.Field)
	}
	if len(q.Sort) > 0 {
		parts := make([]string, len(q.Sort))
		for i, k := range q.Sort {
			parts[i] = k.Field
			if k.Desc {
				parts[i] = "-" + k.Field
			}
		}
		v.Set("sort", strings.Join(parts, ","))
	}
	if q.Nulls == "first" {
		v.Set("nulls", "first")
	}
	return v.Encode()
}

// Matches - подходит ли запись под поиск. Неизвестное или скрытое поле
// фильтра не совпадает ни с чем.
func Matches(t *schema.Table, rec *schema.Record, q Query) bool {
	needle := strings.ToLower(q.Text)
	if needle == "" {
		return true
	}
	if q.Field != "" {
		f, ok := t.Field(q.Field)
		if !ok || !f.Visible {
			return false
		}
		return strings.Contains(strings.ToLower(toString(rec.Values[f.Name])), needle)
	}
	for _, f := range t.VisibleFields() {
		if strings.Contains(strings.ToLower(toString(rec.Values[f.Name])), needle) {
			return true
		}
	}
	return false
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isNull(v any, ok bool) bool { return !ok || v == nil }

// cmpByKey сравнивает записи по полю с учётом политики nulls и направления.
func cmpByKey(t *schema.Table, a, b *schema.Record, key string, nulls string, desc bool) int {
	f, known := t.Field(key)
	if !known {
		return 0
	}
	va, oka := a.Values[f.Name]
	vb, okb := b.Values[f.Name]
	na, nb := isNull(va, oka), isNull(vb, okb)
	if na && nb {
		return 0
	}
	if na != nb {
		if (nulls == "last") == na {
			return +1
		}
		return -1
	}

	var rel int
	switch {
	case f.Type.Numeric():
		fa, fb := toFloat(va), toFloat(vb)
		if fa < fb {
			rel = -1
		} else if fa > fb {
			rel = +1
		}
	default:
		rel = strings.Compare(toString(va), toString(vb))
	}
	if desc {
		rel = -rel
	}
	return rel
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// sortRecords - мультисортировка; при равенстве порядок id сохраняется.
func sortRecords(t *schema.Table, records []*schema.Record, keys []SortKey, nulls string) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range keys {
			if c := cmpByKey(t, records[i], records[j], k.Field, nulls, k.Desc); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
