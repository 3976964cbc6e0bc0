package render

import (
	"strconv"
	"time"

	"govconnect/internal/schema"
)

const DefaultDateLayout = "02 Jan 2006"

// форматы, в которых дата приходит из формы или API
var dateInputLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// FormatCell - текст ячейки списка. Отсутствующее значение - пустая строка.
func FormatCell(f schema.Field, v any, dateLayout string) string {
	if v == nil {
		return ""
	}
	switch f.Type {
	case schema.TypeBool:
		if b, ok := v.(bool); ok && b {
			return "Yes"
		}
		return "No"
	case schema.TypeDate:
		s := toString(v)
		if dateLayout == "" {
			dateLayout = DefaultDateLayout
		}
		for _, layout := range dateInputLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.Format(dateLayout)
			}
		}
		// дата хранится без разбора; нераспознанную показываем как есть
		return s
	case schema.TypeFloat:
		if n, ok := v.(float64); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return toString(v)
}

// inputValue - значение для value="" поля ввода.
func inputValue(f schema.Field, v any) string {
	if v == nil {
		return ""
	}
	switch f.Type {
	case schema.TypeFloat:
		if n, ok := v.(float64); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	case schema.TypeDate:
		s := toString(v)
		for _, layout := range dateInputLayouts[1:] {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.Format("2006-01-02")
			}
		}
		return s
	}
	return toString(v)
}
