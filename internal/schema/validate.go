package schema

import (
	"fmt"
	"strings"
)

type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Lint проверяет определение таблицы перед созданием.
// Пустой результат - определение корректно.
func Lint(t *Table) []Issue {
	var issues []Issue

	name := strings.TrimSpace(t.Name)
	switch {
	case name == "":
		issues = append(issues, Issue{Field: "table_name", Code: "table_name_empty", Message: "table name is required"})
	case !IsIdentifier(name):
		issues = append(issues, Issue{Field: "table_name", Code: "table_name_invalid",
			Message: fmt.Sprintf("invalid table name %q (letters, digits and _ only, not starting with a digit)", name)})
	}

	if len(t.Fields) == 0 {
		issues = append(issues, Issue{Field: "fields", Code: "fields_empty", Message: "at least one field is required"})
	}

	seen := make(map[string]struct{}, len(t.Fields))
	for i, f := range t.Fields {
		fname := strings.TrimSpace(f.Name)
		if fname == "" {
			issues = append(issues, Issue{Field: fmt.Sprintf("fields[%d]", i), Code: "field_name_empty", Message: "field name is required"})
			continue
		}
		if !IsIdentifier(fname) {
			issues = append(issues, Issue{Field: fname, Code: "field_name_invalid", Message: fmt.Sprintf("invalid field name %q", fname)})
			continue
		}
		if IsSystemColumn(fname) {
			issues = append(issues, Issue{Field: fname, Code: "field_name_reserved", Message: fmt.Sprintf("field name %q is reserved", fname)})
			continue
		}
		key := NormalizeName(fname)
		if _, dup := seen[key]; dup {
			issues = append(issues, Issue{Field: fname, Code: "field_name_duplicate", Message: fmt.Sprintf("duplicate field name %q", fname)})
			continue
		}
		seen[key] = struct{}{}

		if _, ok := ParseDataType(string(f.Type)); !ok {
			issues = append(issues, Issue{Field: fname, Code: "data_type_unknown",
				Message: fmt.Sprintf("unknown data type %q (allowed: string|text|int|float|bool|date)", f.Type)})
		}
	}
	return issues
}

// Validate возвращает первую проблему определения как ValidationError
// и приводит имена/типы к каноничному виду.
func (t *Table) Validate() error {
	if issues := Lint(t); len(issues) > 0 {
		it := issues[0]
		return &Error{Kind: KindValidation, Field: it.Field, Message: it.Message}
	}
	t.Name = strings.TrimSpace(t.Name)
	for i := range t.Fields {
		t.Fields[i].Name = strings.TrimSpace(t.Fields[i].Name)
		t.Fields[i].Type, _ = ParseDataType(string(t.Fields[i].Type))
	}
	return nil
}
