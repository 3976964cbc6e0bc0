package schema

import (
	"regexp"
	"strings"
)

// только безопасные SQL-идентификаторы
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// системные колонки каждой динамической таблицы
var systemColumns = map[string]struct{}{
	"id": {}, "created_at": {}, "updated_at": {},
}

// IsIdentifier проверяет имя таблицы/поля.
func IsIdentifier(s string) bool { return identRe.MatchString(s) }

// IsSystemColumn - имя занято служебной колонкой.
func IsSystemColumn(s string) bool {
	_, ok := systemColumns[strings.ToLower(s)]
	return ok
}

// NormalizeName - ключ для сравнения имён: пробелы по краям срезаны, регистр не важен.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
