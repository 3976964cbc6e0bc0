package nav

import (
	"regexp"
	"strings"

	"govconnect/internal/schema"
)

var spaceRun = regexp.MustCompile(`\s+`)

// маршруты, занятые самим сервером
var reservedRoutes = map[string]bool{
	"api":     true,
	"assets":  true,
	"healthz": true,
}

// Slugify выводит маршрут раздела из заголовка: нижний регистр,
// серии пробелов заменяются дефисом.
func Slugify(title string) (string, error) {
	slug := spaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	if err := ValidateRoute(slug); err != nil {
		return "", err
	}
	return slug, nil
}

func ValidateRoute(route string) error {
	if route == "" {
		return schema.Validation("title", "section title must produce a non-empty route")
	}
	if strings.ContainsAny(route, "/?#") {
		return schema.Validation("title", "route %q must not contain '/', '?' or '#'", route)
	}
	if reservedRoutes[route] {
		return schema.Duplicate("route %q is reserved", route)
	}
	return nil
}

// normalizeRoute приводит путь запроса ("/Farmer-Registry/") к ключу реестра.
func normalizeRoute(path string) string {
	return strings.ToLower(strings.Trim(path, "/"))
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// tableNameFor выводит имя таблицы из маршрута, когда его не задали явно:
// "farmers'-registry" -> "farmers_registry", "2024-survey" -> "t_2024_survey".
func tableNameFor(route string) (string, error) {
	name := strings.Trim(nonIdent.ReplaceAllString(strings.ToLower(route), "_"), "_")
	if name == "" {
		return "", schema.Validation("title", "cannot derive a table name from title; set table_name explicitly")
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name, nil
}
