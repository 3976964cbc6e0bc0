package sqlstore

import (
	"fmt"
	"strings"

	"govconnect/internal/schema"
)

// префикс физических таблиц: пользовательское имя не пересекается
// ни со служебными таблицами, ни с ключевыми словами SQL
const tablePrefix = "dt_"

func sqlIdent(s string) string { return `"` + strings.ToLower(s) + `"` }

func physicalTable(name string) string { return sqlIdent(tablePrefix + schema.NormalizeName(name)) }

func mapType(f schema.Field) (string, error) {
	switch f.Type {
	case schema.TypeString, schema.TypeText:
		return "text", nil
	case schema.TypeInt:
		return "bigint", nil
	case schema.TypeFloat:
		return "double precision", nil
	case schema.TypeBool:
		return "boolean", nil
	case schema.TypeDate:
		// дата хранится строкой без разбора, поэтому text, а не date
		return "text", nil
	default:
		return "", fmt.Errorf("unknown type: %s", f.Type)
	}
}

// metaDDL - служебные таблицы реестра схем.
func metaDDL(d Dialect) []string {
	return []string{
		fmt.Sprintf(`create table if not exists "dynamic_tables" (
  "table_key" text primary key,
  "table_name" text not null,
  "created_at" %s not null,
  "section_id" text,
  "section_title" text,
  "section_route" text,
  "section_icon" text,
  "section_description" text,
  "section_order" integer not null default 0,
  "section_enabled" boolean not null default false
)`, d.Timestamp),
		`create table if not exists "dynamic_table_meta" (
  "table_key" text not null,
  "field_key" text not null,
  "field_name" text not null,
  "position" integer not null,
  "data_type" text not null,
  "required" boolean not null default false,
  "show_ui" boolean not null default true,
  primary key ("table_key", "field_key")
)`,
	}
}

// createTableDDL - CREATE TABLE для динамической таблицы: системные колонки + поля схемы.
// NOT NULL не ставим: required проверяется только формой.
func createTableDDL(d Dialect, t *schema.Table) (string, error) {
	cols := []string{
		`"id" ` + d.SerialPK,
		`"created_at" ` + d.Timestamp + ` not null`,
		`"updated_at" ` + d.Timestamp + ` not null`,
	}
	for _, f := range t.Fields {
		typ, err := mapType(f)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
		}
		cols = append(cols, fmt.Sprintf("%s %s null", sqlIdent(f.Name), typ))
	}
	return fmt.Sprintf("create table %s (\n  %s\n)", physicalTable(t.Name), strings.Join(cols, ",\n  ")), nil
}

func dropTableDDL(name string) string {
	return "drop table if exists " + physicalTable(name)
}
