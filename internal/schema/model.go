package schema

import (
	"strings"
	"time"
)

// DataType - объявленный тип поля динамической таблицы.
type DataType string

const (
	TypeString DataType = "string"
	TypeText   DataType = "text"
	TypeInt    DataType = "int"
	TypeFloat  DataType = "float"
	TypeBool   DataType = "bool"
	TypeDate   DataType = "date"
)

// DataTypes - все допустимые типы в порядке показа в админке.
var DataTypes = []DataType{TypeString, TypeText, TypeInt, TypeFloat, TypeBool, TypeDate}

// ParseDataType нормализует строку из запроса ("Int", " float ") к DataType.
func ParseDataType(s string) (DataType, bool) {
	t := DataType(strings.ToLower(strings.TrimSpace(s)))
	for _, dt := range DataTypes {
		if dt == t {
			return t, true
		}
	}
	return "", false
}

// Numeric - int или float.
func (t DataType) Numeric() bool { return t == TypeInt || t == TypeFloat }

// Field описывает одну колонку динамической таблицы
type Field struct {
	Name     string   `json:"name" yaml:"name"`
	Type     DataType `json:"type" yaml:"type"`
	Required bool     `json:"required" yaml:"required"`
	Visible  bool     `json:"visible" yaml:"visible"` // show_ui: false = скрытая колонка
}

// SectionMeta - данные навигационного раздела, привязанного к таблице.
// Реестр схем их только хранит (чтобы после рестарта восстановить меню), но не интерпретирует.
type SectionMeta struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Route       string `json:"route"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Enabled     bool   `json:"enabled"`
}

// Table описывает схему динамической таблицы
type Table struct {
	Name      string       `json:"table_name"`
	Fields    []Field      `json:"fields"`
	CreatedAt time.Time    `json:"created_at"`
	Section   *SectionMeta `json:"section,omitempty"`
}

// Field ищет поле по имени (регистронезависимо, как и в SQL).
func (t *Table) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// VisibleFields - поля с show_ui=true в порядке схемы.
func (t *Table) VisibleFields() []Field {
	out := make([]Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}

// Clone - глубокая копия, чтобы наружу не утекали внутренние срезы хранилища.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := *t
	c.Fields = append([]Field(nil), t.Fields...)
	if t.Section != nil {
		s := *t.Section
		c.Section = &s
	}
	return &c
}

// Record - одна строка динамической таблицы.
type Record struct {
	ID        int64          `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Values    map[string]any `json:"values"`
}

// Flatten отдаёт запись «плоско»: {id, ...values}.
// Пользовательские поля не могут перетереть id - такие имена зарезервированы.
func (r *Record) Flatten() map[string]any {
	out := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out["id"] = r.ID
	return out
}
