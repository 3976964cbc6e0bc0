// Package store описывает реестр схем динамических таблиц и хранилище их записей.
package store

import (
	"context"
	"fmt"

	"govconnect/internal/schema"
)

// Registry - единственный источник правды о том, какие таблицы и поля существуют.
// О навигации реестр не знает: SectionMeta он только сохраняет.
type Registry interface {
	// Setup идемпотентно готовит служебные структуры хранения ("Initialize DB").
	Setup(ctx context.Context) error
	CreateTable(ctx context.Context, t schema.Table) (*schema.Table, error)
	ListTables(ctx context.Context) ([]string, error)
	GetSchema(ctx context.Context, table string) (*schema.Table, error)
	DeleteField(ctx context.Context, table, field string) error
	DeleteTable(ctx context.Context, table string) error
	// SetSection сохраняет (или при nil - снимает) метаданные раздела таблицы.
	SetSection(ctx context.Context, table string, meta *schema.SectionMeta) error
}

type ListOptions struct {
	// UIOnly - вернуть только поля с show_ui=true (скрытые поля вырезаются из ответа).
	UIOnly bool
}

// Records - CRUD записей в пространстве имён одной таблицы.
type Records interface {
	Insert(ctx context.Context, table string, values map[string]any) (*schema.Record, error)
	List(ctx context.Context, table string, opts ListOptions) ([]*schema.Record, error)
	Get(ctx context.Context, table string, id int64) (*schema.Record, error)
	Update(ctx context.Context, table string, id int64, values map[string]any) (*schema.Record, error)
	Delete(ctx context.Context, table string, id int64) error
}

type Store interface {
	Registry
	Records
	Close() error
}

// Project оставляет в значениях записи только поля текущей схемы
// (с uiOnly - только видимые). Значения удалённых полей не отдаются.
func Project(t *schema.Table, values map[string]any, uiOnly bool) map[string]any {
	out := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		if uiOnly && !f.Visible {
			continue
		}
		out[f.Name] = values[f.Name]
	}
	return out
}

func RecordNotFound(table string, id int64) *schema.Error {
	return &schema.Error{Kind: schema.KindNotFound, Field: "id", Message: fmt.Sprintf("record %d not found in table %q", id, table)}
}
