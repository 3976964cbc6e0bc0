package nav

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"govconnect/internal/reference"
	"govconnect/internal/schema"
	"govconnect/internal/store"
)

// SectionInput - запрос «создать динамический раздел».
type SectionInput struct {
	Title       string         `json:"title"`
	Icon        string         `json:"icon"`
	Description string         `json:"description"`
	TableName   string         `json:"table_name"`
	Fields      []schema.Field `json:"fields"`
	Order       int            `json:"order"`
	Enabled     *bool          `json:"enabled,omitempty"`
}

// SectionPatch - изменяемые свойства раздела; nil - не трогать.
type SectionPatch struct {
	Title       *string `json:"title,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

type RemoveOptions struct {
	// KeepTable оставляет таблицу и записи; таблица становится «сиротой».
	KeepTable bool
}

// Binder связывает реестр схем и реестр навигации: раздел и его таблица
// создаются и удаляются вместе.
type Binder struct {
	reg     *Registry
	schemas store.Registry
	catalog *reference.Catalog
	log     *zap.Logger

	mu      sync.Mutex // сериализует создание/удаление и генератор ID
	entropy io.Reader
}

func NewBinder(reg *Registry, schemas store.Registry, catalog *reference.Catalog, log *zap.Logger) *Binder {
	if catalog == nil {
		catalog = reg.catalog
	}
	if log == nil {
		log = zap.NewNop()
	}
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Binder{
		reg:     reg,
		schemas: schemas,
		catalog: catalog,
		log:     log.Named("nav"),
		entropy: ulid.Monotonic(src, 0),
	}
}

func (b *Binder) Registry() *Registry { return b.reg }

func (b *Binder) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), b.entropy).String()
}

// Boot наполняет реестр: сначала встроенные разделы справочника,
// затем все таблицы, у которых сохранены метаданные раздела.
func (b *Binder) Boot(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, bs := range b.catalog.Sections {
		s := Section{
			ID:          bs.Key,
			Title:       bs.Title,
			Route:       bs.Route,
			Icon:        bs.Icon,
			Description: bs.Description,
			Order:       bs.Order,
			Enabled:     bs.Enabled,
			BuiltIn:     true,
			Component:   bs.Component,
		}
		if err := b.reg.Publish(s); err != nil {
			return err
		}
	}

	names, err := b.schemas.ListTables(ctx)
	if err != nil {
		return err
	}
	published := 0
	for _, name := range names {
		t, err := b.schemas.GetSchema(ctx, name)
		if err != nil {
			return err
		}
		if t.Section == nil {
			continue
		}
		s := fromMeta(t)
		if err := b.reg.Publish(s); err != nil {
			// коллизия в сохранённых данных не должна валить запуск
			b.log.Warn("section skipped on boot", zap.String("table", t.Name), zap.String("route", s.Route), zap.Error(err))
			continue
		}
		published++
	}
	b.log.Info("navigation registry populated",
		zap.Int("builtin", len(b.catalog.Sections)), zap.Int("dynamic", published))
	return nil
}

func fromMeta(t *schema.Table) Section {
	m := t.Section
	return Section{
		ID:          m.ID,
		Title:       m.Title,
		Route:       m.Route,
		Icon:        m.Icon,
		Description: m.Description,
		TableName:   t.Name,
		Fields:      t.Fields,
		Order:       m.Order,
		Enabled:     m.Enabled,
	}
}

// CreateSection создаёт таблицу и публикует раздел одной логической операцией:
// при любой ошибке после создания таблицы таблица удаляется.
func (b *Binder) CreateSection(ctx context.Context, in SectionInput) (Section, error) {
	route, err := Slugify(in.Title)
	if err != nil {
		return Section{}, err
	}
	tableName := strings.TrimSpace(in.TableName)
	if tableName == "" {
		if tableName, err = tableNameFor(route); err != nil {
			return Section{}, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.routeTaken(route) {
		return Section{}, schema.Duplicate("route %q is already taken by another section", "/"+route)
	}

	tbl, err := b.schemas.CreateTable(ctx, schema.Table{Name: tableName, Fields: in.Fields})
	if err != nil {
		return Section{}, err
	}

	s := Section{
		ID:          b.newID(),
		Title:       strings.TrimSpace(in.Title),
		Route:       route,
		Icon:        b.catalog.Icon(in.Icon),
		Description: in.Description,
		TableName:   tbl.Name,
		Fields:      tbl.Fields,
		Order:       in.Order,
		Enabled:     in.Enabled == nil || *in.Enabled,
	}
	if err := b.schemas.SetSection(ctx, tbl.Name, s.Meta()); err != nil {
		b.rollback(ctx, tbl.Name, err)
		return Section{}, err
	}
	if err := b.reg.Publish(s); err != nil {
		b.rollback(ctx, tbl.Name, err)
		return Section{}, err
	}
	b.log.Info("section created", zap.String("id", s.ID), zap.String("route", s.Path()), zap.String("table", s.TableName))
	return s, nil
}

// routeTaken учитывает и отключённые разделы: Lookup их не видит.
func (b *Binder) routeTaken(route string) bool {
	for _, s := range b.reg.Sections() {
		if s.Route == route {
			return true
		}
	}
	return false
}

func (b *Binder) rollback(ctx context.Context, table string, cause error) {
	if err := b.schemas.DeleteTable(ctx, table); err != nil {
		b.log.Error("section rollback failed", zap.String("table", table), zap.NamedError("cause", cause), zap.Error(err))
		return
	}
	b.log.Warn("section creation rolled back", zap.String("table", table), zap.Error(cause))
}

// UpdateSection меняет заголовок, иконку, описание, порядок и включённость.
// Маршрут неизменен: он выведен при создании.
func (b *Binder) UpdateSection(ctx context.Context, id string, p SectionPatch) (Section, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.reg.Get(id)
	if !ok {
		return Section{}, schema.NotFound("section %q not found", id)
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Section{}, schema.Validation("title", "title must not be empty")
		}
		s.Title = title
	}
	if p.Icon != nil {
		s.Icon = b.catalog.Icon(*p.Icon)
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Order != nil {
		s.Order = *p.Order
	}
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}

	if !s.BuiltIn && s.TableName != "" {
		if err := b.schemas.SetSection(ctx, s.TableName, s.Meta()); err != nil {
			return Section{}, err
		}
	}
	if err := b.reg.Update(s); err != nil {
		return Section{}, err
	}
	return s, nil
}

// RemoveSection снимает раздел с роутера и меню и по умолчанию удаляет таблицу.
func (b *Binder) RemoveSection(ctx context.Context, id string, opts RemoveOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.reg.Get(id)
	if !ok {
		return schema.NotFound("section %q not found", id)
	}
	if s.BuiltIn {
		return schema.Validation("id", "built-in section %q cannot be removed", s.Title)
	}

	if s.TableName != "" {
		var err error
		if opts.KeepTable {
			err = b.schemas.SetSection(ctx, s.TableName, nil)
		} else {
			err = b.schemas.DeleteTable(ctx, s.TableName)
		}
		// таблицу уже удалили в обход раздела
		if err != nil && !errors.Is(err, schema.ErrNotFound) {
			return err
		}
	}
	b.reg.Unpublish(id)
	b.log.Info("section removed", zap.String("id", id), zap.String("table", s.TableName), zap.Bool("keep_table", opts.KeepTable))
	return nil
}

// TableDropped - таблицу удалили напрямую через реестр схем; раздел снимается следом.
func (b *Binder) TableDropped(table string) {
	if s, ok := b.reg.ByTable(table); ok {
		b.reg.Unpublish(s.ID)
		b.log.Info("section unpublished with its table", zap.String("id", s.ID), zap.String("table", table))
	}
}

// FieldDropped обновляет копию полей в опубликованном разделе.
func (b *Binder) FieldDropped(ctx context.Context, table string) error {
	s, ok := b.reg.ByTable(table)
	if !ok {
		return nil
	}
	t, err := b.schemas.GetSchema(ctx, table)
	if err != nil {
		return err
	}
	s.Fields = t.Fields
	return b.reg.Update(s)
}

// Orphans - таблицы без раздела.
func (b *Binder) Orphans(ctx context.Context) ([]string, error) {
	names, err := b.schemas.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, name := range names {
		if _, ok := b.reg.ByTable(name); !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}
