// Package nav публикует динамические таблицы как разделы приложения:
// маршрут для роутера и пункт меню.
package nav

import (
	"sort"
	"strings"
	"sync"

	"govconnect/internal/reference"
	"govconnect/internal/schema"
)

type Section struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Route       string         `json:"route"`
	Icon        string         `json:"icon"`
	Description string         `json:"description,omitempty"`
	TableName   string         `json:"table_name,omitempty"`
	Fields      []schema.Field `json:"fields,omitempty"`
	Order       int            `json:"order"`
	Enabled     bool           `json:"enabled"`
	BuiltIn     bool           `json:"builtin"`
	Component   string         `json:"component,omitempty"`
}

// Path - URL раздела.
func (s Section) Path() string { return "/" + s.Route }

// Meta - то, что реестр схем хранит вместе с таблицей.
func (s Section) Meta() *schema.SectionMeta {
	return &schema.SectionMeta{
		ID:          s.ID,
		Title:       s.Title,
		Route:       s.Route,
		Icon:        s.Icon,
		Description: s.Description,
		Order:       s.Order,
		Enabled:     s.Enabled,
	}
}

type MenuEntry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Icon    string `json:"icon"`
	BuiltIn bool   `json:"builtin"`
}

// Registry - общий для процесса реестр опубликованных разделов.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Section
	byRoute map[string]string // route -> id
	catalog *reference.Catalog
}

func NewRegistry(catalog *reference.Catalog) *Registry {
	if catalog == nil {
		catalog = reference.DefaultCatalog()
	}
	return &Registry{
		byID:    make(map[string]*Section),
		byRoute: make(map[string]string),
		catalog: catalog,
	}
}

// Publish регистрирует раздел. Совпадение маршрута - DuplicateNameError,
// существующий раздел не перекрывается.
func (r *Registry) Publish(s Section) error {
	s.Route = normalizeRoute(s.Route)
	if err := ValidateRoute(s.Route); err != nil {
		return err
	}
	s.Icon = r.catalog.Icon(s.Icon)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; ok {
		return schema.Duplicate("section %q already published", s.ID)
	}
	if _, ok := r.byRoute[s.Route]; ok {
		return schema.Duplicate("route %q is already taken by another section", s.Path())
	}
	cp := s
	r.byID[s.ID] = &cp
	r.byRoute[s.Route] = s.ID
	return nil
}

// Unpublish снимает маршрут и пункт меню одним действием.
func (r *Registry) Unpublish(id string) (Section, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return Section{}, false
	}
	delete(r.byID, id)
	delete(r.byRoute, s.Route)
	return *s, true
}

// Update заменяет раздел с тем же ID; маршрут менять нельзя.
func (r *Registry) Update(s Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[s.ID]
	if !ok {
		return schema.NotFound("section %q not found", s.ID)
	}
	s.Route = cur.Route
	s.Icon = r.catalog.Icon(s.Icon)
	*cur = s
	return nil
}

// Lookup ищет раздел по пути запроса; отключённые разделы не находятся.
func (r *Registry) Lookup(path string) (Section, bool) {
	route := normalizeRoute(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRoute[route]
	if !ok {
		return Section{}, false
	}
	s := r.byID[id]
	if !s.Enabled {
		return Section{}, false
	}
	return *s, true
}

func (r *Registry) Get(id string) (Section, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return Section{}, false
	}
	return *s, true
}

// ByTable - раздел, привязанный к таблице.
func (r *Registry) ByTable(table string) (Section, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byID {
		if s.TableName != "" && strings.EqualFold(s.TableName, table) {
			return *s, true
		}
	}
	return Section{}, false
}

// Sections - все разделы, включая отключённые.
func (r *Registry) Sections() []Section {
	r.mu.RLock()
	out := make([]Section, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, *s)
	}
	r.mu.RUnlock()
	sortSections(out)
	return out
}

func (r *Registry) Menu() []MenuEntry {
	menu := []MenuEntry{}
	for _, s := range r.Sections() {
		if !s.Enabled {
			continue
		}
		menu = append(menu, MenuEntry{ID: s.ID, Title: s.Title, Path: s.Path(), Icon: s.Icon, BuiltIn: s.BuiltIn})
	}
	return menu
}

// Icon - каноническое имя иконки или иконка по умолчанию.
func (r *Registry) Icon(token string) string { return r.catalog.Icon(token) }

func (r *Registry) Icons() []string { return append([]string(nil), r.catalog.Icons...) }

func sortSections(ss []Section) {
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].Order != ss[j].Order {
			return ss[i].Order < ss[j].Order
		}
		if ss[i].Title != ss[j].Title {
			return strings.ToLower(ss[i].Title) < strings.ToLower(ss[j].Title)
		}
		return ss[i].ID < ss[j].ID
	})
}
