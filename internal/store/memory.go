package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"govconnect/internal/schema"
)

type memTable struct {
	schema *schema.Table
	seq    int64 // последний выданный id; после удаления записи id не переиспользуется
	rows   map[int64]*schema.Record
}

// MemoryStore - in-memory реализация Store (драйвер "memory").
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable // NormalizeName(table) -> таблица
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*memTable),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Setup(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateTable(_ context.Context, t schema.Table) (*schema.Table, error) {
	def := t.Clone()
	if err := def.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := schema.NormalizeName(def.Name)
	if _, exists := s.tables[key]; exists {
		return nil, schema.Duplicate("table %q already exists", def.Name)
	}
	def.CreatedAt = s.now()
	s.tables[key] = &memTable{schema: def, rows: make(map[int64]*schema.Record)}
	return def.Clone(), nil
}

func (s *MemoryStore) ListTables(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.tables))
	for _, mt := range s.tables {
		out = append(out, mt.schema.Name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) GetSchema(_ context.Context, table string) (*schema.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mt, ok := s.tables[schema.NormalizeName(table)]
	if !ok {
		return nil, schema.TableNotFound(table)
	}
	return mt.schema.Clone(), nil
}

func (s *MemoryStore) DeleteField(_ context.Context, table, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tables[schema.NormalizeName(table)]
	if !ok {
		return schema.TableNotFound(table)
	}
	want := schema.NormalizeName(field)
	for i, f := range mt.schema.Fields {
		if schema.NormalizeName(f.Name) == want {
			// значения в записях остаются «осиротевшими», наружу они больше не отдаются
			mt.schema.Fields = append(mt.schema.Fields[:i:i], mt.schema.Fields[i+1:]...)
			return nil
		}
	}
	return schema.NotFound("field %q not found in table %q", field, table)
}

func (s *MemoryStore) DeleteTable(_ context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := schema.NormalizeName(table)
	if _, ok := s.tables[key]; !ok {
		return schema.TableNotFound(table)
	}
	delete(s.tables, key)
	return nil
}

func (s *MemoryStore) SetSection(_ context.Context, table string, meta *schema.SectionMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tables[schema.NormalizeName(table)]
	if !ok {
		return schema.TableNotFound(table)
	}
	if meta == nil {
		mt.schema.Section = nil
		return nil
	}
	m := *meta
	mt.schema.Section = &m
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, table string, values map[string]any) (*schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tables[schema.NormalizeName(table)]
	if !ok {
		return nil, schema.TableNotFound(table)
	}
	now := s.now()
	mt.seq++
	rec := &schema.Record{
		ID:        mt.seq,
		CreatedAt: now,
		UpdatedAt: now,
		Values:    schema.CoerceValues(mt.schema, values),
	}
	mt.rows[rec.ID] = rec
	return project(mt.schema, rec, false), nil
}

func (s *MemoryStore) List(_ context.Context, table string, opts ListOptions) ([]*schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mt, ok := s.tables[schema.NormalizeName(table)]
	if !ok {
		return nil, schema.TableNotFound(table)
	}
	out := make([]*schema.Record, 0, len(mt.rows))
	for _, rec := range mt.rows {
		out = append(out, project(mt.schema, rec, opts.UIOnly))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, table string, id int64) (*schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mt, ok := s.tables[schema.NormalizeName(table)]
	if !ok {
		return nil, schema.TableNotFound(table)
	}
	rec, ok := mt.rows[id]
	if !ok {
		return nil, RecordNotFound(table, id)
	}
	return project(mt.schema, rec, false), nil
}

func (s *MemoryStore) Update(_ context.Context, table string, id int64, values map[string]any) (*schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tables[schema.NormalizeName(table)]
	if !ok {
		return nil, schema.TableNotFound(table)
	}
	rec, ok := mt.rows[id]
	if !ok {
		return nil, RecordNotFound(table, id)
	}
	// полная замена значений текущих полей; last write wins
	next := make(map[string]any, len(rec.Values))
	for k, v := range rec.Values {
		next[k] = v
	}
	for k, v := range schema.CoerceValues(mt.schema, values) {
		next[k] = v
	}
	rec.Values = next
	rec.UpdatedAt = s.now()
	return project(mt.schema, rec, false), nil
}

func (s *MemoryStore) Delete(_ context.Context, table string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tables[schema.NormalizeName(table)]
	if !ok {
		return schema.TableNotFound(table)
	}
	if _, ok := mt.rows[id]; !ok {
		return RecordNotFound(table, id)
	}
	delete(mt.rows, id)
	return nil
}

// project - копия записи с проекцией по текущей схеме.
func project(t *schema.Table, rec *schema.Record, uiOnly bool) *schema.Record {
	return &schema.Record{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Values:    Project(t, rec.Values, uiOnly),
	}
}
