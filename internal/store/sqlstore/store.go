// Package sqlstore - реализация store.Store поверх database/sql:
// PostgreSQL (pgx) или SQLite (modernc). Каждая динамическая таблица - настоящая
// SQL-таблица с типизированными колонками; схема хранится в dynamic_tables/dynamic_table_meta.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"govconnect/internal/schema"
	"govconnect/internal/store"
)

type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB, d Dialect, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:      db,
		dialect: d,
		log:     log.Named("sqlstore").With(zap.String("dialect", d.Name)),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OpenStore открывает пул и готовит служебные таблицы.
func OpenStore(ctx context.Context, d Dialect, dsn string, log *zap.Logger) (*Store, error) {
	db, err := Open(d, dsn)
	if err != nil {
		return nil, err
	}
	s := New(db, d, log)
	if err := s.Setup(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Setup(ctx context.Context) error {
	return ApplyDDL(ctx, s.db, s.log, metaDDL(s.dialect))
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	return classify(tx.Commit())
}

func (s *Store) CreateTable(ctx context.Context, t schema.Table) (*schema.Table, error) {
	def := t.Clone()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	ddl, err := createTableDDL(s.dialect, def)
	if err != nil {
		return nil, schema.Validation("data_types", "%v", err)
	}
	def.CreatedAt = s.now()
	key := schema.NormalizeName(def.Name)

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `select 1 from "dynamic_tables" where "table_key" = $1`, key).Scan(&one)
		switch {
		case err == nil:
			return schema.Duplicate("table %q already exists", def.Name)
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			if isUniqueViolation(err) {
				return schema.Duplicate("table %q already exists", def.Name)
			}
			return err
		}
		for i, f := range def.Fields {
			if _, err := tx.ExecContext(ctx,
				`insert into "dynamic_table_meta" ("table_key","field_key","field_name","position","data_type","required","show_ui")
				 values ($1,$2,$3,$4,$5,$6,$7)`,
				key, schema.NormalizeName(f.Name), f.Name, i, string(f.Type), f.Required, f.Visible); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`insert into "dynamic_tables" ("table_key","table_name","created_at") values ($1,$2,$3)`,
			key, def.Name, def.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				return schema.Duplicate("table %q already exists", def.Name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("dynamic table created", zap.String("table", def.Name), zap.Int("fields", len(def.Fields)))
	return def, nil
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select "table_name" from "dynamic_tables" order by "table_key"`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify(err)
		}
		out = append(out, name)
	}
	return out, classify(rows.Err())
}

func (s *Store) GetSchema(ctx context.Context, table string) (*schema.Table, error) {
	t, err := loadSchema(ctx, s.db, table)
	return t, classify(err)
}

func loadSchema(ctx context.Context, q querier, table string) (*schema.Table, error) {
	key := schema.NormalizeName(table)

	var (
		name                              string
		created                           any
		sid, stitle, sroute, sicon, sdesc sql.NullString
		sorder                            int
		senabled                          bool
	)
	err := q.QueryRowContext(ctx,
		`select "table_name","created_at","section_id","section_title","section_route","section_icon",
		        "section_description","section_order","section_enabled"
		   from "dynamic_tables" where "table_key" = $1`, key).
		Scan(&name, &created, &sid, &stitle, &sroute, &sicon, &sdesc, &sorder, &senabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, schema.TableNotFound(table)
	}
	if err != nil {
		return nil, err
	}

	t := &schema.Table{Name: name, CreatedAt: parseTime(created), Fields: []schema.Field{}}
	if sid.Valid {
		t.Section = &schema.SectionMeta{
			ID:          sid.String,
			Title:       stitle.String,
			Route:       sroute.String,
			Icon:        sicon.String,
			Description: sdesc.String,
			Order:       sorder,
			Enabled:     senabled,
		}
	}

	rows, err := q.QueryContext(ctx,
		`select "field_name","data_type","required","show_ui" from "dynamic_table_meta"
		  where "table_key" = $1 order by "position"`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			f  schema.Field
			dt string
		)
		if err := rows.Scan(&f.Name, &dt, &f.Required, &f.Visible); err != nil {
			return nil, err
		}
		f.Type = schema.DataType(dt)
		t.Fields = append(t.Fields, f)
	}
	return t, rows.Err()
}

func (s *Store) DeleteField(ctx context.Context, table, field string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := loadSchema(ctx, tx, table); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`delete from "dynamic_table_meta" where "table_key" = $1 and "field_key" = $2`,
			schema.NormalizeName(table), schema.NormalizeName(field))
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return schema.NotFound("field %q not found in table %q", field, table)
		}
		// колонка остаётся: значения «осиротели», но не удаляются
		return nil
	})
}

func (s *Store) DeleteTable(ctx context.Context, table string) error {
	key := schema.NormalizeName(table)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `delete from "dynamic_tables" where "table_key" = $1`, key)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return schema.TableNotFound(table)
		}
		if _, err := tx.ExecContext(ctx, `delete from "dynamic_table_meta" where "table_key" = $1`, key); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, dropTableDDL(table))
		return err
	})
	if err == nil {
		s.log.Info("dynamic table dropped", zap.String("table", table))
	}
	return err
}

func (s *Store) SetSection(ctx context.Context, table string, meta *schema.SectionMeta) error {
	var (
		id, title, route, icon, desc any
		order                        int
		enabled                      bool
	)
	if meta != nil {
		id, title, route, icon, desc = meta.ID, meta.Title, meta.Route, meta.Icon, meta.Description
		order, enabled = meta.Order, meta.Enabled
	}
	res, err := s.db.ExecContext(ctx,
		`update "dynamic_tables" set "section_id" = $1, "section_title" = $2, "section_route" = $3,
		        "section_icon" = $4, "section_description" = $5, "section_order" = $6, "section_enabled" = $7
		  where "table_key" = $8`,
		id, title, route, icon, desc, order, enabled, schema.NormalizeName(table))
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schema.TableNotFound(table)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, table string, values map[string]any) (*schema.Record, error) {
	var rec *schema.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := loadSchema(ctx, tx, table)
		if err != nil {
			return err
		}
		now := s.now()
		rec = &schema.Record{CreatedAt: now, UpdatedAt: now, Values: schema.CoerceValues(t, values)}

		cols := []string{`"created_at"`, `"updated_at"`}
		args := []any{now, now}
		for _, f := range t.Fields {
			cols = append(cols, sqlIdent(f.Name))
			args = append(args, rec.Values[f.Name])
		}
		q := fmt.Sprintf(`insert into %s (%s) values (%s) returning "id"`,
			physicalTable(t.Name), strings.Join(cols, ","), placeholders(1, len(args)))
		return tx.QueryRowContext(ctx, q, args...).Scan(&rec.ID)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, table string, opts store.ListOptions) ([]*schema.Record, error) {
	t, err := loadSchema(ctx, s.db, table)
	if err != nil {
		return nil, classify(err)
	}
	rows, err := s.db.QueryContext(ctx, selectSQL(t)+` order by "id"`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []*schema.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, t)
		if err != nil {
			return nil, classify(err)
		}
		rec.Values = store.Project(t, rec.Values, opts.UIOnly)
		out = append(out, rec)
	}
	return out, classify(rows.Err())
}

func (s *Store) Get(ctx context.Context, table string, id int64) (*schema.Record, error) {
	t, err := loadSchema(ctx, s.db, table)
	if err != nil {
		return nil, classify(err)
	}
	rows, err := s.db.QueryContext(ctx, selectSQL(t)+` where "id" = $1`, id)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, classify(err)
		}
		return nil, store.RecordNotFound(t.Name, id)
	}
	rec, err := scanRecord(rows, t)
	return rec, classify(err)
}

func (s *Store) Update(ctx context.Context, table string, id int64, values map[string]any) (*schema.Record, error) {
	var rec *schema.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := loadSchema(ctx, tx, table)
		if err != nil {
			return err
		}
		now := s.now()
		coerced := schema.CoerceValues(t, values)

		sets := []string{`"updated_at" = $1`}
		args := []any{now}
		for _, f := range t.Fields {
			args = append(args, coerced[f.Name])
			sets = append(sets, fmt.Sprintf("%s = $%d", sqlIdent(f.Name), len(args)))
		}
		args = append(args, id)
		q := fmt.Sprintf(`update %s set %s where "id" = $%d`, physicalTable(t.Name), strings.Join(sets, ", "), len(args))
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.RecordNotFound(t.Name, id)
		}

		rows, err := tx.QueryContext(ctx, selectSQL(t)+` where "id" = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return store.RecordNotFound(t.Name, id)
		}
		rec, err = scanRecord(rows, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, table string, id int64) error {
	t, err := loadSchema(ctx, s.db, table)
	if err != nil {
		return classify(err)
	}
	res, err := s.db.ExecContext(ctx, `delete from `+physicalTable(t.Name)+` where "id" = $1`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.RecordNotFound(t.Name, id)
	}
	return nil
}

func selectSQL(t *schema.Table) string {
	cols := []string{`"id"`, `"created_at"`, `"updated_at"`}
	for _, f := range t.Fields {
		cols = append(cols, sqlIdent(f.Name))
	}
	return fmt.Sprintf("select %s from %s", strings.Join(cols, ","), physicalTable(t.Name))
}

func scanRecord(rows *sql.Rows, t *schema.Table) (*schema.Record, error) {
	var (
		id               int64
		created, updated any
	)
	raw := make([]any, len(t.Fields))
	dest := []any{&id, &created, &updated}
	for i := range raw {
		dest = append(dest, &raw[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	rec := &schema.Record{
		ID:        id,
		CreatedAt: parseTime(created),
		UpdatedAt: parseTime(updated),
		Values:    make(map[string]any, len(t.Fields)),
	}
	for i, f := range t.Fields {
		rec.Values[f.Name] = schema.FromStorage(f, raw[i])
	}
	return rec, nil
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ",")
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

// parseTime - sqlite может вернуть время строкой, pgx - time.Time.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case []byte:
		return parseTime(string(t))
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC()
			}
		}
	case int64:
		return time.Unix(t, 0).UTC()
	}
	return time.Time{}
}
