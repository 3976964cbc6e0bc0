// Package storetest - общий контрактный набор тестов для реализаций store.Store.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govconnect/internal/schema"
	"govconnect/internal/store"
)

// Factory создаёт пустое, готовое к работе хранилище.
type Factory func(t *testing.T) store.Store

func farmers() schema.Table {
	return schema.Table{Name: "farmers", Fields: []schema.Field{
		{Name: "name", Type: schema.TypeString, Required: true, Visible: true},
		{Name: "plotSize", Type: schema.TypeFloat, Required: true, Visible: true},
	}}
}

func citizens() schema.Table {
	return schema.Table{Name: "citizen_records", Fields: []schema.Field{
		{Name: "name", Type: schema.TypeString, Visible: true},
		{Name: "age", Type: schema.TypeInt, Visible: true},
		{Name: "disease", Type: schema.TypeText, Visible: false},
		{Name: "visit_date", Type: schema.TypeDate, Visible: true},
		{Name: "insured", Type: schema.TypeBool, Visible: true},
	}}
}

// Run прогоняет контракт Registry + Records.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("schema round trip", func(t *testing.T) {
		s := newStore(t)
		want := citizens()
		_, err := s.CreateTable(ctx, want)
		require.NoError(t, err)

		got, err := s.GetSchema(ctx, "citizen_records")
		require.NoError(t, err)
		assert.Equal(t, "citizen_records", got.Name)
		if diff := cmp.Diff(want.Fields, got.Fields); diff != "" {
			t.Fatalf("fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("create table errors", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, farmers())
		require.NoError(t, err)

		_, err = s.CreateTable(ctx, farmers())
		assert.True(t, errors.Is(err, schema.ErrDuplicateName), "got %v", err)

		_, err = s.CreateTable(ctx, schema.Table{Name: "empty"})
		assert.True(t, errors.Is(err, schema.ErrValidation), "got %v", err)

		_, err = s.CreateTable(ctx, schema.Table{Name: "dups", Fields: []schema.Field{
			{Name: "a", Type: schema.TypeString}, {Name: "a", Type: schema.TypeInt},
		}})
		assert.True(t, errors.Is(err, schema.ErrValidation), "got %v", err)

		names, err := s.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"farmers"}, names)
	})

	t.Run("farmers scenario", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, farmers())
		require.NoError(t, err)

		ravi, err := s.Insert(ctx, "farmers", map[string]any{"name": "Ravi", "plotSize": "4.5"})
		require.NoError(t, err)
		assert.Equal(t, 4.5, ravi.Values["plotSize"])

		anu, err := s.Insert(ctx, "farmers", map[string]any{"name": "Anu", "plotSize": ""})
		require.NoError(t, err)
		assert.Equal(t, 0.0, anu.Values["plotSize"])
		assert.Greater(t, anu.ID, ravi.ID)

		recs, err := s.List(ctx, "farmers", store.ListOptions{})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, ravi.ID, recs[0].ID)
		assert.Equal(t, "Ravi", recs[0].Values["name"])
		assert.Equal(t, 4.5, recs[0].Values["plotSize"])
		assert.Equal(t, 0.0, recs[1].Values["plotSize"])
	})

	t.Run("coercion defaults to zero", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, citizens())
		require.NoError(t, err)

		rec, err := s.Insert(ctx, "citizen_records", map[string]any{
			"name": "Ramesh", "age": "not-a-number", "visit_date": "2026-01-15", "insured": "on",
		})
		require.NoError(t, err)

		got, err := s.Get(ctx, "citizen_records", rec.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Values["age"])
		assert.Equal(t, "2026-01-15", got.Values["visit_date"])
		assert.Equal(t, true, got.Values["insured"])
		assert.Nil(t, got.Values["disease"])
	})

	t.Run("hidden field projection", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, citizens())
		require.NoError(t, err)
		_, err = s.Insert(ctx, "citizen_records", map[string]any{
			"name": "Ramesh", "age": 45, "disease": "Hypertension", "visit_date": "2026-01-15",
		})
		require.NoError(t, err)

		ui, err := s.List(ctx, "citizen_records", store.ListOptions{UIOnly: true})
		require.NoError(t, err)
		require.Len(t, ui, 1)
		assert.NotContains(t, ui[0].Values, "disease")
		assert.Equal(t, int64(45), ui[0].Values["age"])

		full, err := s.List(ctx, "citizen_records", store.ListOptions{})
		require.NoError(t, err)
		require.Len(t, full, 1)
		assert.Equal(t, "Hypertension", full[0].Values["disease"])
	})

	t.Run("update and delete", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, farmers())
		require.NoError(t, err)
		rec, err := s.Insert(ctx, "farmers", map[string]any{"name": "Ravi", "plotSize": 1})
		require.NoError(t, err)

		upd, err := s.Update(ctx, "farmers", rec.ID, map[string]any{"name": "Ravi K", "plotSize": "2.5"})
		require.NoError(t, err)
		assert.Equal(t, "Ravi K", upd.Values["name"])
		assert.Equal(t, 2.5, upd.Values["plotSize"])

		// полная замена: не переданное поле сбрасывается
		upd, err = s.Update(ctx, "farmers", rec.ID, map[string]any{"plotSize": 3})
		require.NoError(t, err)
		assert.Nil(t, upd.Values["name"])

		_, err = s.Update(ctx, "farmers", 999, map[string]any{"name": "x"})
		assert.True(t, errors.Is(err, schema.ErrNotFound), "got %v", err)

		require.NoError(t, s.Delete(ctx, "farmers", rec.ID))
		err = s.Delete(ctx, "farmers", rec.ID)
		assert.True(t, errors.Is(err, schema.ErrNotFound), "got %v", err)
		_, err = s.Get(ctx, "farmers", rec.ID)
		assert.True(t, errors.Is(err, schema.ErrNotFound), "got %v", err)

		// id не переиспользуется после удаления
		next, err := s.Insert(ctx, "farmers", map[string]any{"name": "Anu"})
		require.NoError(t, err)
		assert.Greater(t, next.ID, rec.ID)
	})

	t.Run("delete field orphans values", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, citizens())
		require.NoError(t, err)
		rec, err := s.Insert(ctx, "citizen_records", map[string]any{"name": "Ramesh", "disease": "Flu"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteField(ctx, "citizen_records", "disease"))
		err = s.DeleteField(ctx, "citizen_records", "disease")
		assert.True(t, errors.Is(err, schema.ErrNotFound), "got %v", err)
		err = s.DeleteField(ctx, "ghost", "name")
		assert.True(t, errors.Is(err, schema.ErrNotFound), "got %v", err)

		sc, err := s.GetSchema(ctx, "citizen_records")
		require.NoError(t, err)
		_, has := sc.Field("disease")
		assert.False(t, has)

		got, err := s.Get(ctx, "citizen_records", rec.ID)
		require.NoError(t, err)
		assert.NotContains(t, got.Values, "disease")
		assert.Equal(t, "Ramesh", got.Values["name"])
	})

	t.Run("deletion finality", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, farmers())
		require.NoError(t, err)
		_, err = s.Insert(ctx, "farmers", map[string]any{"name": "Ravi"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteTable(ctx, "farmers"))

		_, err = s.List(ctx, "farmers", store.ListOptions{})
		assert.True(t, errors.Is(err, schema.ErrNotFound), "list: %v", err)
		_, err = s.Insert(ctx, "farmers", map[string]any{"name": "Anu"})
		assert.True(t, errors.Is(err, schema.ErrNotFound), "insert: %v", err)
		_, err = s.GetSchema(ctx, "farmers")
		assert.True(t, errors.Is(err, schema.ErrNotFound), "schema: %v", err)
		err = s.DeleteTable(ctx, "farmers")
		assert.True(t, errors.Is(err, schema.ErrNotFound), "delete: %v", err)
	})

	t.Run("empty table lists empty", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, farmers())
		require.NoError(t, err)
		recs, err := s.List(ctx, "farmers", store.ListOptions{UIOnly: true})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("section meta persisted", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTable(ctx, farmers())
		require.NoError(t, err)

		meta := &schema.SectionMeta{ID: "01J0", Title: "Farmer Registry", Route: "/farmer-registry", Icon: "Sprout", Order: 3, Enabled: true}
		require.NoError(t, s.SetSection(ctx, "farmers", meta))
		sc, err := s.GetSchema(ctx, "farmers")
		require.NoError(t, err)
		require.NotNil(t, sc.Section)
		assert.Equal(t, *meta, *sc.Section)

		require.NoError(t, s.SetSection(ctx, "farmers", nil))
		sc, err = s.GetSchema(ctx, "farmers")
		require.NoError(t, err)
		assert.Nil(t, sc.Section)

		err = s.SetSection(ctx, "ghost", meta)
		assert.True(t, errors.Is(err, schema.ErrNotFound), "got %v", err)
	})
}
