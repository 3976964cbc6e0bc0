package nav_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"govconnect/internal/nav"
	"govconnect/internal/reference"
	"govconnect/internal/schema"
	"govconnect/internal/store"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
		kind schema.Kind
	}{
		{"Farmer Registry", "farmer-registry", ""},
		{"  Water \t  Supply  ", "water-supply", ""},
		{"Roads", "roads", ""},
		{"", "", schema.KindValidation},
		{"   ", "", schema.KindValidation},
		{"A/B", "", schema.KindValidation},
		{"What?", "", schema.KindValidation},
		{"API", "", schema.KindDuplicate},
	}
	for _, c := range cases {
		got, err := nav.Slugify(c.in)
		if c.kind != "" {
			assert.Equal(t, c.kind, schema.KindOf(err), "input %q", c.in)
			continue
		}
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got)
	}
}

func newBinder(t *testing.T) (*nav.Binder, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	cat := reference.DefaultCatalog()
	b := nav.NewBinder(nav.NewRegistry(cat), st, cat, zaptest.NewLogger(t))
	require.NoError(t, b.Boot(context.Background()))
	return b, st
}

func farmerInput() nav.SectionInput {
	return nav.SectionInput{
		Title:     "Farmer Registry",
		Icon:      "sprout",
		TableName: "farmers",
		Fields: []schema.Field{
			{Name: "name", Type: schema.TypeString, Required: true, Visible: true},
			{Name: "plotSize", Type: schema.TypeFloat, Visible: true},
		},
	}
}

func TestBootPublishesBuiltins(t *testing.T) {
	b, _ := newBinder(t)
	menu := b.Registry().Menu()
	require.Len(t, menu, 4)
	assert.Equal(t, "/healthcare", menu[0].Path)
	assert.Equal(t, "Heart", menu[0].Icon)
	assert.Equal(t, "/admin", menu[3].Path)
	assert.True(t, menu[0].BuiltIn)
}

func TestCreateSectionPublishesRouteAndMenu(t *testing.T) {
	b, st := newBinder(t)
	ctx := context.Background()

	s, err := b.CreateSection(ctx, farmerInput())
	require.NoError(t, err)
	assert.Equal(t, "farmer-registry", s.Route)
	assert.Equal(t, "Sprout", s.Icon)
	assert.True(t, s.Enabled)
	assert.NotEmpty(t, s.ID)

	got, ok := b.Registry().Lookup("/Farmer-Registry/")
	require.True(t, ok)
	assert.Equal(t, "farmers", got.TableName)

	tbl, err := st.GetSchema(ctx, "farmers")
	require.NoError(t, err)
	require.NotNil(t, tbl.Section)
	assert.Equal(t, s.ID, tbl.Section.ID)

	paths := []string{}
	for _, m := range b.Registry().Menu() {
		paths = append(paths, m.Path)
	}
	assert.Contains(t, paths, "/farmer-registry")
}

func TestDerivedTableNameIsIdentifier(t *testing.T) {
	cases := []struct {
		title string
		table string
	}{
		{"Water Supply", "water_supply"},
		{"2024 Survey", "t_2024_survey"},
		{"Farmers' Registry", "farmers_registry"},
		{"Roads & Bridges", "roads_bridges"},
	}
	for _, c := range cases {
		b, st := newBinder(t)
		in := farmerInput()
		in.Title, in.TableName = c.title, ""
		s, err := b.CreateSection(context.Background(), in)
		require.NoError(t, err, "title %q", c.title)
		assert.Equal(t, c.table, s.TableName)
		_, err = st.GetSchema(context.Background(), c.table)
		assert.NoError(t, err)
	}

	b, _ := newBinder(t)
	in := farmerInput()
	in.Title, in.TableName = "!!!", ""
	_, err := b.CreateSection(context.Background(), in)
	var e *schema.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, schema.KindValidation, e.Kind)
	assert.Equal(t, "title", e.Field)
}

func TestUnknownIconFallsBack(t *testing.T) {
	b, _ := newBinder(t)
	in := farmerInput()
	in.Icon = "rocket-ship"
	s, err := b.CreateSection(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Database", s.Icon)
}

func TestRouteCollisionIsRejectedWithoutOrphanTable(t *testing.T) {
	b, st := newBinder(t)
	ctx := context.Background()
	_, err := b.CreateSection(ctx, farmerInput())
	require.NoError(t, err)

	dup := farmerInput()
	dup.Title = "farmer   REGISTRY"
	dup.TableName = "farmers_two"
	_, err = b.CreateSection(ctx, dup)
	assert.True(t, errors.Is(err, schema.ErrDuplicateName), "got %v", err)

	_, err = st.GetSchema(ctx, "farmers_two")
	assert.ErrorIs(t, err, schema.ErrNotFound)

	builtin := farmerInput()
	builtin.Title = "Healthcare"
	builtin.TableName = "health2"
	_, err = b.CreateSection(ctx, builtin)
	assert.ErrorIs(t, err, schema.ErrDuplicateName)
}

func TestDuplicateTableLeavesExistingIntact(t *testing.T) {
	b, st := newBinder(t)
	ctx := context.Background()
	_, err := b.CreateSection(ctx, farmerInput())
	require.NoError(t, err)

	again := farmerInput()
	again.Title = "Other Farmers"
	_, err = b.CreateSection(ctx, again)
	assert.ErrorIs(t, err, schema.ErrDuplicateName)

	_, ok := b.Registry().Lookup("other-farmers")
	assert.False(t, ok)
	_, err = st.GetSchema(ctx, "farmers")
	assert.NoError(t, err)
}

func TestRemoveSectionDropsTableByDefault(t *testing.T) {
	b, st := newBinder(t)
	ctx := context.Background()
	s, err := b.CreateSection(ctx, farmerInput())
	require.NoError(t, err)
	_, err = st.Insert(ctx, "farmers", map[string]any{"name": "Ravi"})
	require.NoError(t, err)

	require.NoError(t, b.RemoveSection(ctx, s.ID, nav.RemoveOptions{}))

	_, ok := b.Registry().Lookup(s.Route)
	assert.False(t, ok)
	_, err = st.GetSchema(ctx, "farmers")
	assert.ErrorIs(t, err, schema.ErrNotFound)
	_, err = st.List(ctx, "farmers", store.ListOptions{})
	assert.ErrorIs(t, err, schema.ErrNotFound)

	orphans, err := b.Orphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestRemoveSectionKeepTableLeavesOrphan(t *testing.T) {
	b, st := newBinder(t)
	ctx := context.Background()
	s, err := b.CreateSection(ctx, farmerInput())
	require.NoError(t, err)

	require.NoError(t, b.RemoveSection(ctx, s.ID, nav.RemoveOptions{KeepTable: true}))

	tbl, err := st.GetSchema(ctx, "farmers")
	require.NoError(t, err)
	assert.Nil(t, tbl.Section)

	orphans, err := b.Orphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"farmers"}, orphans)

	// маршрут освободился
	_, err = b.CreateSection(ctx, nav.SectionInput{Title: "Farmer Registry", TableName: "farmers_v2",
		Fields: []schema.Field{{Name: "name", Type: schema.TypeString, Visible: true}}})
	assert.NoError(t, err)
}

func TestBuiltinSectionsCannotBeRemoved(t *testing.T) {
	b, _ := newBinder(t)
	err := b.RemoveSection(context.Background(), "healthcare", nav.RemoveOptions{})
	assert.ErrorIs(t, err, schema.ErrValidation)

	err = b.RemoveSection(context.Background(), "nope", nav.RemoveOptions{})
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestUpdateSectionDisablesAndReorders(t *testing.T) {
	b, st := newBinder(t)
	ctx := context.Background()
	s, err := b.CreateSection(ctx, farmerInput())
	require.NoError(t, err)

	off, first := false, -1
	_, err = b.UpdateSection(ctx, s.ID, nav.SectionPatch{Enabled: &off})
	require.NoError(t, err)
	_, ok := b.Registry().Lookup(s.Route)
	assert.False(t, ok, "disabled section is not routable")

	on := true
	_, err = b.UpdateSection(ctx, s.ID, nav.SectionPatch{Enabled: &on, Order: &first})
	require.NoError(t, err)
	assert.Equal(t, "/farmer-registry", b.Registry().Menu()[0].Path)

	tbl, err := st.GetSchema(ctx, "farmers")
	require.NoError(t, err)
	assert.Equal(t, -1, tbl.Section.Order)

	// встроенный раздел можно отключить
	_, err = b.UpdateSection(ctx, "alerts", nav.SectionPatch{Enabled: &off})
	require.NoError(t, err)
	for _, m := range b.Registry().Menu() {
		assert.NotEqual(t, "/alerts", m.Path)
	}
}

func TestBootRestoresPersistedSections(t *testing.T) {
	ctx := context.Background()
	b, st := newBinder(t)
	s, err := b.CreateSection(ctx, farmerInput())
	require.NoError(t, err)
	_, err = st.CreateTable(ctx, schema.Table{Name: "loose", Fields: []schema.Field{{Name: "x", Type: schema.TypeInt}}})
	require.NoError(t, err)

	cat := reference.DefaultCatalog()
	fresh := nav.NewBinder(nav.NewRegistry(cat), st, cat, zaptest.NewLogger(t))
	require.NoError(t, fresh.Boot(ctx))

	got, ok := fresh.Registry().Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.Route, got.Route)
	assert.Equal(t, "farmers", got.TableName)
	assert.Len(t, got.Fields, 2)

	orphans, err := fresh.Orphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"loose"}, orphans)
}

func TestTableDroppedUnpublishes(t *testing.T) {
	b, st := newBinder(t)
	ctx := context.Background()
	s, err := b.CreateSection(ctx, farmerInput())
	require.NoError(t, err)

	require.NoError(t, st.DeleteTable(ctx, "farmers"))
	b.TableDropped("FARMERS")
	_, ok := b.Registry().Get(s.ID)
	assert.False(t, ok)
}
