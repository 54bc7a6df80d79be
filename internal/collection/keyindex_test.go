package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowgraph/internal/cursor"
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
	"github.com/roach88/rowgraph/internal/testutil"
)

func tagIndex(t *testing.T) (*KeyIndex, *testutil.CountingCursor) {
	t.Helper()
	tags := testutil.BlogRegistry().MustModel("post_tags")
	cur := testutil.NewCountingCursor([]ir.Row{
		{ir.Int(1), ir.String("go")},
		{ir.Int(1), ir.String("sql")},
		{ir.Int(2), ir.String("go")},
	})
	c, err := NewRelational(tags, testutil.QueryFor(tags), cur)
	require.NoError(t, err)
	return NewKeyIndex(c), cur
}

func TestSynthesizeKey(t *testing.T) {
	tests := []struct {
		name string
		key  ir.Key
		pos  int
		want ir.Key
	}{
		{"scalar kept", ir.ScalarKey(ir.Int(7)), 3, ir.ScalarKey(ir.Int(7))},
		{"zero is position", ir.Key{}, 3, ir.PositionKey(3)},
		{"null is position", ir.ScalarKey(ir.Null{}), 2, ir.PositionKey(2)},
		{"empty string is position", ir.ScalarKey(ir.String("")), 1, ir.PositionKey(1)},
		{"boolean is position", ir.ScalarKey(ir.Bool(true)), 4, ir.PositionKey(4)},
		{"empty composite is position", ir.CompositeKey(ir.Object{"a": ir.Null{}, "b": ir.Null{}}), 5, ir.PositionKey(5)},
		{"composite of one flattens", ir.CompositeKey(ir.Object{"id": ir.String("x")}), 0, ir.ScalarKey(ir.String("x"))},
		{"composite kept", ir.CompositeKey(ir.Object{"a": ir.Int(1), "b": ir.Int(2)}), 0, ir.CompositeKey(ir.Object{"b": ir.Int(2), "a": ir.Int(1)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SynthesizeKey(tt.key, tt.pos)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			assert.Equal(t, tt.want.IsComposite(), got.IsComposite())
		})
	}
}

func TestOffsetKey(t *testing.T) {
	for _, falsy := range []any{nil, false, true, 0, "", ir.Null{}, ir.Bool(false), ir.Key{}, ir.Int(0)} {
		_, ok := OffsetKey(falsy)
		assert.False(t, ok, "%#v", falsy)
	}

	k, ok := OffsetKey(map[string]any{"tag": "go", "post_id": 2})
	require.True(t, ok)
	assert.True(t, k.Equal(ir.CompositeKey(ir.Object{"post_id": ir.Int(2), "tag": ir.String("go")})))

	k, ok = OffsetKey("abc")
	require.True(t, ok)
	assert.True(t, k.Equal(ir.ScalarKey(ir.String("abc"))))
}

func TestKeyIndexCompositeLookupOrderIndependent(t *testing.T) {
	x, _ := tagIndex(t)

	a, found, err := x.Get(ir.Object{"post_id": ir.Int(1), "tag": ir.String("sql")})
	require.NoError(t, err)
	require.True(t, found)

	b, found, err := x.Get(map[string]any{"tag": "sql", "post_id": 1})
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, a, b)

	ok, err := x.Exists(ir.Object{"post_id": ir.Int(9), "tag": ir.String("go")})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, x.Closed())
}

func TestKeyIndexFalsyOffsetIsRoot(t *testing.T) {
	x, cur := tagIndex(t)

	e, found, err := x.Get(nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ir.Object{"post_id": ir.Int(1), "tag": ir.String("go")}, e.Value())
	assert.Equal(t, 1, x.Len())

	advances := cur.Advances
	again, found, err := x.Get(true)
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, e, again)
	assert.Equal(t, advances, cur.Advances)
}

func TestKeyIndexFalsyOffsetOnEmpty(t *testing.T) {
	x := NewKeyIndex(FromEntities(nil, nil))

	ok, err := x.Exists(false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyIndexUnset(t *testing.T) {
	x, _ := tagIndex(t)

	removed, err := x.Unset(ir.Object{"post_id": ir.Int(1), "tag": ir.String("sql")})
	require.NoError(t, err)
	assert.True(t, removed)

	all, err := x.All()
	require.NoError(t, err)
	require.Len(t, all, 2)

	ok, err := x.Exists(ir.Object{"post_id": ir.Int(2), "tag": ir.String("go")})
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := x.Keys()
	require.NoError(t, err)
	assert.True(t, keys[1].Equal(ir.CompositeKey(ir.Object{"post_id": ir.Int(2), "tag": ir.String("go")})))

	removed, err = x.Unset(ir.Object{"post_id": ir.Int(1), "tag": ir.String("sql")})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestKeyIndexSetUpserts(t *testing.T) {
	x, _ := tagIndex(t)

	// Upsert of a key the cursor has not reached yet scans forward first.
	replacement, err := x.Set(map[string]ir.Value{"post_id": ir.Int(2), "tag": ir.String("go")}, nil, SetOptions{})
	require.NoError(t, err)
	assert.False(t, replacement.Exists())

	all, err := x.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Same(t, replacement, all[2])

	added, err := x.Set(map[string]ir.Value{"post_id": ir.Int(3), "tag": ir.String("rust")}, nil, SetOptions{Exists: true})
	require.NoError(t, err)
	assert.True(t, added.Exists())
	assert.Equal(t, 4, x.Len())

	got, found, err := x.Get(ir.Object{"tag": ir.String("rust"), "post_id": ir.Int(3)})
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, added, got)
}

func TestKeyIndexSetExplicitOffset(t *testing.T) {
	x := NewKeyIndex(FromEntities(nil, nil))

	a := model.NewEntity(nil, map[string]ir.Value{"v": ir.Int(1)}, false)
	b := model.NewEntity(nil, map[string]ir.Value{"v": ir.Int(2)}, false)
	c := model.NewEntity(nil, map[string]ir.Value{"v": ir.Int(3)}, false)

	require.NoError(t, x.SetEntity(a, "first"))
	require.NoError(t, x.SetEntity(b, nil))
	require.NoError(t, x.SetEntity(c, "first"))

	assert.Equal(t, 2, x.Len())
	got, found, err := x.Get("first")
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, c, got)

	// Keyless entities take a position key.
	got, found, err = x.Get(ir.PositionKey(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, b, got)
}

func TestKeyIndexKeylessSetAppends(t *testing.T) {
	users := testutil.BlogRegistry().MustModel("users")
	two := users.Create(map[string]ir.Value{"id": ir.Int(2), "name": ir.String("two")}, model.CreateOptions{})
	seven := users.Create(map[string]ir.Value{"id": ir.Int(7), "name": ir.String("seven")}, model.CreateOptions{})
	x := NewKeyIndex(FromEntities(users, []*model.Entity{two, seven}))

	added, err := x.Set(map[string]ir.Value{"name": ir.String("new")}, nil, SetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, x.Len())

	got, found, err := x.Get(ir.ScalarKey(ir.Int(2)))
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, two, got)

	got, found, err = x.Get(ir.PositionKey(2))
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, added, got)
}

func TestKeyIndexSetOnLazyCollection(t *testing.T) {
	users := testutil.BlogRegistry().MustModel("users")
	names := func(x *KeyIndex) []string {
		var out []string
		for _, e := range x.Iter() {
			name, _ := e.Get("name")
			out = append(out, string(name.(ir.String)))
		}
		return out
	}

	t.Run("keyless appends after the source", func(t *testing.T) {
		x := NewKeyIndex(NewFlat(users, cursor.FromSlice([]map[string]ir.Value{
			{"id": ir.Null{}, "name": ir.String("first")},
			{"id": ir.Null{}, "name": ir.String("second")},
		})))

		_, err := x.Set(map[string]ir.Value{"name": ir.String("new")}, nil, SetOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "new"}, names(x))

		keys, err := x.Keys()
		require.NoError(t, err)
		for i, k := range keys {
			pos, ok := k.Position()
			require.True(t, ok)
			assert.Equal(t, i, pos)
		}
	})

	t.Run("unknown key appends under its own key", func(t *testing.T) {
		x, _ := tagIndex(t)
		key := ir.Object{"post_id": ir.Int(3), "tag": ir.String("rust")}

		added, err := x.Set(map[string]ir.Value{"post_id": ir.Int(3), "tag": ir.String("rust")}, nil, SetOptions{})
		require.NoError(t, err)
		assert.Equal(t, 4, x.Len())

		keys, err := x.Keys()
		require.NoError(t, err)
		assert.True(t, keys[3].Equal(ir.CompositeKey(key)))

		got, found, err := x.Get(key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Same(t, added, got)
	})
}

func TestKeyIndexUnsetRenumbersPositions(t *testing.T) {
	a := model.NewEntity(nil, map[string]ir.Value{"v": ir.Int(1)}, false)
	b := model.NewEntity(nil, map[string]ir.Value{"v": ir.Int(2)}, false)
	x := NewKeyIndex(FromEntities(nil, []*model.Entity{a, b}))

	removed, err := x.Unset(ir.PositionKey(0))
	require.NoError(t, err)
	require.True(t, removed)

	got, found, err := x.Get(ir.PositionKey(0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, b, got)

	ok, err := x.Exists(ir.PositionKey(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyIndexBulkMaterializes(t *testing.T) {
	x, cur := tagIndex(t)

	rows, err := x.ToSlice()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.True(t, x.Closed())
	assert.False(t, cur.HasNext())
}

func TestNewFlat(t *testing.T) {
	users := testutil.BlogRegistry().MustModel("users")
	cur := cursor.FromSlice([]map[string]ir.Value{
		{"id": ir.Int(1), "name": ir.String("ann")},
		{"id": ir.Int(2), "name": ir.String("bob")},
	})
	c := NewFlat(users, cur)

	e, found, err := c.Get(ir.ScalarKey(ir.Int(2)))
	require.NoError(t, err)
	require.True(t, found)
	name, _ := e.Get("name")
	assert.Equal(t, ir.String("bob"), name)
	assert.True(t, e.Exists())

	all, err := c.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.True(t, c.Closed())
}

func TestNewFlatKeylessDoesNotShadow(t *testing.T) {
	users := testutil.BlogRegistry().MustModel("users")
	c := NewFlat(users, cursor.FromSlice([]map[string]ir.Value{
		{"id": ir.Int(9), "name": ir.String("nine")},
		{"id": ir.Null{}, "name": ir.String("anon")},
		{"id": ir.Int(1), "name": ir.String("one")},
	}))

	e, found, err := c.Get(ir.ScalarKey(ir.Int(1)))
	require.NoError(t, err)
	require.True(t, found)
	name, _ := e.Get("name")
	assert.Equal(t, ir.String("one"), name)
}
