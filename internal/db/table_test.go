package db

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/tplan/internal/orm"
)

var noteColumns = []orm.Column{
	{Name: "id", Type: orm.Integer, Constraints: orm.PrimaryKey | orm.AutoIncrement | orm.NotNull},
	{Name: "Title", Type: orm.Text},
	{Name: "Created", Type: orm.Integer},
}

// setupTable opens a fresh database in a temp dir and creates a small table.
func setupTable(t *testing.T) *Table {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	table, err := database.Table("Note")
	require.NoError(t, err)
	require.NoError(t, table.EnsureSchema(noteColumns))
	return table
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	table := setupTable(t)

	_, err := table.Insert([]string{"Title"}, []any{"kept"})
	require.NoError(t, err)

	require.NoError(t, table.EnsureSchema(noteColumns))
	require.NoError(t, table.EnsureSchema(noteColumns))

	cols, err := table.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Title", "Created"}, cols)

	rows, err := table.QueryAll(Condition{}, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestInsertRoundTrip(t *testing.T) {
	table := setupTable(t)

	var last int64
	for i, title := range []string{"first", "second", "third"} {
		id, err := table.Insert([]string{"Title", "Created"}, []any{title, int64(1700000000 + i)})
		require.NoError(t, err)
		assert.Greater(t, id, last, "ids must increase")
		last = id
	}

	rows, err := table.QueryAll(Condition{}, []string{"Created", "Title"})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for i, row := range rows {
		require.Len(t, row, 2)
		assert.Equal(t, "Created", row[0].Column)
		assert.Equal(t, "Title", row[1].Column)

		created, ok := orm.AsInt64(row[0].Value)
		require.True(t, ok)
		assert.Equal(t, int64(1700000000+i), created)

		title, ok := orm.AsString(row[1].Value)
		require.True(t, ok)
		assert.Equal(t, []string{"first", "second", "third"}[i], title)
	}
}

func TestInsertInvalidArguments(t *testing.T) {
	table := setupTable(t)

	tests := []struct {
		name    string
		columns []string
		values  []any
	}{
		{"empty", nil, nil},
		{"no values", []string{"Title"}, nil},
		{"no columns", nil, []any{"x"}},
		{"length mismatch", []string{"Title", "Created"}, []any{"x"}},
		{"bad column name", []string{"Title; DROP TABLE Note"}, []any{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Insert(tt.columns, tt.values)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestUpdate(t *testing.T) {
	table := setupTable(t)
	a, err := table.Insert([]string{"Title", "Created"}, []any{"a", int64(10)})
	require.NoError(t, err)
	_, err = table.Insert([]string{"Title", "Created"}, []any{"b", int64(20)})
	require.NoError(t, err)

	t.Run("keyed update touches one row", func(t *testing.T) {
		require.NoError(t, table.Update(map[string]any{"Title": "A"}, Eq("id", a)))

		rows, err := table.QueryAll(Condition{}, []string{"Title"})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "A", orm.FormatValue(rows[0][0].Value))
		assert.Equal(t, "b", orm.FormatValue(rows[1][0].Value))
	})

	t.Run("empty values refused", func(t *testing.T) {
		err := table.Update(map[string]any{}, Eq("id", a))
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})

	t.Run("empty condition refused", func(t *testing.T) {
		err := table.Update(map[string]any{"Title": "oops"}, Condition{})
		assert.True(t, errors.Is(err, ErrInvalidArgument))

		rows, err := table.QueryAll(Eq("Title", "oops"), nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("bulk update with AllRows", func(t *testing.T) {
		require.NoError(t, table.Update(map[string]any{"Created": int64(99)}, AllRows()))

		rows, err := table.QueryAll(Eq("Created", int64(99)), []string{"id"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}

func TestDeleteByID(t *testing.T) {
	table := setupTable(t)
	a, err := table.Insert([]string{"Title"}, []any{"a"})
	require.NoError(t, err)
	b, err := table.Insert([]string{"Title"}, []any{"b"})
	require.NoError(t, err)

	require.NoError(t, table.DeleteByID("id", a))
	// Absent rows are a no-op.
	require.NoError(t, table.DeleteByID("id", a))
	require.NoError(t, table.DeleteByID("id", int64(12345)))

	rows, err := table.QueryAll(Condition{}, []string{"id"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id, _ := orm.AsInt64(rows[0][0].Value)
	assert.Equal(t, b, id)
}

func TestInsertAfterDeleteNeverReusesID(t *testing.T) {
	table := setupTable(t)
	_, err := table.Insert([]string{"Title"}, []any{"a"})
	require.NoError(t, err)
	b, err := table.Insert([]string{"Title"}, []any{"b"})
	require.NoError(t, err)

	require.NoError(t, table.DeleteByID("id", b))
	c, err := table.Insert([]string{"Title"}, []any{"c"})
	require.NoError(t, err)
	assert.Greater(t, c, b)
}

func TestQueryAll(t *testing.T) {
	table := setupTable(t)
	for i := int64(1); i <= 5; i++ {
		_, err := table.Insert([]string{"Title", "Created"}, []any{"n", i * 100})
		require.NoError(t, err)
	}

	t.Run("range condition is inclusive", func(t *testing.T) {
		rows, err := table.QueryAll(Between("Created", 200, 400), []string{"Created"})
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("no rows is not a schema mismatch", func(t *testing.T) {
		rows, err := table.QueryAll(Eq("Title", "missing"), []string{"Title"})
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("unknown column is a schema mismatch", func(t *testing.T) {
		rows, err := table.QueryAll(Condition{}, []string{"Title", "DateEnd"})
		assert.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)
		assert.Nil(t, rows)
	})

	t.Run("bad condition column", func(t *testing.T) {
		_, err := table.QueryAll(Eq("1=1 OR id", 1), nil)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})
}

func TestSettings(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "nested", "settings.db"))
	require.NoError(t, err)
	defer database.Close()

	v, err := database.GetSetting("last_view")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, database.SetSetting("last_view", "finished"))
	require.NoError(t, database.SetSetting("last_view", "active"))

	v, err = database.GetSetting("last_view")
	require.NoError(t, err)
	assert.Equal(t, "active", v)
}

func TestTableNameValidation(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Table("Task; DROP TABLE settings")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
