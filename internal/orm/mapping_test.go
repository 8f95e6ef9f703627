package orm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	id    int64
	title string
	body  string
}

func keyField() Field[*note] {
	return Field[*note]{
		Column:   Column{Name: "id", Type: Integer, Constraints: PrimaryKey | NotNull},
		Property: "id",
		Access:   ReadWrite,
		Get:      func(n *note) any { return n.id },
		Set: func(n *note, v any) error {
			n.id, _ = AsInt64(v)
			return nil
		},
	}
}

func titleField() Field[*note] {
	return Field[*note]{
		Column:     Column{Name: "Title", Type: Text, Constraints: Unique},
		Property:   "title",
		Access:     ConstructOnly,
		Visibility: Shown,
		Label:      "Title",
		Get:        func(n *note) any { return n.title },
	}
}

func bodyField() Field[*note] {
	return Field[*note]{
		Column:   Column{Name: "Body", Type: Text},
		Property: "body",
		Access:   WriteOnly,
		Set: func(n *note, v any) error {
			n.body, _ = AsString(v)
			return nil
		},
	}
}

func TestNewMappingValid(t *testing.T) {
	m, err := NewMapping(keyField(), titleField(), bodyField())
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, "id", m.PrimaryKey().Name)
	assert.Equal(t, []string{"id", "Title", "Body"}, m.ColumnNames())

	f, ok := m.ByProperty("title")
	require.True(t, ok)
	assert.Equal(t, "Title", f.Name)

	f, ok = m.ByColumn("Body")
	require.True(t, ok)
	assert.Equal(t, "body", f.Property)
	assert.False(t, f.Readable())
	assert.True(t, f.Assignable())

	_, ok = m.ByProperty("missing")
	assert.False(t, ok)

	visible := m.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Title", visible[0].Label)
}

func TestNewMappingConfigurationErrors(t *testing.T) {
	noKey := keyField()
	noKey.Constraints = NotNull

	secondKey := titleField()
	secondKey.Constraints = PrimaryKey

	noGetter := titleField()
	noGetter.Get = nil

	noSetter := keyField()
	noSetter.Set = nil
	noSetter.Constraints = None

	badFK := bodyField()
	badFK.Constraints = ForeignKey

	badName := bodyField()
	badName.Name = "Body Text"

	dupColumn := bodyField()
	dupColumn.Name = "Title"

	badType := bodyField()
	badType.Type = "BLOB"

	writeOnlyKey := bodyField()
	writeOnlyKey.Constraints = PrimaryKey

	autoText := titleField()
	autoText.Constraints = AutoIncrement

	tests := []struct {
		name   string
		fields []Field[*note]
	}{
		{"empty", nil},
		{"no primary key", []Field[*note]{noKey, titleField()}},
		{"two primary keys", []Field[*note]{keyField(), secondKey}},
		{"construct-only without getter", []Field[*note]{keyField(), noGetter}},
		{"read-write without setter", []Field[*note]{keyField(), noSetter}},
		{"foreign key without target", []Field[*note]{keyField(), badFK}},
		{"bad column name", []Field[*note]{keyField(), badName}},
		{"duplicate column", []Field[*note]{keyField(), titleField(), dupColumn}},
		{"duplicate property", []Field[*note]{keyField(), titleField(), titleField()}},
		{"unknown type", []Field[*note]{keyField(), badType}},
		{"unreadable key", []Field[*note]{writeOnlyKey}},
		{"autoincrement off the key", []Field[*note]{keyField(), autoText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMapping(tt.fields...)
			assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
		})
	}
}

func TestMustMappingPanics(t *testing.T) {
	assert.Panics(t, func() { MustMapping(titleField()) })
}

func TestColumnDefinition(t *testing.T) {
	tests := []struct {
		col  Column
		want string
	}{
		{Column{Name: "id", Type: Integer, Constraints: PrimaryKey | NotNull}, "id INTEGER PRIMARY KEY NOT NULL"},
		{Column{Name: "id", Type: Integer, Constraints: PrimaryKey | AutoIncrement | NotNull}, "id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL"},
		{Column{Name: "Name", Type: Text}, "Name TEXT"},
		{Column{Name: "Code", Type: Text, Constraints: Unique | NotNull}, "Code TEXT UNIQUE NOT NULL"},
		{Column{Name: "ProjectID", Type: Integer, Constraints: ForeignKey, References: "Project(id)"}, "ProjectID INTEGER REFERENCES Project(id)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.col.Definition())
	}
}

func TestBuild(t *testing.T) {
	m := MustMapping(keyField(), titleField(), bodyField())
	row := map[string]any{"id": int64(3), "Title": "hello", "Body": []byte("world")}

	var ctorArgs Args
	n, err := m.Build(func(col string) (any, bool) {
		v, ok := row[col]
		return v, ok
	}, func(a Args) (*note, error) {
		ctorArgs = a
		return &note{title: a.String("title")}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, Args{"title": "hello"}, ctorArgs, "only construct-only fields reach the constructor")
	assert.Equal(t, int64(3), n.id)
	assert.Equal(t, "hello", n.title)
	assert.Equal(t, "world", n.body)
}

func TestBuildSetterError(t *testing.T) {
	failing := keyField()
	failing.Set = func(*note, any) error { return errors.New("boom") }
	m := MustMapping(failing, titleField())

	_, err := m.Build(func(string) (any, bool) { return int64(1), true }, func(Args) (*note, error) {
		return &note{}, nil
	})
	assert.Error(t, err)
}

func TestValues(t *testing.T) {
	m := MustMapping(keyField(), titleField(), bodyField())
	n := &note{id: 9, title: "t", body: "b"}

	cols, vals := m.Values(n, true)
	assert.Equal(t, []string{"Title"}, cols)
	assert.Equal(t, []any{"t"}, vals)

	cols, vals = m.Values(n, false)
	assert.Equal(t, []string{"id", "Title"}, cols)
	assert.Equal(t, []any{int64(9), "t"}, vals)
}

func TestValueConversions(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(5), 5, true},
		{5, 5, true},
		{float64(7.9), 7, true},
		{"12", 12, true},
		{"1700000000.0", 1700000000, true},
		{[]byte("42"), 42, true},
		{"abc", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := AsInt64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	assert.True(t, IsIdentifier("DateStart"))
	assert.True(t, IsIdentifier("_x1"))
	assert.False(t, IsIdentifier("1x"))
	assert.False(t, IsIdentifier("a-b"))
	assert.False(t, IsIdentifier(""))
}
