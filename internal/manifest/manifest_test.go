package manifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_LegacyArray(t *testing.T) {
	data := []byte(`[
		{"path": "app/Models/Base/User.php", "replace": true},
		{"path": "database/migrations/0001_users.php", "replace": false}
	]`)

	entries, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, DefaultCategory, entries[0].Category)
	assert.Equal(t, "app/Models/Base/User.php", entries[0].SourcePath)
	// Legacy entries mirror the bundle path into the project tree.
	assert.Equal(t, "app/Models/Base/User.php", entries[0].DestinationPath)
	assert.True(t, entries[0].Replace)
	assert.False(t, entries[1].Replace)
}

func TestDecode_SecureCategories(t *testing.T) {
	data := []byte(`{
		"models": [
			{"path": "build/models/User.go", "destination": "internal/models/user.go", "replace": true}
		],
		"types": [
			{"source_path": "build/ts/User.ts", "destination_path": "ts/models/user.ts"},
			{"source_path": "build/ts/Order.ts", "destination_path": "ts/models/order.ts", "replace": false}
		]
	}`)

	entries, err := Decode(data)
	require.NoError(t, err)

	// Category order follows document order, not map ordering, and secure
	// entries default replace to true when unspecified.
	want := []Entry{
		{Category: "models", SourcePath: "build/models/User.go", DestinationPath: "internal/models/user.go", Replace: true},
		{Category: "types", SourcePath: "build/ts/User.ts", DestinationPath: "ts/models/user.ts", Replace: true},
		{Category: "types", SourcePath: "build/ts/Order.ts", DestinationPath: "ts/models/order.ts", Replace: false},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("decoded entries mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_InvalidEntries(t *testing.T) {
	t.Run("legacy missing replace flag", func(t *testing.T) {
		entries, err := Decode([]byte(`[{"path": "a.txt"}]`))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Invalid())
	})

	t.Run("secure missing destination", func(t *testing.T) {
		entries, err := Decode([]byte(`{"models": [{"path": "a.txt", "replace": true}]}`))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Invalid())
		assert.Contains(t, entries[0].InvalidReason, "destination")
	})

	t.Run("path escaping the root", func(t *testing.T) {
		entries, err := Decode([]byte(`[{"path": "../../etc/passwd", "replace": true}]`))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Invalid())
	})

	t.Run("absolute destination", func(t *testing.T) {
		data := []byte(`{"models": [{"path": "a.txt", "destination": "/etc/passwd", "replace": true}]}`)
		entries, err := Decode(data)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Invalid())
	})
}

func TestDecode_StructuralErrors(t *testing.T) {
	for name, data := range map[string]string{
		"not json":      `{{{`,
		"scalar":        `42`,
		"string":        `"hello"`,
		"bad category":  `{"models": 42}`,
		"truncated doc": `[{"path": "a.txt"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(data))
			assert.ErrorIs(t, err, ErrManifestFormat)
		})
	}
}
