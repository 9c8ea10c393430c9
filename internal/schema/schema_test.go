package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDir_ParsesYamlAndJson(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "crm/Customer.yaml", "type: model\nattributes:\n  name:\n    type: string\n")
	write(t, dir, "crm/Order.json", `{"type": "model", "attributes": {"total": {"type": "decimal"}}}`)
	write(t, dir, "crm/notes.txt", "ignored")

	objects, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	byName := map[string]Object{}
	for _, obj := range objects {
		byName[obj.Name] = obj
	}

	customer := byName["Customer"]
	assert.Equal(t, "model", customer.Body["type"])
	assert.Equal(t, "Customer", customer.Body["objectName"], "object name is injected into the body")

	order := byName["Order"]
	assert.Equal(t, "Order", order.Body["objectName"])
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	objects, err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLoadDir_MalformedYaml(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "bad/Broken.yaml", "attributes: [unclosed")

	_, err := LoadDir(dir)
	assert.Error(t, err)
}

func TestLoad_LaterDirectoriesWin(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	write(t, first, "a/User.yaml", "origin: first\n")
	write(t, second, "b/User.yaml", "origin: second\n")

	objects, err := Load(first, second)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "second", objects["User"].Body["origin"])
}

func TestMarshal_ProducesObjectMap(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "crm/Customer.yaml", "type: model\n")

	objects, err := Load(dir)
	require.NoError(t, err)

	data, err := Marshal(objects)
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Customer", doc["Customer"]["objectName"])
}
