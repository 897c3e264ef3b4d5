package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBackend_ReadMissingFile(t *testing.T) {
	b := NewJSONBackend(filepath.Join(t.TempDir(), "frames.json"))

	records, err := b.Read()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.False(t, b.Exists())
}

func TestJSONBackend_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "frames.json")
	b := NewJSONBackend(path)

	records := map[string]json.RawMessage{
		"a": json.RawMessage(`{"n":1}`),
		"b": json.RawMessage(`{"n":2}`),
	}
	require.NoError(t, b.Write(records))
	assert.True(t, b.Exists())

	got, err := b.Read()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"n":1}`, string(got["a"]))
	assert.JSONEq(t, `{"n":2}`, string(got["b"]))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestJSONBackend_CorruptFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	b := NewJSONBackend(path)
	records, err := b.Read()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestJSONBackend_WriteReplacesWholeSet(t *testing.T) {
	b := NewJSONBackend(filepath.Join(t.TempDir(), "frames.json"))

	require.NoError(t, b.Write(map[string]json.RawMessage{"a": json.RawMessage(`1`)}))
	require.NoError(t, b.Write(map[string]json.RawMessage{"b": json.RawMessage(`2`)}))

	got, err := b.Read()
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, hasOld := got["a"]
	assert.False(t, hasOld)
}
