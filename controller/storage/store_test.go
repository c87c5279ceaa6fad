package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

func testStore(t *testing.T) Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.CreateBucket("settings"))

	in := doc{ID: "default", Value: 1.025}
	require.NoError(t, s.Update("settings", "default", &in))

	var out doc
	require.NoError(t, s.Get("settings", "default", &out))
	assert.Equal(t, in, out)
}

func TestStoreCreateAllocatesIDs(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.CreateBucket("records"))

	var ids []string
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Create("records", func(id string) interface{} {
			ids = append(ids, id)
			return &doc{ID: id, Value: float64(i)}
		}))
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	count := 0
	require.NoError(t, s.List("records", func(_ string, _ []byte) error {
		count++
		return nil
	}))
	assert.Equal(t, 3, count)
}

func TestStoreDelete(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.CreateBucket("settings"))
	require.NoError(t, s.Update("settings", "default", &doc{ID: "default"}))
	require.NoError(t, s.Delete("settings", "default"))

	var out doc
	assert.Error(t, s.Get("settings", "default", &out))
}

func TestStoreMissingBucket(t *testing.T) {
	s := testStore(t)
	var out doc
	assert.Error(t, s.Get("nope", "default", &out))
	assert.Error(t, s.Update("nope", "default", &out))
}
