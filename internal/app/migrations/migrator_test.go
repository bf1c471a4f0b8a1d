package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "001", Version("001_init.sql"))
	assert.Equal(t, "002", Version("sql/002_add_index.sql"))
	assert.Equal(t, "noprefix.sql", Version("noprefix.sql"))
}

func TestListSortsSQLFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.sql":   {Data: []byte("SELECT 1;")},
		"002_second.sql": {Data: []byte("SELECT 1;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("notes")},
		"nested/003.sql": {Data: []byte("SELECT 1;")},
	}

	files, err := List(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_first.sql", "002_second.sql", "010_late.sql"}, files)
}

func TestEmbeddedFiles(t *testing.T) {
	files, err := List(Files())
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
}
