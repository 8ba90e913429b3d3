package memory

import (
	"context"
	"io"
	"testing"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_Open_FileNotFound(t *testing.T) {
	fs := NewMemoryStorage()

	_, err := fs.Open(context.Background(), "nonexistent.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.FileNotFound))
	assert.Equal(t, "nonexistent.txt", errors.GetContext(err)["path"])

	_, err = fs.ReadFile("nonexistent.txt")
	assert.True(t, errors.Is(err, storage.FileNotFound))
}

func TestMemoryStorage_CreatePublishesOnClose(t *testing.T) {
	ctx := context.Background()
	fs := NewMemoryStorage()

	w, err := fs.Create(ctx, "wh/hr/employees/f1")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)

	exists, _ := fs.Exists(ctx, "wh/hr/employees/f1")
	assert.False(t, exists)

	require.NoError(t, w.Close())
	_, err = w.Write([]byte("x"))
	assert.True(t, errors.Is(err, ErrWriterClosed))

	f, err := fs.Open(ctx, "/wh/hr/employees/f1")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	require.NoError(t, f.Close())
}

func TestMemoryStorage_DirectorySemantics(t *testing.T) {
	ctx := context.Background()
	fs := NewMemoryStorage()
	fs.WriteFile("wh/t/b", []byte("22"))
	fs.WriteFile("wh/t/a", []byte("1"))
	fs.WriteFile("wh/t/k=v/c", []byte("333"))
	fs.WriteFile("wh/tt/d", []byte("4"))

	exists, err := fs.Exists(ctx, "wh/t")
	require.NoError(t, err)
	assert.True(t, exists)

	files, err := fs.List(ctx, "wh/t")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].Name)
	assert.Equal(t, "/wh/t/a", files[0].Path)
	assert.Equal(t, int64(2), files[1].Size)

	require.NoError(t, fs.Delete(ctx, "wh/t", true))
	assert.Equal(t, []string{"/wh/tt/d"}, fs.Paths(), "sibling with shared prefix survives")

	require.NoError(t, fs.Delete(ctx, "wh/missing", false))
}
