package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_DeleteFile_Relative_Path(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store := NewDiskFileStore(root, slog.Default())

	path := filepath.Join(root, "photos", "cat.jpg")
	req.NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	req.NoError(os.WriteFile(path, []byte("img"), 0o644))

	req.True(store.DeleteFile(context.Background(), "photos/cat.jpg"))
	_, err := os.Stat(path)
	req.True(os.IsNotExist(err))
}

func Test_DeleteFile_Full_Upload_URL(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store := NewDiskFileStore(root, slog.Default())

	path := filepath.Join(root, "docs", "report.pdf")
	req.NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	req.NoError(os.WriteFile(path, []byte("pdf"), 0o644))

	req.True(store.DeleteFile(context.Background(), "http://localhost:8080/uploads/docs/report.pdf"))
	_, err := os.Stat(path)
	req.True(os.IsNotExist(err))
}

func Test_DeleteFile_Missing_Is_False_Not_Error(t *testing.T) {
	req := require.New(t)
	store := NewDiskFileStore(t.TempDir(), slog.Default())

	req.False(store.DeleteFile(context.Background(), "photos/never-existed.jpg"))
}

func Test_DeleteFile_Rejects_Root_Escape(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store := NewDiskFileStore(root, slog.Default())

	outside := filepath.Join(filepath.Dir(root), "victim.txt")
	req.NoError(os.WriteFile(outside, []byte("keep me"), 0o644))
	t.Cleanup(func() { _ = os.Remove(outside) })

	req.False(store.DeleteFile(context.Background(), "../victim.txt"))
	_, err := os.Stat(outside)
	req.NoError(err)
}
