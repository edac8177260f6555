package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteFile_CreatesParentsAndRecords(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ws := NewMemory()

	// --- Act ---
	require.NoError(t, ws.WriteFile("./css/themes/dark.css", []byte("a{}")))
	require.NoError(t, ws.WriteFile("js/plugins.js", []byte("x")))

	// --- Assert ---
	data, err := ws.ReadFile("css/themes/dark.css")
	require.NoError(t, err)
	require.Equal(t, "a{}", string(data))
	require.True(t, ws.IsDir("css/themes"))
	require.Equal(t, []string{"css/themes/dark.css", "js/plugins.js"}, ws.TakeWritten())
	require.Empty(t, ws.TakeWritten(), "the record is reset after being taken")
}

func TestFS_ExposesFilesForGlobbing(t *testing.T) {
	t.Parallel()

	ws := NewMemory()
	require.NoError(t, ws.WriteFile("scss/styles.scss", []byte("a{}")))

	matches, err := fs.Glob(ws.FS(), "scss/*.scss")
	require.NoError(t, err)
	require.Equal(t, []string{"scss/styles.scss"}, matches)
}

func TestNewer(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	ws, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, ws.WriteFile("src.scss", []byte("a{}")))

	// --- Act & Assert ---
	newer, err := ws.Newer("src.scss", "out.css")
	require.NoError(t, err)
	require.True(t, newer, "missing destination is always stale")

	require.NoError(t, ws.WriteFile("out.css", []byte("a{}")))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "src.scss"), past, past))

	newer, err = ws.Newer("src.scss", "out.css")
	require.NoError(t, err)
	require.False(t, newer)
}

func TestNew_RejectsFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "Gridfile.hcl")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New(file)
	require.Error(t, err)
}

func TestAbsAndRel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ws, err := New(dir)
	require.NoError(t, err)

	abs := ws.Abs("js/global.js")
	require.Equal(t, filepath.Join(ws.Root(), "js", "global.js"), abs)

	rel, err := ws.Rel(abs)
	require.NoError(t, err)
	require.Equal(t, "js/global.js", rel)

	_, err = ws.Rel(filepath.Dir(ws.Root()))
	require.Error(t, err)
}

func TestForEach_StopsOnFirstError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	boom := errors.New("boom")

	err := ForEach(context.Background(), 1, []int{1, 2, 3}, func(ctx context.Context, i int) error {
		calls.Add(1)
		if i == 1 {
			return boom
		}
		return nil
	})

	require.ErrorIs(t, err, boom)
	require.Less(t, calls.Load(), int32(3))
}

func TestForEach_ReturnsPanicAsError(t *testing.T) {
	t.Parallel()

	err := ForEach(context.Background(), 2, []string{"a.js", "b.js"}, func(ctx context.Context, name string) error {
		if name == "b.js" {
			panic("minifier blew up")
		}
		return nil
	})

	require.Error(t, err)
	require.Contains(t, err.Error(), "panic: minifier blew up")
}

func TestMemory_ConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ws := NewMemory()
	items := make([]int, 64)
	for i := range items {
		items[i] = i
	}

	// --- Act ---
	err := ForEach(context.Background(), 8, items, func(ctx context.Context, i int) error {
		name := fmt.Sprintf("css/%d/out.css", i%4)
		if err := ws.WriteFile(name, []byte(fmt.Sprint(i))); err != nil {
			return err
		}
		if _, err := ws.ReadFile(name); err != nil {
			return err
		}
		if _, err := fs.Glob(ws.FS(), "css/*/*.css"); err != nil {
			return err
		}
		_, err := ws.Newer(name, "css/missing.css")
		return err
	})

	// --- Assert ---
	require.NoError(t, err)
	matches, err := fs.Glob(ws.FS(), "css/*/*.css")
	require.NoError(t, err)
	require.Len(t, matches, 4)
	require.Len(t, ws.TakeWritten(), 4)
}

func TestClean(t *testing.T) {
	t.Parallel()

	require.Equal(t, "img/build", Clean("./img/build/"))
	require.Equal(t, "a.js", Clean("/a.js"))
	require.Equal(t, ".", Clean(""))
}
