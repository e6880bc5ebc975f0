package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile/shptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingScratch struct {
	root     string
	acquired int
	released int
	err      error
}

func (s *countingScratch) Acquire() (string, func() error, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	dir, release, err := DirScratch{Root: s.root}.Acquire()
	if err != nil {
		return "", nil, err
	}
	s.acquired++
	return dir, func() error {
		s.released++
		return release()
	}, nil
}

func entry(name, data string) shptest.Entry {
	return shptest.Entry{Name: name, Data: []byte(data)}
}

func TestInspect_SelectsFirstShapefileAndSiblings(t *testing.T) {
	data := shptest.Zip(
		entry("__MACOSX/data/._roads.shp", "resource fork"),
		entry("data/", ""),
		entry("data/roads.shp", "shp"),
		entry("data/roads.DBF", "dbf"),
		entry("data/roads.prj", "prj"),
		entry("data/Roads.cpg", "other stem"),
		entry("readme.txt", "ignored"),
		entry("rivers.shp", "second"),
		entry("rivers.dbf", "second dbf"),
	)

	b, err := Inspect(context.Background(), data, DirScratch{Root: t.TempDir()}, Limits{})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "data/roads.shp", b.Name)
	assert.Equal(t, []string{"data/roads.shp", "rivers.shp"}, b.Shapefiles)
	assert.Equal(t, []byte("shp"), b.SHP)
	assert.Equal(t, []byte("dbf"), b.DBF)
	assert.Equal(t, []byte("prj"), b.PRJ)
	assert.Nil(t, b.SHX)
	assert.Nil(t, b.CPG)

	_, err = os.Stat(filepath.Join(b.Dir, "readme.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "non-component entries are not extracted")
	_, err = os.Stat(filepath.Join(b.Dir, "__MACOSX"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "macOS metadata is not extracted")
}

func TestBundle_CloseRemovesScratchOnce(t *testing.T) {
	scratch := &countingScratch{root: t.TempDir()}
	data := shptest.Zip(entry("a.shp", "shp"), entry("a.dbf", "dbf"))

	b, err := Inspect(context.Background(), data, scratch, Limits{})
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, scratch.released)
	_, err = os.Stat(b.Dir)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestInspect_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		limits  Limits
		wantErr error
	}{
		{
			name:    "not a zip",
			data:    []byte("this is not a zip archive"),
			wantErr: domain.ErrArchive,
		},
		{
			name:    "no shp",
			data:    shptest.Zip(entry("a.dbf", "dbf"), entry("a.prj", "prj")),
			wantErr: domain.ErrArchive,
		},
		{
			name:    "missing dbf",
			data:    shptest.Zip(entry("a.shp", "shp"), entry("b.dbf", "dbf")),
			wantErr: domain.ErrArchive,
		},
		{
			name:    "dbf in another directory",
			data:    shptest.Zip(entry("x/a.shp", "shp"), entry("y/a.dbf", "dbf")),
			wantErr: domain.ErrArchive,
		},
		{
			name:    "duplicate entry",
			data:    shptest.Zip(entry("a.shp", "1"), entry("a.shp", "2"), entry("a.dbf", "dbf")),
			wantErr: domain.ErrArchive,
		},
		{
			name:    "archive too large",
			data:    shptest.Zip(entry("a.shp", "shp"), entry("a.dbf", "dbf")),
			limits:  Limits{MaxArchiveBytes: 10},
			wantErr: domain.ErrLimitExceeded,
		},
		{
			name:    "too many entries",
			data:    shptest.Zip(entry("a.shp", "shp"), entry("a.dbf", "dbf"), entry("a.prj", "prj")),
			limits:  Limits{MaxEntries: 2},
			wantErr: domain.ErrLimitExceeded,
		},
		{
			name:    "expands too far",
			data:    shptest.Zip(entry("a.shp", string(make([]byte, 4096))), entry("a.dbf", "dbf")),
			limits:  Limits{MaxUncompressedBytes: 1024},
			wantErr: domain.ErrLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Inspect(context.Background(), tt.data, DirScratch{Root: t.TempDir()}, tt.limits)
			assert.Nil(t, b)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInspect_UnsafeEntriesNeverWritten(t *testing.T) {
	tests := []struct {
		name  string
		entry shptest.Entry
	}{
		{"parent directory", entry("../evil.shp", "x")},
		{"nested parent directory", entry("data/../../evil.shp", "x")},
		{"absolute", entry("/tmp/evil.shp", "x")},
		{"backslash", entry("..\\evil.shp", "x")},
		{"nul byte", entry("evil\x00.shp", "x")},
		{"symlink", shptest.Entry{Name: "evil.shp", Data: []byte("/etc/passwd"), Mode: fs.ModeSymlink | 0o777}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			root := filepath.Join(parent, "scratch")
			require.NoError(t, os.Mkdir(root, 0o700))
			scratch := &countingScratch{root: root}

			data := shptest.Zip(entry("a.shp", "shp"), entry("a.dbf", "dbf"), tt.entry)
			_, err := Inspect(context.Background(), data, scratch, Limits{})
			require.ErrorIs(t, err, domain.ErrArchive)

			assert.Zero(t, scratch.acquired, "rejected before any scratch dir is created")
			left, err := os.ReadDir(root)
			require.NoError(t, err)
			assert.Empty(t, left)
			_, err = os.Stat(filepath.Join(parent, "evil.shp"))
			assert.True(t, errors.Is(err, fs.ErrNotExist))
		})
	}
}

func TestInspect_ReleasesScratchOnFailure(t *testing.T) {
	scratch := &countingScratch{root: t.TempDir()}
	data := shptest.Zip(entry("a.shp", "shp"))

	_, err := Inspect(context.Background(), data, scratch, Limits{})
	require.ErrorIs(t, err, domain.ErrArchive)
	assert.Equal(t, 1, scratch.acquired)
	assert.Equal(t, 1, scratch.released)
}

func TestInspect_ScratchFailureIsInternal(t *testing.T) {
	scratch := &countingScratch{err: errors.New("disk full")}
	data := shptest.Zip(entry("a.shp", "shp"), entry("a.dbf", "dbf"))

	_, err := Inspect(context.Background(), data, scratch, Limits{})
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestInspect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scratch := &countingScratch{root: t.TempDir()}

	_, err := Inspect(ctx, shptest.Zip(entry("a.shp", "shp"), entry("a.dbf", "dbf")), scratch, Limits{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, scratch.released)
}

func TestPathHelpers(t *testing.T) {
	assert.True(t, hasParentSegment("a/../b"))
	assert.False(t, hasParentSegment("a/..b/c"))
	assert.True(t, isMetadata("__MACOSX/x.shp"))
	assert.True(t, isMetadata("dir/._x.shp"))
	assert.False(t, isMetadata("dir/x.shp"))
	assert.Equal(t, ".dbf", componentExt("A.DBF"))
	assert.Empty(t, componentExt("notes.txt"))

	_, err := target("/scratch", "a/b.shp")
	assert.NoError(t, err)
	_, err = target("/scratch", "../b.shp")
	assert.ErrorIs(t, err, errEscapesRoot)
}
