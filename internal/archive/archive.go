// Package archive validates an uploaded ZIP, extracts the shapefile
// components into a private scratch directory and reads them back.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
)

const (
	extSHP = ".shp"
	extSHX = ".shx"
	extDBF = ".dbf"
	extPRJ = ".prj"
	extCPG = ".cpg"
)

// Limits bounds the work a single archive may cause. Zero disables a limit.
type Limits struct {
	MaxArchiveBytes      int64
	MaxUncompressedBytes int64
	MaxEntries           int
}

// Bundle holds the component files of the selected shapefile. Close removes
// the scratch directory and must be called on every path.
type Bundle struct {
	Dir string
	// Name is the archive path of the selected .shp entry.
	Name string

	SHP []byte
	SHX []byte
	DBF []byte
	PRJ []byte
	CPG []byte

	// Shapefiles lists every .shp entry in archive order.
	Shapefiles []string

	release   func() error
	closeOnce sync.Once
	closeErr  error
}

// Close releases the scratch directory. It is safe to call more than once.
func (b *Bundle) Close() error {
	b.closeOnce.Do(func() {
		if b.release != nil {
			b.closeErr = b.release()
		}
	})
	return b.closeErr
}

// Inspect checks data against limits, extracts the shapefile components into
// a directory from scratch and selects the first .shp in archive order.
func Inspect(ctx context.Context, data []byte, scratch ScratchProvider, limits Limits) (*Bundle, error) {
	if limits.MaxArchiveBytes > 0 && int64(len(data)) > limits.MaxArchiveBytes {
		return nil, domain.Errorf(domain.KindLimitExceeded,
			"archive is %d bytes, limit is %d", len(data), limits.MaxArchiveBytes)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// Includes zip.ErrInsecurePath when GODEBUG=zipinsecurepath=0.
		return nil, domain.Errorf(domain.KindArchive, "open zip: %w", err)
	}

	files, err := plan(zr, limits)
	if err != nil {
		return nil, err
	}

	dir, release, err := scratch.Acquire()
	if err != nil {
		return nil, err
	}
	b := &Bundle{Dir: dir, release: release}

	if err := b.extract(ctx, files, limits); err != nil {
		_ = b.Close()
		return nil, err
	}
	if err := b.selectShapefile(files); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// plan validates every entry and returns the component files to extract.
// All checks run before anything is written.
func plan(zr *zip.Reader, limits Limits) ([]*zip.File, error) {
	if limits.MaxEntries > 0 && len(zr.File) > limits.MaxEntries {
		return nil, domain.Errorf(domain.KindLimitExceeded,
			"archive has %d entries, limit is %d", len(zr.File), limits.MaxEntries)
	}

	var declared uint64
	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if err := checkEntry(f); err != nil {
			return nil, domain.Errorf(domain.KindArchive, "entry %q %w", f.Name, err)
		}
		declared += f.UncompressedSize64
		if isDir(f) || isMetadata(f.Name) || componentExt(f.Name) == "" {
			continue
		}
		files = append(files, f)
	}
	if limits.MaxUncompressedBytes > 0 && declared > uint64(limits.MaxUncompressedBytes) {
		return nil, domain.Errorf(domain.KindLimitExceeded,
			"archive expands to %d bytes, limit is %d", declared, limits.MaxUncompressedBytes)
	}
	return files, nil
}

func (b *Bundle) extract(ctx context.Context, files []*zip.File, limits Limits) error {
	remaining := limits.MaxUncompressedBytes
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := b.extractFile(f, remaining, limits.MaxUncompressedBytes > 0)
		if err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// extractFile copies one entry into the scratch directory. When capped, at
// most remaining bytes may be written regardless of the declared size.
func (b *Bundle) extractFile(f *zip.File, remaining int64, capped bool) (int64, error) {
	dst, err := target(b.Dir, f.Name)
	if err != nil {
		return 0, domain.Errorf(domain.KindArchive, "entry %q %w", f.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return 0, fmt.Errorf("create entry dir: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, domain.Errorf(domain.KindArchive, "open entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, domain.Errorf(domain.KindArchive, "duplicate entry %q", f.Name)
		}
		return 0, fmt.Errorf("create entry file: %w", err)
	}
	defer out.Close()

	var src io.Reader = rc
	if capped {
		src = io.LimitReader(rc, remaining+1)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		return n, domain.Errorf(domain.KindArchive, "extract entry %q: %w", f.Name, err)
	}
	if capped && n > remaining {
		return n, domain.Errorf(domain.KindLimitExceeded,
			"entry %q expands past the uncompressed size limit", f.Name)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("write entry file: %w", err)
	}
	return n, nil
}

// selectShapefile picks the first .shp and reads its siblings back from
// scratch. Siblings share the directory and base name; extensions compare
// case-insensitively.
func (b *Bundle) selectShapefile(files []*zip.File) error {
	siblings := make(map[string]string)
	for _, f := range files {
		if componentExt(f.Name) == extSHP {
			b.Shapefiles = append(b.Shapefiles, f.Name)
		}
	}
	if len(b.Shapefiles) == 0 {
		return domain.Errorf(domain.KindArchive, "archive contains no .shp file")
	}
	b.Name = b.Shapefiles[0]
	want := stem(b.Name)
	for _, f := range files {
		ext := componentExt(f.Name)
		if stem(f.Name) != want {
			continue
		}
		if _, ok := siblings[ext]; !ok {
			siblings[ext] = f.Name
		}
	}
	if _, ok := siblings[extDBF]; !ok {
		return domain.Errorf(domain.KindArchive, "%s has no matching .dbf", path.Base(b.Name))
	}

	for ext, dst := range map[string]*[]byte{
		extSHP: &b.SHP,
		extSHX: &b.SHX,
		extDBF: &b.DBF,
		extPRJ: &b.PRJ,
		extCPG: &b.CPG,
	} {
		name, ok := siblings[ext]
		if !ok {
			continue
		}
		p, err := target(b.Dir, name)
		if err != nil {
			return domain.Errorf(domain.KindArchive, "entry %q %w", name, err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", ext, err)
		}
		*dst = data
	}
	return nil
}
