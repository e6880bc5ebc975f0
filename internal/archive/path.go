package archive

import (
	"archive/zip"
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

var (
	errEmptyName   = errors.New("empty name")
	errBadChar     = errors.New("contains a backslash or NUL byte")
	errAbsolute    = errors.New("is an absolute path")
	errParentDir   = errors.New("contains a parent directory segment")
	errNotLocal    = errors.New("is not a local path")
	errSymlink     = errors.New("is a symbolic link")
	errEscapesRoot = errors.New("resolves outside the scratch directory")
)

// checkEntry rejects entries that could write outside the scratch root.
func checkEntry(f *zip.File) error {
	name := f.Name
	switch {
	case name == "":
		return errEmptyName
	case strings.ContainsAny(name, "\\\x00"):
		return errBadChar
	case path.IsAbs(name), filepath.IsAbs(name), filepath.VolumeName(name) != "":
		return errAbsolute
	case hasParentSegment(name):
		return errParentDir
	case !filepath.IsLocal(filepath.FromSlash(strings.TrimSuffix(name, "/"))):
		return errNotLocal
	case f.Mode()&fs.ModeSymlink != 0:
		return errSymlink
	}
	return nil
}

func hasParentSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// target joins name onto root and verifies the result stays inside root.
func target(root, name string) (string, error) {
	dst := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, dst)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", errEscapesRoot
	}
	return dst, nil
}

// isMetadata reports macOS resource fork entries added by Finder.
func isMetadata(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if seg == "__MACOSX" {
			return true
		}
	}
	return strings.HasPrefix(path.Base(name), "._")
}

func isDir(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

// componentExt returns the lower-cased extension when name is a shapefile
// component this service reads, or "" otherwise.
func componentExt(name string) string {
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case extSHP, extSHX, extDBF, extPRJ, extCPG:
		return ext
	}
	return ""
}

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
