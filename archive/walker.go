// Package archive gives access to image sources packed into zip archives.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding"
)

// WalkFunc is called for every file in archive visited by Walk. The name
// argument is path of the file inside archive, converted to UTF-8 when
// requested. If an error is returned, processing stops.
type WalkFunc func(name string, file *zip.File) error

// Walk visits all files in the archive located under pathIn (whole archive
// when empty). pathIn may also name a single file. Non UTF-8 names are
// converted using cp when it is not nil. Archives having entries with
// absolute paths or ".." components are rejected.
func Walk(ctx context.Context, archive, pathIn string, cp encoding.Encoding, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	pathIn = strings.Trim(filepath.ToSlash(pathIn), "/")
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, err := decodeName(f, cp)
		if err != nil {
			return err
		}
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !under(name, pathIn) {
			continue
		}
		if err := walkFn(name, f); err != nil {
			return err
		}
	}
	return nil
}

// Extract copies files under pathIn into dir keeping their relative
// location. It returns paths of extracted files in archive order.
func Extract(ctx context.Context, archive, pathIn, dir string, cp encoding.Encoding) ([]string, error) {
	var out []string
	err := Walk(ctx, archive, pathIn, cp, func(name string, f *zip.File) error {
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		if err := extractFile(f, dst); err != nil {
			return fmt.Errorf("unable to extract %q: %w", name, err)
		}
		out = append(out, dst)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IsArchive reports if file looks like zip archive.
func IsArchive(fname string) (bool, error) {
	f, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// 262 bytes is enough for filetype to detect any supported format
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

func extractFile(f *zip.File, dst string) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func decodeName(f *zip.File, cp encoding.Encoding) (string, error) {
	name := f.FileHeader.Name
	if cp == nil || !f.FileHeader.NonUTF8 {
		return name, nil
	}
	decoded, err := cp.NewDecoder().String(name)
	if err != nil {
		return "", fmt.Errorf("zip entry %q: unable to convert name: %w", name, err)
	}
	return decoded, nil
}

func under(name, pathIn string) bool {
	if len(pathIn) == 0 {
		return true
	}
	return name == pathIn || strings.HasPrefix(name, pathIn+"/")
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) || filepath.VolumeName(name) != "" {
		return false
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return false
		}
	}
	return true
}
