package sprite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"spritesheet/archive"
	"spritesheet/common"
	"spritesheet/css"
	"spritesheet/utils/images"
)

// sourceSet gathers image files for a single task. Files coming from
// archives or produced by rasterization are put into work directory.
type sourceSet struct {
	opts    *Options
	workDir string
	cp      encoding.Encoding
	log     *zap.Logger
	// number of archives extracted so far, used for unique subdirectories
	extracted int
}

// collect expands all task sources and returns image files in the order
// they will be placed on the sheet. Missing sources and files which are not
// images are reported and skipped.
func (s *sourceSet) collect(ctx context.Context) ([]string, error) {
	var found []string
	for _, src := range s.opts.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.expand(ctx, src)
		if err != nil {
			return nil, err
		}
		found = append(found, files...)
	}

	files := make([]string, 0, len(found))
	for _, f := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind, err := images.Detect(f)
		if err != nil {
			if errors.Is(err, images.ErrNotImage) {
				s.log.Warn("Source file is not an image, skipping", zap.String("file", f))
			} else {
				s.log.Warn("Unable to read source file, skipping", zap.String("file", f), zap.Error(err))
			}
			continue
		}
		if kind == images.KindSVG && s.opts.RasterizeSVG {
			if f, err = s.rasterize(f); err != nil {
				s.log.Warn("Unable to rasterize source file, skipping", zap.String("file", f), zap.Error(err))
				continue
			}
		}
		files = append(files, f)
	}

	sortFiles(files, s.opts.Sort)
	s.checkDuplicates(files)
	return files, nil
}

// expand turns single source entry into list of files. Source could
// be glob pattern, file, directory (files directly in it), zip archive or
// path inside zip archive ("icons.zip/set/").
func (s *sourceSet) expand(ctx context.Context, src string) ([]string, error) {
	fi, err := os.Stat(src)
	if err == nil {
		switch {
		case fi.Mode().IsDir():
			return listDir(src, s.log)
		case fi.Mode().IsRegular():
			if ok, err := archive.IsArchive(src); err == nil && ok {
				return s.extract(ctx, src, "")
			}
			return []string{src}, nil
		default:
			s.log.Warn("Source is not a regular file or directory, skipping", zap.String("source", src))
			return nil, nil
		}
	}

	if head, tail, ok := splitArchivePath(src); ok {
		return s.extract(ctx, head, tail)
	}

	if hasMeta(src) {
		matches, err := filepath.Glob(src)
		if err != nil {
			return nil, fmt.Errorf("bad source pattern %q: %w", src, err)
		}
		if len(matches) == 0 {
			s.log.Warn("Source pattern does not match anything", zap.String("pattern", src))
		}
		files := make([]string, 0, len(matches))
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
				files = append(files, m)
			}
		}
		return files, nil
	}

	s.log.Warn("Source file not found, skipping", zap.String("source", src))
	return nil, nil
}

func (s *sourceSet) extract(ctx context.Context, arc, pathIn string) ([]string, error) {
	s.extracted++
	dir := filepath.Join(s.workDir, "zip-"+strconv.Itoa(s.extracted))

	files, err := archive.Extract(ctx, arc, pathIn, dir, s.cp)
	if err != nil {
		return nil, fmt.Errorf("unable to extract sources from %s: %w", arc, err)
	}
	if len(files) == 0 {
		s.log.Warn("Nothing found in archive", zap.String("archive", arc), zap.String("path", pathIn))
	}
	s.log.Debug("Extracted sources", zap.String("archive", arc), zap.String("path", pathIn), zap.Int("count", len(files)))
	return files, nil
}

// rasterize renders vector image into tile sized PNG with the same base
// name, so selector stays the same.
func (s *sourceSet) rasterize(src string) (string, error) {
	dir := filepath.Join(s.workDir, "svg")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return src, err
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst := filepath.Join(dir, base+".png")
	for i := 1; ; i++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		// same name from different directory, keep file base intact
		dst = filepath.Join(dir, strconv.Itoa(i), base+".png")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return src, err
	}
	if err := images.RasterizeSVGFile(src, dst, s.opts.Size.Width, s.opts.Size.Height); err != nil {
		return src, err
	}
	s.log.Debug("Rasterized vector image", zap.String("from", src), zap.String("to", dst))
	return dst, nil
}

// checkDuplicates warns when different files end up with the same selector,
// only the last rule would have effect in browser.
func (s *sourceSet) checkDuplicates(files []string) {
	seen := make(map[string]string, len(files))
	for _, f := range files {
		name := css.ClassName(filepath.Base(f))
		if prev, exists := seen[name]; exists {
			s.log.Warn("Different images produce the same selector", zap.String("selector", name), zap.String("first", prev), zap.String("second", f))
			continue
		}
		seen[name] = f
	}
}

func listDir(dir string, log *zap.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read source directory: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			log.Debug("Skipping directory entry", zap.String("dir", dir), zap.String("name", e.Name()))
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// splitArchivePath looks for existing zip archive at the beginning of the
// path, the rest is path inside archive.
func splitArchivePath(src string) (head, tail string, ok bool) {
	src = filepath.Clean(src)
	for head = src; ; {
		dir := filepath.Dir(head)
		if dir == head {
			return "", "", false
		}
		head = dir
		fi, err := os.Stat(head)
		if err != nil {
			continue
		}
		if !fi.Mode().IsRegular() {
			return "", "", false
		}
		if ok, err := archive.IsArchive(head); err != nil || !ok {
			return "", "", false
		}
		tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
		return head, filepath.ToSlash(tail), true
	}
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[`)
}

func sortFiles(files []string, mode common.SortMode) {
	switch mode {
	case common.SortModeNatural:
		sort.SliceStable(files, func(i, j int) bool {
			return natural.Less(filepath.Base(files[i]), filepath.Base(files[j]))
		})
	case common.SortModeLexical:
		sort.SliceStable(files, func(i, j int) bool {
			return filepath.Base(files[i]) < filepath.Base(files[j])
		})
	}
}
