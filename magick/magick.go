// Package magick drives ImageMagick montage which composes sprite sheets.
package magick

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"spritesheet/layout"
)

var ErrNotFound = errors.New("imagemagick montage was not found")

// Option is additional montage command line option, passed as "-Key Value".
// Value could be empty for options without arguments.
type Option struct {
	Key   string
	Value string
}

// Montage describes single sheet composition.
type Montage struct {
	Cols  int
	Size  layout.TileSize
	Extra []Option
	Files []string
	Dest  string
}

// Args returns montage arguments:
// -tile <cols>x -geometry <w>x<h> [-<key> <value>...] <files...> <dest>
func (m Montage) Args() []string {
	args := make([]string, 0, 4+2*len(m.Extra)+len(m.Files)+1)
	args = append(args, "-tile", fmt.Sprintf("%dx", m.Cols), "-geometry", m.Size.String())
	for _, o := range m.Extra {
		args = append(args, "-"+strings.TrimLeft(o.Key, "-"))
		if len(o.Value) > 0 {
			args = append(args, o.Value)
		}
	}
	args = append(args, m.Files...)
	return append(args, m.Dest)
}

// Runner executes montage binary located once.
type Runner struct {
	bin string
	// "magick montage" for ImageMagick 7 single binary installations
	sub []string
	log *zap.Logger
}

// NewRunner locates montage. When path is empty "montage" and then "magick"
// are looked up in PATH.
func NewRunner(path string, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{log: log.Named("magick")}

	candidates := []string{"montage", "magick"}
	if len(path) > 0 {
		candidates = []string{path}
	}

	var err error
	for _, c := range candidates {
		if r.bin, err = exec.LookPath(c); err == nil {
			break
		}
		r.log.Debug("Montage candidate rejected", zap.String("candidate", c), zap.Error(err))
		r.bin = ""
	}
	if len(r.bin) == 0 {
		return nil, fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(candidates, ", "))
	}
	if strings.EqualFold(strings.TrimSuffix(filepath.Base(r.bin), filepath.Ext(r.bin)), "magick") {
		r.sub = []string{"montage"}
	}
	return r, nil
}

// Path returns located binary.
func (r *Runner) Path() string {
	return r.bin
}

// Command returns full command line for the montage, handy for logs and
// reports.
func (r *Runner) Command(m Montage) []string {
	return append(append([]string{r.bin}, r.sub...), m.Args()...)
}

// Run composes the sheet. Montage output is logged, on failure its stderr
// is included in the returned error.
func (r *Runner) Run(ctx context.Context, m Montage) error {
	args := append(append([]string{}, r.sub...), m.Args()...)

	cmd := exec.CommandContext(ctx, r.bin, args...)
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("unable to redirect montage output: %w", err)
	}

	r.log.Debug("Starting montage", zap.String("bin", r.bin), zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("unable to start montage: %w", err)
	}

	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		r.log.Debug(scanner.Text())
	}
	serr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && stderr.Len() > 0 {
			return fmt.Errorf("montage failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("montage failed: %w", err)
	}
	if serr != nil {
		return fmt.Errorf("montage stdout pipe broken: %w", serr)
	}
	if stderr.Len() > 0 {
		// montage reports warnings this way and still succeeds
		r.log.Warn("Montage complained", zap.String("stderr", strings.TrimSpace(stderr.String())))
	}
	return nil
}
