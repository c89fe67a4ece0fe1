package sprite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"spritesheet/config"
	"spritesheet/css"
	"spritesheet/layout"
	"spritesheet/misc"
	"spritesheet/state"
	"spritesheet/utils/debug"
)

// Stylesheet is action for css command: prints stylesheet for given files
// using default task options, nothing is composed or written.
func Stylesheet(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("css")

	if cmd.NArg() == 0 {
		return errors.New("no input files have been specified")
	}

	task := &config.TaskConfig{Name: "css", Sources: cmd.Args().Slice(), Destination: "."}
	opts, err := NewOptions(env.Cfg, task, 0)
	if err != nil {
		return err
	}
	if s := cmd.String("size"); len(s) > 0 {
		if opts.Size, err = ParseTileSize(s); err != nil {
			return err
		}
	}
	if cmd.IsSet("rows") {
		opts.Request.Rows = int(cmd.Int("rows"))
	}
	if cmd.IsSet("cols") {
		opts.Request.Cols = int(cmd.Int("cols"))
	}

	workDir, err := os.MkdirTemp("", misc.GetAppName()+"-css-")
	if err != nil {
		return fmt.Errorf("unable to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	src := &sourceSet{opts: &opts, workDir: workDir, cp: env.CodePage, log: log}
	files, err := src.collect(ctx)
	if err != nil {
		return err
	}
	_, sheet, err := generate(files, opts, log)
	if err != nil {
		return err
	}
	_, err = sheet.WriteTo(output(cmd))
	return err
}

// Layout is action for layout command: prints resolved arrangement for
// number of images and optionally map of cells.
func Layout(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	count, err := strconv.Atoi(cmd.Args().Get(0))
	if err != nil {
		return fmt.Errorf("number of images is expected: %w", err)
	}
	arr, err := layout.Resolve(count, layout.Request{Rows: int(cmd.Int("rows")), Cols: int(cmd.Int("cols"))})
	if err != nil {
		return err
	}

	out := output(cmd)
	if _, err := fmt.Fprintln(out, arr.String()); err != nil {
		return err
	}
	if cmd.Bool("map") {
		_, err = io.WriteString(out, cellMap(arr, count))
	}
	return err
}

// ParseTileSize accepts "N" for square tiles or "WxH".
func ParseTileSize(s string) (layout.TileSize, error) {
	ws, hs, found := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	w, err := strconv.Atoi(ws)
	if err != nil {
		return layout.TileSize{}, fmt.Errorf("bad tile size %q: %w", s, err)
	}
	h := w
	if found {
		if h, err = strconv.Atoi(hs); err != nil {
			return layout.TileSize{}, fmt.Errorf("bad tile size %q: %w", s, err)
		}
	}
	if w <= 0 || h <= 0 {
		return layout.TileSize{}, fmt.Errorf("bad tile size %q: dimensions must be positive", s)
	}
	return layout.TileSize{Width: w, Height: h}, nil
}

// cellMap shows ordinal of the image in every cell, unused cells are dots.
func cellMap(arr layout.Arrangement, count int) string {
	width := len(strconv.Itoa(count - 1))
	tw := debug.NewTreeWriter()
	for row := range arr.Rows {
		cells := make([]string, arr.Cols)
		for col := range arr.Cols {
			if i := row*arr.Cols + col; i < count {
				cells[col] = strconv.Itoa(i)
			} else {
				cells[col] = "."
			}
		}
		tw.Row(0, width, cells...)
	}
	return tw.String()
}

// describe dumps task plan for debug report.
func describe(opts Options, arr layout.Arrangement, files []string) string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "task %d: %s", opts.Index, opts.Name)
	tw.TextBlock(1, "destination", opts.Destination)
	tw.TextBlock(1, "stylesheet", opts.OutputStylesheet)
	tw.TextBlock(1, "image", opts.OutputImage)
	tw.TextBlock(1, "url", opts.ImageURL)
	tw.Line(1, "tile: %s", opts.Size)
	tw.Line(1, "grid: %d cols x %d rows (hint %d cols, %d rows)", arr.Cols, arr.Rows, opts.Request.Cols, opts.Request.Rows)
	tw.Line(1, "images: %d", len(files))
	for i, f := range files {
		left, top := arr.Offset(i, opts.Size)
		tw.Line(2, "%d: %dpx %dpx", i, left, top)
		tw.TextBlock(3, "file", filepath.ToSlash(f))
		tw.TextBlock(3, "class", css.ClassName(filepath.Base(f)))
	}
	tw.Line(1, "map:")
	for _, line := range strings.Split(strings.TrimSuffix(cellMap(arr, len(files)), "\n"), "\n") {
		tw.Line(2, "%s", line)
	}
	return tw.String()
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
