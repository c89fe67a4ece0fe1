package sprite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/ianaindex"

	"spritesheet/css"
	"spritesheet/layout"
	"spritesheet/magick"
	"spritesheet/misc"
	"spritesheet/state"
	"spritesheet/utils/images"
)

// Result describes outputs of a single task.
type Result struct {
	Arrangement layout.Arrangement
	Images      []string
	Stylesheet  string
	// empty when composition was skipped
	Sheet string
}

// Run is action for build command: executes requested tasks (all when none
// specified) in parallel.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	env.Overwrite, env.DryRun = cmd.Bool("overwrite"), cmd.Bool("dry-run")
	if jobs := int(cmd.Int("jobs")); jobs > 0 {
		env.Jobs = jobs
	}
	if p := cmd.String("magick"); len(p) > 0 {
		env.MagickPath = p
	}

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	tasks, err := selectTasks(env, cmd.Args().Slice())
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		log.Warn("No tasks configured, nothing to do")
		return nil
	}

	var runner *magick.Runner
	if !env.DryRun {
		if runner, err = magick.NewRunner(env.Magick(), log); err != nil {
			return err
		}
		log.Debug("Using montage", zap.String("path", runner.Path()))
	}

	log.Info("Processing starting", zap.Int("tasks", len(tasks)), zap.Int("jobs", env.Jobs), zap.Bool("dry-run", env.DryRun))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, tasks, runner, log)
}

// selectTasks prepares options for requested tasks, names must exist in
// configuration.
func selectTasks(env *state.LocalEnv, names []string) ([]Options, error) {
	var tasks []Options
	if len(names) == 0 {
		for i := range env.Cfg.Tasks {
			opts, err := NewOptions(env.Cfg, &env.Cfg.Tasks[i], i)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, opts)
		}
		return tasks, nil
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		t, ok := env.Cfg.FindTask(name)
		if !ok {
			return nil, fmt.Errorf("task %q is not configured", name)
		}
		opts, err := NewOptions(env.Cfg, t, taskIndex(env, name))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, opts)
	}
	return tasks, nil
}

func taskIndex(env *state.LocalEnv, name string) int {
	for i := range env.Cfg.Tasks {
		if env.Cfg.Tasks[i].Name == name {
			return i
		}
	}
	return -1
}

// process runs tasks independently of CLI framework. Failed task does not
// stop others, all failures are returned together.
func process(ctx context.Context, tasks []Options, runner *magick.Runner, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var (
		mu     sync.Mutex
		errs   error
		failed int
	)

	g := new(errgroup.Group)
	g.SetLimit(max(env.Jobs, 1))
	for _, opts := range tasks {
		g.Go(func() error {
			if _, err := Build(ctx, opts, runner, log.With(zap.String("task", opts.Name))); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("task %q: %w", opts.Name, err))
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		return fmt.Errorf("%d of %d task(s) failed: %w", failed, len(tasks), errs)
	}
	return nil
}

// Build executes single task. When runner is nil (dry run) only stylesheet
// is produced.
func Build(ctx context.Context, opts Options, runner *magick.Runner, log *zap.Logger) (res *Result, rerr error) {
	env := state.EnvFromContext(ctx)

	log.Info("Task starting", zap.String("destination", opts.Destination))
	defer func(start time.Time) {
		// NOTE: image libraries may panic on broken input, other tasks must
		// continue.
		if r := recover(); r != nil {
			log.Error("Task ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("task panic: %v", r)
		} else if rerr == nil {
			log.Info("Task completed", zap.Duration("elapsed", time.Since(start)), zap.Stringer("grid", res.Arrangement), zap.Int("images", len(res.Images)))
		}
	}(time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", fmt.Sprintf("%s-%s-", misc.GetAppName(), uuid.NewString()))
	if err != nil {
		return nil, fmt.Errorf("unable to create work directory: %w", err)
	}
	if env.Rpt != nil {
		// report owns it now and removes it when closed
		env.Rpt.Store(fmt.Sprintf("%s/work", opts.Name), workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	src := &sourceSet{opts: &opts, workDir: workDir, cp: env.CodePage, log: log}
	files, err := src.collect(ctx)
	if err != nil {
		return nil, err
	}

	arr, sheet, err := generate(files, opts, log)
	if err != nil {
		return nil, err
	}
	res = &Result{Arrangement: arr, Images: files, Stylesheet: opts.StylesheetPath()}

	if err := prepareOutput(res.Stylesheet, env.Overwrite, log); err != nil {
		return nil, err
	}
	if runner != nil {
		if err := prepareOutput(opts.ImagePath(), env.Overwrite, log); err != nil {
			return nil, err
		}
	}

	if err := writeStylesheet(res.Stylesheet, sheet); err != nil {
		return nil, err
	}
	log.Debug("Stylesheet written", zap.String("file", res.Stylesheet), zap.Int("rules", len(sheet.Rules)))

	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("%s/%s", opts.Name, filepath.Base(res.Stylesheet)), res.Stylesheet)
		env.Rpt.StoreData(fmt.Sprintf("%s/plan.txt", opts.Name), []byte(describe(opts, arr, files)))
	}

	if runner == nil {
		log.Info("Dry run, sheet composition skipped", zap.Stringer("grid", arr))
		return res, nil
	}

	m := magick.Montage{
		Cols:  arr.Cols,
		Size:  opts.Size,
		Extra: opts.Magick,
		Files: files,
		Dest:  opts.ImagePath(),
	}
	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("%s/montage.txt", opts.Name), []byte(strings.Join(runner.Command(m), "\n")))
	}
	if err := runner.Run(ctx, m); err != nil {
		return nil, err
	}
	res.Sheet = m.Dest

	verifySheet(res.Sheet, arr, opts.Size, log)
	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("%s/%s", opts.Name, filepath.Base(res.Sheet)), res.Sheet)
	}
	return res, nil
}

// generate lays images out and produces stylesheet, making sure it could be
// read back as intended.
func generate(files []string, opts Options, log *zap.Logger) (layout.Arrangement, *css.Stylesheet, error) {
	arr, err := layout.Resolve(len(files), opts.Request)
	if err != nil {
		return layout.Arrangement{}, nil, fmt.Errorf("no usable images: %w", err)
	}
	log.Debug("Arrangement resolved", zap.Int("images", len(files)), zap.Int("cols", arr.Cols), zap.Int("rows", arr.Rows))

	sheet := css.Generate(css.NewImages(files), arr, opts.Size, opts.Selectors, opts.BaseProperties())
	if err := verifyStylesheet(sheet, opts.StylesheetPath(), log); err != nil {
		return layout.Arrangement{}, nil, err
	}
	return arr, sheet, nil
}

// verifyStylesheet parses generated text back. Selector fragments come from
// configuration as is, so selectors are compared in normalized form.
func verifyStylesheet(sheet *css.Stylesheet, name string, log *zap.Logger) error {
	var want []string
	for _, r := range sheet.Rules {
		want = append(want, css.SelectorList(r.Selector)...)
	}
	parsed := css.NewParser(log).Parse([]byte(sheet.String()), name)
	if len(parsed.Rules) != len(want) {
		return fmt.Errorf("generated stylesheet is malformed: %d selectors generated, %d parsed back", len(want), len(parsed.Rules))
	}
	for i := range want {
		if got := css.NormalizeSelector(parsed.Rules[i].Selector); got != want[i] {
			return fmt.Errorf("generated stylesheet is malformed: selector %q parsed back as %q", want[i], got)
		}
	}
	return nil
}

// prepareOutput refuses to replace existing file unless asked to and makes
// sure directory exists.
func prepareOutput(fname string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(fname); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", fname)
		}
		log.Warn("Overwriting existing file", zap.String("file", fname))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

func writeStylesheet(fname string, sheet *css.Stylesheet) error {
	buf := new(bytes.Buffer)
	if _, err := sheet.WriteTo(buf); err != nil {
		return err
	}
	if err := os.WriteFile(fname, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	return nil
}

// verifySheet compares composed sheet with expected size. Montage options
// (borders, spacing) may legitimately change it, so only warn.
func verifySheet(fname string, arr layout.Arrangement, size layout.TileSize, log *zap.Logger) {
	got, err := images.Size(fname)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("Montage did not produce sheet", zap.String("file", fname))
			return
		}
		log.Warn("Unable to check sheet size", zap.String("file", fname), zap.Error(err))
		return
	}
	w, h := arr.SheetSize(size)
	if got.X != w || got.Y != h {
		log.Warn("Sheet size differs from expected, offsets may be wrong",
			zap.String("file", fname), zap.String("expected", fmt.Sprintf("%dx%d", w, h)), zap.String("actual", fmt.Sprintf("%dx%d", got.X, got.Y)))
	}
}
