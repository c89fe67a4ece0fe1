// Package sprite runs configured tasks: collects images, lays them out,
// writes stylesheet and has ImageMagick compose the sheet.
package sprite

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"spritesheet/common"
	"spritesheet/config"
	"spritesheet/css"
	"spritesheet/layout"
	"spritesheet/magick"
)

// Options is everything single task needs, prepared once from
// configuration. It is passed by value and never changed afterwards.
type Options struct {
	Name        string
	Index       int
	Sources     []string
	Destination string

	Size      layout.TileSize
	Request   layout.Request
	Selectors css.Selectors
	// relative to Destination, expanded and cleaned
	OutputImage      string
	OutputStylesheet string
	// name used in url() of the base rule
	ImageURL  string
	BaseRules css.Properties
	Magick    []magick.Option

	Sort         common.SortMode
	RasterizeSVG bool
}

// Values are available in output name templates.
type Values struct {
	Context     string
	Task        string
	Index       int
	Destination string
}

// NewOptions combines configured defaults with task options. Index is task
// position in configuration.
func NewOptions(cfg *config.Config, task *config.TaskConfig, index int) (Options, error) {
	oc, err := cfg.TaskOptions(task)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		Name:        task.Name,
		Index:       index,
		Sources:     append([]string(nil), task.Sources...),
		Destination: filepath.Clean(task.Destination),
		Size:        layout.TileSize{Width: oc.Size.Width, Height: oc.Size.Height},
		Request:     layout.Request{Rows: oc.Arrange.Rows, Cols: oc.Arrange.Cols},
		Selectors: css.Selectors{
			Base:   oc.BasePrefix,
			Prefix: oc.Prefix,
			Suffix: oc.Suffix,
		},
		Sort:         oc.Sort,
		RasterizeSVG: oc.RasterizeSVG,
	}
	for _, item := range oc.BaseRules {
		opts.BaseRules = opts.BaseRules.With(item.Key, item.Value)
	}
	for _, item := range oc.Magick {
		opts.Magick = append(opts.Magick, magick.Option{Key: item.Key, Value: item.Value})
	}

	values := Values{Task: task.Name, Index: index, Destination: opts.Destination}

	if opts.OutputImage, err = outputName(config.OutputImageFieldName, oc.OutputImage, values, oc.FileNameTransliterate); err != nil {
		return Options{}, fmt.Errorf("task %q: %w", task.Name, err)
	}
	if opts.OutputStylesheet, err = outputName(config.OutputStylesheetFieldName, oc.OutputStylesheet, values, oc.FileNameTransliterate); err != nil {
		return Options{}, fmt.Errorf("task %q: %w", task.Name, err)
	}
	if opts.OutputImage == opts.OutputStylesheet {
		return Options{}, fmt.Errorf("task %q: image and stylesheet would be written to the same file %q", task.Name, opts.OutputImage)
	}

	opts.ImageURL = filepath.ToSlash(opts.OutputImage)
	if len(oc.OutputImageOverriddenName) > 0 {
		// this one is used as is, it could be absolute URL
		if opts.ImageURL, err = expandTemplate(config.OutputOverriddenFieldName, oc.OutputImageOverriddenName, values); err != nil {
			return Options{}, fmt.Errorf("task %q: %w", task.Name, err)
		}
	}
	return opts, nil
}

// BaseProperties returns properties of the base rule: configured ones
// followed by background, width and height.
func (o Options) BaseProperties() css.Properties {
	return o.BaseRules.
		With("background", css.URL(o.ImageURL)+" no-repeat").
		With("width", fmt.Sprintf("%dpx", o.Size.Width)).
		With("height", fmt.Sprintf("%dpx", o.Size.Height))
}

// ImagePath returns full path of composed sheet.
func (o Options) ImagePath() string {
	return filepath.Join(o.Destination, o.OutputImage)
}

// StylesheetPath returns full path of generated stylesheet.
func (o Options) StylesheetPath() string {
	return filepath.Join(o.Destination, o.OutputStylesheet)
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("unable to expand template field %s: %w", name, err)
	}
	return buf.String(), nil
}

// outputName expands template and cleans every path segment of the result,
// so name could put file into subdirectory of the task destination.
func outputName(name config.TemplateFieldName, field string, values Values, transliterate bool) (string, error) {
	expanded, err := expandTemplate(name, field, values)
	if err != nil {
		return "", err
	}

	var segments []string
	for _, s := range strings.FieldsFunc(filepath.FromSlash(expanded), func(r rune) bool { return r == filepath.Separator }) {
		if s == "." || s == ".." {
			continue
		}
		segments = append(segments, s)
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("template field %s expanded to empty name", name)
	}

	for i, s := range segments {
		ext := ""
		if i == len(segments)-1 {
			ext = filepath.Ext(s)
			s = strings.TrimSuffix(s, ext)
		}
		if transliterate {
			s = slug.Make(s)
		}
		segments[i] = config.CleanFileName(s) + ext
	}
	return filepath.Join(segments...), nil
}
