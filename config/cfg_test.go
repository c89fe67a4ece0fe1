package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"

	"spritesheet/common"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if len(cfg.Tasks) != 0 {
		t.Errorf("Default config has %d tasks, want none", len(cfg.Tasks))
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	d := cfg.Defaults
	if d.Size != (TileSize{Width: 16, Height: 16}) {
		t.Errorf("Size = %+v, want 16x16", d.Size)
	}
	if d.Arrange.Rows != 0 || d.Arrange.Cols != 0 {
		t.Errorf("Arrange = %+v, want zero hints", d.Arrange)
	}
	if d.BasePrefix != ".montage" {
		t.Errorf("BasePrefix = %q, want .montage", d.BasePrefix)
	}
	if d.Prefix != "." {
		t.Errorf("Prefix = %q, want .", d.Prefix)
	}
	if d.Suffix != "" {
		t.Errorf("Suffix = %q, want empty", d.Suffix)
	}
	if d.OutputImage != "montage.png" {
		t.Errorf("OutputImage = %q, want montage.png", d.OutputImage)
	}
	if d.OutputStylesheet != "montage.css" {
		t.Errorf("OutputStylesheet = %q, want montage.css", d.OutputStylesheet)
	}
	if d.Sort != common.SortModeNone {
		t.Errorf("Sort = %v, want none", d.Sort)
	}
	if len(d.BaseRules) != 0 || len(d.Magick) != 0 {
		t.Errorf("expected empty base rules and magick options, got %v and %v", d.BaseRules, d.Magick)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	path := writeConfig(t, `version: 1
defaults:
  size: {width: 32, height: 24}
  base_prefix: ".icons"
  sort: natural
  base_rules:
    display: inline-block
    vertical-align: middle
  magick:
    background: none
tasks:
  - name: flags
    sources: ["flags/*.png"]
    destination: out/flags
  - name: toolbar
    sources: ["toolbar"]
    destination: out/toolbar
    options:
      size: 48
      prefix: ".tb-"
      output_image: "{{ .Task }}.png"
logging:
  console:
    level: debug
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Defaults.Size != (TileSize{Width: 32, Height: 24}) {
		t.Errorf("Size = %+v, want 32x24", cfg.Defaults.Size)
	}
	if cfg.Defaults.BasePrefix != ".icons" {
		t.Errorf("BasePrefix = %q, want .icons", cfg.Defaults.BasePrefix)
	}
	// not mentioned in file, comes from template
	if cfg.Defaults.OutputStylesheet != "montage.css" {
		t.Errorf("OutputStylesheet = %q, want montage.css", cfg.Defaults.OutputStylesheet)
	}
	if cfg.Defaults.Sort != common.SortModeNatural {
		t.Errorf("Sort = %v, want natural", cfg.Defaults.Sort)
	}
	if got := cfg.Defaults.BaseRules.Keys(); strings.Join(got, ",") != "display,vertical-align" {
		t.Errorf("BaseRules keys = %v, want [display vertical-align]", got)
	}
	if v, ok := cfg.Defaults.Magick.Get("background"); !ok || v != "none" {
		t.Errorf("Magick[background] = %q, %v", v, ok)
	}
	if len(cfg.Tasks) != 2 {
		t.Fatalf("Tasks length = %d, want 2", len(cfg.Tasks))
	}
	if cfg.Logging.ConsoleLogger.Level != "debug" {
		t.Errorf("console level = %q, want debug", cfg.Logging.ConsoleLogger.Level)
	}

	task, ok := cfg.FindTask("toolbar")
	if !ok {
		t.Fatal("FindTask(toolbar) not found")
	}
	opts, err := cfg.TaskOptions(task)
	if err != nil {
		t.Fatalf("TaskOptions() error = %v", err)
	}
	if opts.Size != (TileSize{Width: 48, Height: 48}) {
		t.Errorf("task Size = %+v, want 48x48", opts.Size)
	}
	if opts.Prefix != ".tb-" {
		t.Errorf("task Prefix = %q, want .tb-", opts.Prefix)
	}
	if opts.BasePrefix != ".icons" {
		t.Errorf("task BasePrefix = %q, want inherited .icons", opts.BasePrefix)
	}
	// template is kept as is, it is expanded when task runs
	if opts.OutputImage != "{{ .Task }}.png" {
		t.Errorf("task OutputImage = %q, want unexpanded template", opts.OutputImage)
	}
	if cfg.Defaults.Size != (TileSize{Width: 32, Height: 24}) {
		t.Errorf("defaults were modified by TaskOptions: %+v", cfg.Defaults.Size)
	}

	if _, ok := cfg.FindTask("missing"); ok {
		t.Error("FindTask(missing) should fail")
	}
}

func TestTaskOptions(t *testing.T) {
	cfg, err := LoadConfiguration(writeConfig(t, `version: 1
defaults:
  base_rules:
    display: block
tasks:
  - name: plain
    sources: ["a"]
    destination: out
  - name: partial
    sources: ["a"]
    destination: out
    options:
      size: {height: 20}
      base_rules:
        cursor: pointer
  - name: unknown
    sources: ["a"]
    destination: out
    options:
      colour: red
  - name: invalid
    sources: ["a"]
    destination: out
    options:
      size: 0
`))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	t.Run("no options", func(t *testing.T) {
		task, _ := cfg.FindTask("plain")
		opts, err := cfg.TaskOptions(task)
		if err != nil {
			t.Fatalf("TaskOptions() error = %v", err)
		}
		if opts.Size != cfg.Defaults.Size {
			t.Errorf("Size = %+v, want defaults %+v", opts.Size, cfg.Defaults.Size)
		}
		// must not share backing array with defaults
		opts.BaseRules[0].Value = "none"
		if v, _ := cfg.Defaults.BaseRules.Get("display"); v != "block" {
			t.Errorf("defaults modified through task options: display = %q", v)
		}
	})

	t.Run("partial overlay", func(t *testing.T) {
		task, _ := cfg.FindTask("partial")
		opts, err := cfg.TaskOptions(task)
		if err != nil {
			t.Fatalf("TaskOptions() error = %v", err)
		}
		if opts.Size != (TileSize{Width: 16, Height: 20}) {
			t.Errorf("Size = %+v, want 16x20", opts.Size)
		}
		// mappings are replaced, not merged
		if _, ok := opts.BaseRules.Get("display"); ok {
			t.Error("base_rules from defaults should be replaced by task ones")
		}
		if v, _ := opts.BaseRules.Get("cursor"); v != "pointer" {
			t.Errorf("cursor = %q, want pointer", v)
		}
	})

	t.Run("unknown option", func(t *testing.T) {
		task, _ := cfg.FindTask("unknown")
		_, err := cfg.TaskOptions(task)
		if err == nil {
			t.Fatal("expected error for unknown option")
		}
		if !strings.Contains(err.Error(), `"unknown"`) {
			t.Errorf("error should name the task, got: %v", err)
		}
	})

	t.Run("invalid option", func(t *testing.T) {
		task, _ := cfg.FindTask("invalid")
		if _, err := cfg.TaskOptions(task); err == nil {
			t.Fatal("expected validation error for zero size")
		}
	})
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\ndefaults:\n  prefix: x\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"unknown option", "version: 1\ndefaults:\n  colour: red\n"},
		{"wrong version", "version: 2\n"},
		{"zero tile", "version: 1\ndefaults:\n  size: 0\n"},
		{"bad tile", "version: 1\ndefaults:\n  size: big\n"},
		{"bad sort", "version: 1\ndefaults:\n  sort: random\n"},
		{"empty base prefix", "version: 1\ndefaults:\n  base_prefix: \"\"\n"},
		{"duplicate base rule", "version: 1\ndefaults:\n  base_rules:\n    a: b\n    a: c\n"},
		{"nested base rule", "version: 1\ndefaults:\n  base_rules:\n    a: {b: c}\n"},
		{"task without sources", "version: 1\ntasks:\n  - name: t\n    destination: out\n"},
		{"task with empty source", "version: 1\ntasks:\n  - name: t\n    sources: [\"\"]\n    destination: out\n"},
		{"task without destination", "version: 1\ntasks:\n  - name: t\n    sources: [a]\n"},
		{"duplicate task names", "version: 1\ntasks:\n  - name: t\n    sources: [a]\n    destination: out\n  - name: t\n    sources: [b]\n    destination: out\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}

	cfg := &Config{}
	if _, err = unmarshalConfig(data, cfg, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration(writeConfig(t, `version: 1
defaults:
  size: {width: 10, height: 12}
  base_rules:
    z-index: "1"
    display: block
tasks:
  - name: t
    sources: [a, b]
    destination: out
    options:
      suffix: "-x"
`))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	cfg2 := &Config{}
	if _, err = unmarshalConfig(data, cfg2, true); err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v\n%s", err, data)
	}
	if cfg2.Defaults.Size != cfg.Defaults.Size {
		t.Errorf("Size mismatch after dump/load: got %+v, want %+v", cfg2.Defaults.Size, cfg.Defaults.Size)
	}
	if got := strings.Join(cfg2.Defaults.BaseRules.Keys(), ","); got != "z-index,display" {
		t.Errorf("BaseRules order after dump/load = %s", got)
	}
	opts, err := cfg2.TaskOptions(&cfg2.Tasks[0])
	if err != nil {
		t.Fatalf("TaskOptions() after dump/load error = %v", err)
	}
	if opts.Suffix != "-x" {
		t.Errorf("task Suffix after dump/load = %q, want -x", opts.Suffix)
	}
}

func TestTileSize_MarshalYAML(t *testing.T) {
	square, _ := TileSize{Width: 8, Height: 8}.MarshalYAML()
	if v, ok := square.(int); !ok || v != 8 {
		t.Errorf("square tile marshals to %v, want 8", square)
	}
	rect, _ := TileSize{Width: 8, Height: 4}.MarshalYAML()
	if _, ok := rect.(int); ok {
		t.Errorf("rectangular tile marshals to scalar %v", rect)
	}
}

func TestUnmarshalConfig(t *testing.T) {
	t.Run("valid config without processing", func(t *testing.T) {
		result, err := unmarshalConfig([]byte(`version: 1`), &Config{}, false)
		if err != nil {
			t.Fatalf("unmarshalConfig() error = %v", err)
		}
		if result.Version != 1 {
			t.Errorf("Version = %d, want 1", result.Version)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := unmarshalConfig([]byte(`invalid: [yaml`), &Config{}, false); err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}

func TestUnmarshalConfig_WrapsValidationError(t *testing.T) {
	data := []byte("version: 99\n")

	_, err := unmarshalConfig(data, &Config{}, true)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validat") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error (errors.Unwrap non-nil), got bare error: %v", err)
	}
}
