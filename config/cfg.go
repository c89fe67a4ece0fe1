package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"spritesheet/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	ArrangeConfig struct {
		// hints only, values outside of 1..count are ignored by layout
		Rows int `yaml:"rows"`
		Cols int `yaml:"cols"`
	}

	OptionsConfig struct {
		Size                      TileSize        `yaml:"size"`
		Arrange                   ArrangeConfig   `yaml:"arrange"`
		BasePrefix                string          `yaml:"base_prefix" validate:"required"`
		Prefix                    string          `yaml:"prefix"`
		Suffix                    string          `yaml:"suffix"`
		OutputImage               string          `yaml:"output_image" validate:"required"`
		OutputImageOverriddenName string          `yaml:"output_image_overridden_name"`
		OutputStylesheet          string          `yaml:"output_stylesheet" validate:"required"`
		BaseRules                 OrderedMap      `yaml:"base_rules"`
		Magick                    OrderedMap      `yaml:"magick"`
		Sort                      common.SortMode `yaml:"sort" validate:"gte=0,lte=2"`
		RasterizeSVG              bool            `yaml:"rasterize_svg"`
		FileNameTransliterate     bool            `yaml:"file_name_transliterate"`
	}

	TaskConfig struct {
		Name        string     `yaml:"name" validate:"required"`
		Sources     []string   `yaml:"sources" validate:"required,min=1,dive,required"`
		Destination string     `yaml:"destination" validate:"required"`
		Options     *yaml.Node `yaml:"options,omitempty"`
	}

	MagickConfig struct {
		Path string `yaml:"path,omitempty" sanitize:"path_clean"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Defaults  OptionsConfig  `yaml:"defaults"`
		Tasks     []TaskConfig   `yaml:"tasks" validate:"dive"`
		Magick    MagickConfig   `yaml:"magick"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field names above, these are expanded per task
	// and not when configuration template is processed
	OutputImageFieldName      TemplateFieldName = "output_image"
	OutputOverriddenFieldName TemplateFieldName = "output_image_overridden_name"
	OutputStylesheetFieldName TemplateFieldName = "output_stylesheet"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputImageFieldName)),
	gencfg.WithDoNotExpandField(string(OutputOverriddenFieldName)),
	gencfg.WithDoNotExpandField(string(OutputStylesheetFieldName)),
)

// checkTasks makes sure task names could be used to select tasks from command line.
func checkTasks(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	seen := make(map[string]struct{}, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		if _, exists := seen[t.Name]; exists {
			sl.ReportError(cfg.Tasks[i].Name, fmt.Sprintf("Tasks[%d].Name", i), "Name", "unique", "")
		}
		seen[t.Name] = struct{}{}
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkTasks)); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// TaskOptions returns options for the task: configured defaults with task
// specific values put on top. Result is a fresh value, neither defaults nor
// task are modified.
func (c *Config) TaskOptions(task *TaskConfig) (OptionsConfig, error) {
	opts := c.Defaults.clone()
	if task.Options == nil {
		return opts, nil
	}

	// go through bytes so unknown option names are reported
	data, err := yaml.Marshal(task.Options)
	if err != nil {
		return OptionsConfig{}, fmt.Errorf("task %q: unable to read options: %w", task.Name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		return OptionsConfig{}, fmt.Errorf("task %q: failed to decode options: %w", task.Name, err)
	}
	if err := gencfg.Validate(&opts); err != nil {
		return OptionsConfig{}, fmt.Errorf("task %q: %w", task.Name, err)
	}
	return opts, nil
}

// FindTask returns configured task by name.
func (c *Config) FindTask(name string) (*TaskConfig, bool) {
	for i := range c.Tasks {
		if c.Tasks[i].Name == name {
			return &c.Tasks[i], true
		}
	}
	return nil, false
}

func (o OptionsConfig) clone() OptionsConfig {
	o.BaseRules = o.BaseRules.clone()
	o.Magick = o.Magick.clone()
	return o
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
