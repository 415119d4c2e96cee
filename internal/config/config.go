// Package config loads sqsync settings from a YAML file.
//
// Files are checked against an embedded CUE schema before they are decoded,
// so typos in keys and out-of-range values are reported with a path rather
// than silently ignored.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/RudyLabor/squadplanner-sub013/internal/connectivity"
	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
)

//go:embed schema.cue
var schemaSource string

// Error codes for configuration failures.
const (
	ErrCodeRead    = "E_CONFIG_READ"
	ErrCodeParse   = "E_CONFIG_PARSE"
	ErrCodeInvalid = "E_CONFIG_INVALID"
)

// Error describes why a configuration file was rejected.
type Error struct {
	Code    string
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Config holds every tunable of the sqsync process.
type Config struct {
	Store        StoreConfig        `yaml:"store"`
	Replay       ReplayConfig       `yaml:"replay"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Persister    PersisterConfig    `yaml:"persister"`
}

type StoreConfig struct {
	// DSN selects the backend: a file path or sqlite://, bolt://, memory://.
	DSN string `yaml:"dsn"`
}

type ReplayConfig struct {
	// RetryStatuses are kept in the queue instead of being discarded as
	// client errors, e.g. [408, 429].
	RetryStatuses []int `yaml:"retry_statuses"`
}

type ConnectivityConfig struct {
	ProbeURL string   `yaml:"probe_url"`
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

type PersisterConfig struct {
	Key string `yaml:"key"`
}

// Duration is a time.Duration written as "15s" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in Go syntax.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{DSN: mutation.QueueDatabase + ".db"},
		Connectivity: ConnectivityConfig{
			Interval: Duration(connectivity.DefaultInterval),
			Timeout:  Duration(connectivity.DefaultTimeout),
		},
		Persister: PersisterConfig{Key: mutation.DefaultCacheKey},
	}
}

// Load reads and validates the file at path. Keys missing from the file
// keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}
	cfg, err := Parse(data)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Parse validates and decodes YAML configuration.
func Parse(data []byte) (Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, &Error{Code: ErrCodeParse, Message: err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &Error{Code: ErrCodeParse, Message: err.Error()}
	}
	return cfg, nil
}

// validate unifies the decoded document with #Config.
func validate(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return &Error{Code: ErrCodeParse, Message: err.Error()}
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &Error{Code: ErrCodeInvalid, Message: err.Error()}
	}
	return nil
}
