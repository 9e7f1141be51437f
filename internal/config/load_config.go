package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"openclaw-setup/internal/elevate"
	"openclaw-setup/internal/logger"
	"openclaw-setup/internal/pipeline"
	"openclaw-setup/internal/platform"
)

// appName names the per-user directories the installer uses.
const appName = "openclaw-setup"

// Default returns the built-in configuration.
func Default() Config {
	dir := userDir()
	return Config{
		Runtime: Runtime{
			MinMajor:    pipeline.DefaultMinMajor,
			DownloadURL: pipeline.DefaultDownloadURL,
			InstallDir:  filepath.Join(dir, "node"),
		},
		Gateway:   Gateway{Port: pipeline.DefaultGatewayPort},
		LogDir:    os.TempDir(),
		StateFile: filepath.Join(dir, "history.json"),
	}
}

// DefaultPath is where the configuration is looked up when no path is given:
// $XDG_CONFIG_HOME/openclaw-setup/config.yaml, falling back to
// ~/.config/openclaw-setup/config.yaml.
func DefaultPath() string {
	return filepath.Join(userDir(), "config.yaml")
}

func userDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".config", appName)
}

// Resolve loads the configuration at path. With an empty path the default
// location is tried, and a missing default file yields Default(). It returns
// the file actually read, or "" when none was.
func Resolve(path string) (Config, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	path = DefaultPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("[DEBUG] No config at %s, using defaults\n", path)
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Load reads a YAML config file on top of Default(). ${VAR} references are
// expanded from the environment before parsing; unknown keys are rejected.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(raw)
}

// Parse is Load for in-memory YAML.
func Parse(raw []byte) (Config, error) {
	data, err := envsubst.Bytes(raw)
	if err != nil {
		return Config{}, fmt.Errorf("expanding env vars: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML keys.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("archive_source", func(fl validator.FieldLevel) bool {
		return validArchiveSource(fl.Field().String())
	})
	return v
}

// validArchiveSource accepts https URLs and local paths. Plain http is
// refused: the archive ends up first on PATH.
func validArchiveSource(s string) bool {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return s != ""
	}
	return scheme == "https" && rest != ""
}

// Validate checks value ranges and cross-field requirements.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_with":
		return field + " is required"
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return field + " must be a URL"
	case "archive_source":
		return field + " must be an https URL or a local path"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// Options returns the step options the configuration describes.
func (c Config) Options() pipeline.Options {
	return pipeline.Options{
		MinMajor:    c.Runtime.MinMajor,
		DownloadURL: c.Runtime.DownloadURL,
		GatewayPort: c.Gateway.Port,
	}
}

// Markers returns the permission-denied markers for host: the built-in ones
// followed by any configured extras.
func (c Config) Markers(host platform.OS) elevate.Markers {
	return elevate.DefaultMarkers(host).With(c.PermissionMarkers...)
}
