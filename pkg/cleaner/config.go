package cleaner

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/cleanlink/pkg/params"
)

// Config selects which parameters a Cleaner removes.
type Config struct {
	// EnabledCategories names built-in categories from package params.
	EnabledCategories []string `json:"enabledCategories" yaml:"enabled_categories" validate:"dive,category"`

	// CustomParams are extra parameter names, matched exactly.
	CustomParams []string `json:"customParams" yaml:"custom_params" validate:"dive,required,excludesall=&="`
}

// DefaultConfig enables every category and no custom parameters.
func DefaultConfig() Config {
	return Config{
		EnabledCategories: params.Names(),
		CustomParams:      []string{},
	}
}

// Option adjusts a Config.
type Option func(*Config)

// WithCategories replaces the enabled categories.
func WithCategories(names ...string) Option {
	return func(c *Config) {
		c.EnabledCategories = append([]string{}, names...)
	}
}

// WithCustomParams appends custom parameters.
func WithCustomParams(names ...string) Option {
	return func(c *Config) {
		c.CustomParams = append(c.CustomParams, names...)
	}
}

// NewConfig starts from DefaultConfig and applies opts.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return params.IsKnown(fl.Field().String())
		})
	})
	return validate
}

// Validate reports unknown categories and unusable custom parameter names.
// Clean itself tolerates both.
func (c Config) Validate() error {
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatValidationError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "category":
		return fmt.Sprintf("%s: unknown category %q", e.Namespace(), e.Value())
	case "required":
		return fmt.Sprintf("%s: must not be empty", e.Namespace())
	case "excludesall":
		return fmt.Sprintf("%s: %q must not contain '&' or '='", e.Namespace(), e.Value())
	default:
		return fmt.Sprintf("%s: failed %s validation", e.Namespace(), e.Tag())
	}
}
