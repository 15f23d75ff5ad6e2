package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/logging"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}

	if _, err := domain.ParseCatalog(c.Features.Catalog); err != nil {
		return fmt.Errorf("config: features.catalog: %w", err)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("config: logging.level: unknown level %q", c.Logging.Level)
	}

	if c.Source.Kind == SourceFile && c.Source.LocalFile == "" {
		return errors.New("config: source.local_file is required when source.kind is file")
	}
	return nil
}
