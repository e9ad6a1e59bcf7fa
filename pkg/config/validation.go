package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// minSessionSecret is the shortest session secret accepted in production.
const minSessionSecret = 32

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validator collects configuration validation errors.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate checks c and returns ValidationErrors listing every problem.
func (c *Config) Validate() error {
	return NewValidator().Validate(c)
}

// Validate validates a complete configuration.
func (v *Validator) Validate(c *Config) error {
	v.errors = make(ValidationErrors, 0)

	switch c.Environment {
	case "development", "production":
	default:
		v.addError("environment", "environment must be development or production")
	}

	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		v.addError("log_level", fmt.Sprintf("invalid log level %q", c.LogLevel))
	}

	v.validateServer(c)
	v.validateStorage(&c.Storage)
	v.validateInfusionsoft(c)
	v.validateAuth(&c.Auth)

	if len(v.errors) > 0 {
		return v.errors
	}

	return nil
}

func (v *Validator) validateServer(c *Config) {
	s := c.Server

	if s.Addr == "" {
		v.addError("server.addr", "addr is required")
	}
	if s.SessionName == "" {
		v.addError("server.session_name", "session_name is required")
	}
	if s.SessionMaxAge <= 0 {
		v.addError("server.session_max_age", "session_max_age must be positive")
	}
	if c.IsProduction() && len(s.SessionSecret) < minSessionSecret {
		v.addError("server.session_secret",
			fmt.Sprintf("session_secret must be at least %d characters in production", minSessionSecret))
	}
	if (s.AdminUser == "") != (s.AdminPassword == "") {
		v.addError("server.admin_user", "admin_user and admin_password must be set together")
	}
}

func (v *Validator) validateStorage(s *types.StorageConfig) {
	switch s.Type {
	case types.StorageTypeMemory, types.StorageTypeFile, types.StorageTypeBolt:
	case types.StorageTypeKeyring:
		if s.KeyringService == "" {
			v.addError("storage.keyring_service", "keyring_service is required for keyring storage")
		}
	case types.StorageTypeRedis:
		if s.RedisURL == "" {
			v.addError("storage.redis_url", "redis_url is required for redis storage")
		}
	default:
		v.addError("storage.type", fmt.Sprintf("unsupported storage type %q", s.Type))
	}
}

func (v *Validator) validateInfusionsoft(c *Config) {
	is := c.Infusionsoft

	if !v.isValidURL(is.AuthURL) {
		v.addError("infusionsoft.auth_url", "auth_url must be a valid URL")
	}
	if !v.isValidURL(is.TokenURL) {
		v.addError("infusionsoft.token_url", "token_url must be a valid URL")
	}
	if !v.isValidURL(is.APIBaseURL) {
		v.addError("infusionsoft.api_base_url", "api_base_url must be a valid URL")
	}
	if is.Timeout <= 0 {
		v.addError("infusionsoft.timeout", "timeout must be positive")
	}
	if is.RetryMax < 0 {
		v.addError("infusionsoft.retry_max", "retry_max must be non-negative")
	}
}

func (v *Validator) validateAuth(a *AuthConfig) {
	if a.PendingCodeLimit <= 0 {
		v.addError("auth.pending_code_limit", "pending_code_limit must be positive")
	}
	if a.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(a.RefreshSchedule); err != nil {
			v.addError("auth.refresh_schedule", fmt.Sprintf("invalid cron expression: %v", err))
		}
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

func (v *Validator) isValidURL(urlStr string) bool {
	if urlStr == "" {
		return false
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
