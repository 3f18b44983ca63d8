package validators

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"neuronote/domain/config"
	"neuronote/pkg/errors"
)

// MemoryValidator validates memory-related domain rules
type MemoryValidator struct {
	cfg *config.DomainConfig
}

// NewMemoryValidator creates a validator bound to cfg.
func NewMemoryValidator(cfg *config.DomainConfig) *MemoryValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MemoryValidator{cfg: cfg}
}

// ValidateTitle accepts an empty title.
func (v *MemoryValidator) ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > v.cfg.MaxTitleLength {
		return errors.NewValidationError(fmt.Sprintf("title exceeds maximum length of %d characters", v.cfg.MaxTitleLength))
	}
	return nil
}

// ValidateContent requires non-blank content.
func (v *MemoryValidator) ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.NewValidationError("content is required")
	}
	if utf8.RuneCountInString(content) > v.cfg.MaxContentLength {
		return errors.NewValidationError(fmt.Sprintf("content exceeds maximum length of %d characters", v.cfg.MaxContentLength))
	}
	return nil
}

// ValidateURL requires an absolute URL with a scheme and host.
func (v *MemoryValidator) ValidateURL(raw *string) error {
	if raw == nil {
		return nil
	}
	u, err := url.Parse(*raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewValidationError("url must be a valid URL")
	}
	return nil
}

// ValidateTags bounds the tag set.
func (v *MemoryValidator) ValidateTags(tags []string) error {
	if len(tags) > v.cfg.MaxTags {
		return errors.NewValidationError(fmt.Sprintf("at most %d tags are allowed", v.cfg.MaxTags))
	}
	for _, t := range tags {
		if utf8.RuneCountInString(t) > v.cfg.MaxTagLength {
			return errors.NewValidationError(fmt.Sprintf("tag %q exceeds maximum length of %d characters", t, v.cfg.MaxTagLength))
		}
	}
	return nil
}
