// Package secrets masks credentials, authorization codes and tokens before
// they reach logs or terminal output.
package secrets

import (
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
)

// Masking styles.
const (
	StylePartial = "partial"
	StyleFull    = "full"
	StyleHash    = "hash"
)

// Masking configures how a value is masked.
type Masking struct {
	// Style is one of partial, full or hash.
	Style string `yaml:"style" json:"style"`
	// PartialShowChars is the number of leading characters kept by partial masking.
	PartialShowChars int `yaml:"partial_show_chars" json:"partial_show_chars"`
	// Replacement is appended (partial) or substituted (full).
	Replacement string `yaml:"replacement" json:"replacement"`
}

// DefaultMasking keeps the first four characters.
var DefaultMasking = &Masking{Style: StylePartial, PartialShowChars: 4, Replacement: "***"}

// MaskValue masks a sensitive value using the specified masking strategy.
// A nil config uses DefaultMasking.
func MaskValue(value string, config *Masking) string {
	if config == nil {
		config = DefaultMasking
	}

	switch config.Style {
	case StyleFull:
		return fullMask(config.Replacement)
	case StyleHash:
		return hashMask(value)
	default:
		return partialMask(value, config.PartialShowChars, config.Replacement)
	}
}

// fullMask completely masks the value.
func fullMask(replacement string) string {
	if replacement == "" {
		return "***"
	}
	return replacement
}

// partialMask shows the first N characters and masks the rest.
func partialMask(value string, showChars int, replacement string) string {
	if replacement == "" {
		replacement = "***"
	}

	// If value is too short, fully mask it
	if len(value) <= showChars {
		return replacement
	}

	return value[:showChars] + replacement
}

// hashMask creates a short SHA256 fingerprint of the value. Equal values
// produce equal fingerprints, so log lines can be correlated.
func hashMask(value string) string {
	hash := sha256.Sum256([]byte(value))
	return "sha256:" + hex.EncodeToString(hash[:])[:16]
}

// Field returns a zap field carrying value with default masking.
func Field(key, value string) zap.Field {
	return zap.String(key, MaskValue(value, nil))
}

// HashField returns a zap field carrying a fingerprint of value.
func HashField(key, value string) zap.Field {
	return zap.String(key, hashMask(value))
}
