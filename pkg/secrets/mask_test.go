package secrets

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		config *Masking
		want   string
	}{
		{
			name:   "partial masking",
			value:  "sk_live_abc123def456",
			config: &Masking{Style: StylePartial, PartialShowChars: 6, Replacement: "***"},
			want:   "sk_liv***",
		},
		{
			name:   "full masking",
			value:  "sk_live_abc123def456",
			config: &Masking{Style: StyleFull, Replacement: "[REDACTED]"},
			want:   "[REDACTED]",
		},
		{
			name:   "short value partial",
			value:  "short",
			config: &Masking{Style: StylePartial, PartialShowChars: 10},
			want:   "***",
		},
		{
			name:   "unknown style falls back to partial",
			value:  "abcdefgh",
			config: &Masking{Style: "other", PartialShowChars: 2},
			want:   "ab***",
		},
		{
			name:   "nil config uses default",
			value:  "authcode-123",
			config: nil,
			want:   "auth***",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskValue(tt.value, tt.config)
			if got != tt.want {
				t.Errorf("MaskValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPartialMask(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		showChars   int
		replacement string
		want        string
	}{
		{"normal case", "sk_live_abc123", 6, "***", "sk_liv***"},
		{"zero show chars", "secret", 0, "***", "***"},
		{"show chars longer than value", "abc", 10, "***", "***"},
		{"custom replacement", "password123", 4, "[REDACTED]", "pass[REDACTED]"},
		{"empty replacement uses default", "password123", 4, "", "pass***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := partialMask(tt.value, tt.showChars, tt.replacement)
			if got != tt.want {
				t.Errorf("partialMask() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashMask(t *testing.T) {
	got := hashMask("refresh-token")

	if !strings.HasPrefix(got, "sha256:") {
		t.Errorf("hashMask() = %q, should start with 'sha256:'", got)
	}
	if len(got) != 23 {
		t.Errorf("hashMask() length = %d, want 23", len(got))
	}
	if got != hashMask("refresh-token") {
		t.Error("hashMask() not deterministic")
	}
	if got == hashMask("refresh-tokenx") {
		t.Error("hashMask() same for different values")
	}
}

func TestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	logger.Info("exchange", Field("code", "abcdef123456"), HashField("token", "tok"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["code"] != "abcd***" {
		t.Errorf("code field = %v, want abcd***", fields["code"])
	}
	if fields["token"] == "tok" {
		t.Error("token field logged unmasked")
	}
}
