// Package logging builds the zap logger and redacts secrets before they are
// logged.
package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RedactedText replaces sensitive values.
const RedactedText = "[REDACTED]"

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)
	// user:pass@host
	userinfoPattern = regexp.MustCompile(`://[^:/@\s]+:[^@\s]+@`)
	apiKeyPattern   = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9._-]{8,}`)
)

// New returns a production JSON logger at level, or a development console
// logger when debug is set. An empty level means info.
func New(level string, debug bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		if level == "" {
			lvl = zapcore.DebugLevel
		}
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	// stdout carries command output
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// SanitizeConnectionString redacts passwords and API keys in a DSN or URL.
func SanitizeConnectionString(dsn string) string {
	if dsn == "" {
		return ""
	}
	out := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	out = userinfoPattern.ReplaceAllString(out, "://"+RedactedText+"@")
	return apiKeyPattern.ReplaceAllString(out, "${1}="+RedactedText)
}
