package logging

import (
	"strings"

	"go.uber.org/zap"

	"github.com/copyleftdev/bbdob/internal/config"
)

// NewLogger builds a logger from the LOG_* settings. Unknown levels fall
// back to info and an empty output writes to stderr.
func NewLogger(cfg config.Logging) (*Logger, error) {
	output := cfg.Output
	if output == "" {
		output = "stderr"
	}
	sink, _, err := zap.Open(output)
	if err != nil {
		return nil, err
	}
	return newLogger(parseLevel(cfg.Level), cfg.Format, sink), nil
}

func parseLevel(level string) LogLevel {
	switch l := LogLevel(strings.ToUpper(level)); l {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel:
		return l
	default:
		return InfoLevel
	}
}
