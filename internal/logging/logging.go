package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/thanhnp/ledger-node/internal/config"
)

// New builds the process logger from the log section of the configuration
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput is New writing to out
func NewWithOutput(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	log := logrus.New()
	log.Out = out
	log.SetLevel(level)
	log.SetReportCaller(level >= logrus.DebugLevel)

	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
	}

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			CallerPrettyfier: callerPrettyfier,
		})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return log, nil
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}
