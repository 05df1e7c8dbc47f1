// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Options controls how Setup configures the logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is text or json. Empty means text.
	Format  string
	Verbose bool
	Quiet   bool
	// Output defaults to stderr so stdout stays free for command output.
	Output io.Writer
}

var (
	mu  sync.RWMutex
	log = newDefault()
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// L returns the shared logger.
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Setup applies opts to the shared logger. NEXTASK_LOG_MODE
// (quiet|verbose|debug) and NEXTASK_LOG_FORMAT (json|text) override opts.
func Setup(opts Options) *logrus.Logger {
	applyEnv(&opts)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(resolveLevel(opts))

	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   isTerminal(out),
			DisableColors: !isTerminal(out),
		})
	}

	mu.Lock()
	log = l
	mu.Unlock()
	return l
}

func applyEnv(opts *Options) {
	switch os.Getenv("NEXTASK_LOG_MODE") {
	case "quiet":
		opts.Quiet = true
		opts.Verbose = false
	case "verbose", "debug":
		opts.Verbose = true
		opts.Quiet = false
	}

	switch os.Getenv("NEXTASK_LOG_FORMAT") {
	case "json":
		opts.Format = "json"
	case "text":
		opts.Format = "text"
	}
}

func resolveLevel(opts Options) logrus.Level {
	if opts.Quiet {
		return logrus.ErrorLevel
	}
	if opts.Verbose {
		return logrus.DebugLevel
	}
	if opts.Level == "" {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
