// Package logger initializes the logrus based internal log and the access
// log
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// File names inside the configured log directories
const (
	InternalLogFile = "certkeeper.log"
	AccessLogFile   = "access.log"
	ErrorLogFile    = "errors.log"
)

// Options configures the loggers
type Options struct {
	Level  string
	Dir    string
	StdErr bool
	// SmartDir enables duplicating errors into a separate file in this
	// directory
	SmartDir     string
	AccessDir    string
	AccessStdErr bool
}

// Init initializes the internal logger
func Init(opts Options) error {
	log.SetFormatter(
		&log.TextFormatter{
			FullTimestamp: true,
		},
	)
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	w, err := output(opts.Dir, InternalLogFile, opts.StdErr)
	if err != nil {
		return err
	}
	log.SetOutput(w)
	if opts.SmartDir != "" {
		f, err := openLogFile(opts.SmartDir, ErrorLogFile)
		if err != nil {
			return err
		}
		log.AddHook(
			&errorHook{
				writer:    f,
				formatter: &log.JSONFormatter{},
			},
		)
	}
	return nil
}

// AccessLogConfig returns the config for the fiber access log middleware
func AccessLogConfig(opts Options) (*logger.Config, error) {
	w, err := output(opts.AccessDir, AccessLogFile, opts.AccessStdErr)
	if err != nil {
		return nil, err
	}
	return &logger.Config{
		Format: "${time} ${ip} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
		Output: w,
	}, nil
}

func parseLevel(level string) (log.Level, error) {
	if level == "" {
		return log.InfoLevel, nil
	}
	l, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return 0, errors.Wrap(err, "invalid log level")
	}
	return l, nil
}

// output returns the writer for a log: a file in dir, stderr, or both
func output(dir, file string, stderr bool) (io.Writer, error) {
	if dir == "" {
		return os.Stderr, nil
	}
	f, err := openLogFile(dir, file)
	if err != nil {
		return nil, err
	}
	if stderr {
		return io.MultiWriter(f, os.Stderr), nil
	}
	return f, nil
}

func openLogFile(dir, file string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, file), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, errors.Wrap(err, "could not open log file")
	}
	return f, nil
}

// errorHook writes all entries of level error and above to a separate writer
type errorHook struct {
	writer    io.Writer
	formatter log.Formatter
}

// Levels implements the log.Hook interface
func (*errorHook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel}
}

// Fire implements the log.Hook interface
func (h *errorHook) Fire(entry *log.Entry) error {
	data, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(data)
	return err
}
