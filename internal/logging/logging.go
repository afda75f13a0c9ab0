// Package logging configures the shared logrus instance used by the slackline CLI.
// It provides a compact single-line formatter and optional rotating file output
// for debugging failed login attempts after the fact.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileEnv names the environment variable that, when set, mirrors all log
// output into a rotating file at the given path in addition to stderr.
const LogFileEnv = "SLACKLINE_LOG_FILE"

var setupOnce sync.Once

// LogFormatter defines a custom log format for logrus.
// Format: [2025-08-23 20:14:04] [debug] [oauth_server.go:88] | a1b2c3d4 | waiting for callback
type LogFormatter struct{}

// logFieldOrder defines the display order for common log fields.
var logFieldOrder = []string{"provider", "port", "timeout", "url", "state", "error"}

// Format renders a single log entry with custom formatting.
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var buffer *bytes.Buffer
	if entry.Buffer != nil {
		buffer = entry.Buffer
	} else {
		buffer = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")

	attemptID := "--------"
	if id, ok := entry.Data["attempt_id"].(string); ok && id != "" {
		attemptID = id
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}
	levelStr := fmt.Sprintf("%-5s", level)

	// Build fields string (only print fields in logFieldOrder)
	var fieldsStr string
	if len(entry.Data) > 0 {
		var fields []string
		for _, k := range logFieldOrder {
			if v, ok := entry.Data[k]; ok {
				fields = append(fields, fmt.Sprintf("%s=%v", k, v))
			}
		}
		if len(fields) > 0 {
			fieldsStr = " " + strings.Join(fields, " ")
		}
	}

	var formatted string
	if entry.Caller != nil {
		formatted = fmt.Sprintf("[%s] [%s] [%s] [%s:%d] %s%s\n", timestamp, attemptID, levelStr, filepath.Base(entry.Caller.File), entry.Caller.Line, message, fieldsStr)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] [%s] %s%s\n", timestamp, attemptID, levelStr, message, fieldsStr)
	}
	buffer.WriteString(formatted)

	return buffer.Bytes(), nil
}

// SetupBaseLogger configures the shared logrus instance.
// It is safe to call multiple times; initialization happens only once.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stderr)
		log.SetReportCaller(true)
		log.SetFormatter(&LogFormatter{})

		if path := os.Getenv(LogFileEnv); path != "" {
			fileWriter := &lumberjack.Logger{
				Filename:   path,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     14, // days
			}
			log.SetOutput(io.MultiWriter(os.Stderr, fileWriter))
		}
	})
}
