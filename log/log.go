package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/syslog"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/jmhodges/clock"
)

// A Logger logs messages with explicit priority levels. It is
// implemented by a logging back-end as provided by New() or
// NewMock(). Any additions to this interface with format strings should be
// added to the govet configuration in .golangci.yml
type Logger interface {
	Err(msg string)
	Errf(format string, a ...interface{})
	Warning(msg string)
	Warningf(format string, a ...interface{})
	Info(msg string)
	Infof(format string, a ...interface{})
	Debug(msg string)
	Debugf(format string, a ...interface{})
	AuditPanic()
	AuditInfo(msg string)
	AuditInfof(format string, a ...interface{})
	AuditObject(string, interface{})
	AuditErr(string)
	AuditErrf(format string, a ...interface{})
}

// impl implements Logger.
type impl struct {
	w writer
}

// The constant used to identify audit-specific messages
const auditTag = "[AUDIT]"

// New returns a new Logger that writes leveled lines to out and, if sysLog
// is non-nil, to syslog as well. A level of -1 suppresses the corresponding
// output entirely.
func New(out io.Writer, sysLog *syslog.Writer, stdoutLogLevel int, syslogLogLevel int) (Logger, error) {
	if out == nil {
		return nil, errors.New("attempted to use a nil output writer")
	}
	return &impl{
		&bothWriter{
			Writer:      sysLog,
			stdout:      out,
			stdoutLevel: stdoutLogLevel,
			syslogLevel: syslogLogLevel,
			clk:         clock.New(),
		},
	}, nil
}

// StderrLogger returns a Logger that writes to stderr only, at the given
// level. It is used before configuration has been loaded.
func StderrLogger(level int) Logger {
	return &impl{
		&bothWriter{
			stdout:      os.Stderr,
			stdoutLevel: level,
			syslogLevel: -1,
			clk:         clock.New(),
		},
	}
}

// _Singleton is the process-wide logger used by Get.
var _Singleton struct {
	sync.Mutex
	log Logger
}

// Set configures the process-wide logger returned by Get. It returns an
// error if a logger was already set.
func Set(logger Logger) error {
	_Singleton.Lock()
	defer _Singleton.Unlock()
	if _Singleton.log != nil {
		return errors.New("you may not call Set after it has already been implicitly or explicitly set")
	}
	_Singleton.log = logger
	return nil
}

// Get returns the process-wide logger. If Set was never called, a stderr
// logger at info level is installed and returned.
func Get() Logger {
	_Singleton.Lock()
	defer _Singleton.Unlock()
	if _Singleton.log == nil {
		_Singleton.log = StderrLogger(int(syslog.LOG_INFO))
	}
	return _Singleton.log
}

type writer interface {
	logAtLevel(syslog.Priority, string)
}

// bothWriter implements writer and writes to both syslog and an output
// stream. The output stream is stderr in the CLI, because stdout may carry
// the generated CSR.
type bothWriter struct {
	sync.Mutex
	*syslog.Writer
	stdout      io.Writer
	stdoutLevel int
	syslogLevel int
	clk         clock.Clock
}

// Log the provided message at the appropriate level, writing to
// both the output stream and syslog.
func (w *bothWriter) logAtLevel(level syslog.Priority, msg string) {
	var prefix string
	var err error

	const red = "\033[31m\033[1m"
	const yellow = "\033[33m"

	// Since messages are delimited by newlines, we have to escape any internal
	// or trailing newlines before generating the checksum or outputting the
	// message.
	msg = strings.Replace(msg, "\n", "\\n", -1)

	w.Lock()
	defer w.Unlock()

	switch syslogAllowed := w.Writer != nil && int(level) <= w.syslogLevel; level {
	case syslog.LOG_ERR:
		if syslogAllowed {
			err = w.Err(fmt.Sprintf("%s %s", LogLineChecksum(msg), msg))
		}
		prefix = red + "E"
	case syslog.LOG_WARNING:
		if syslogAllowed {
			err = w.Warning(fmt.Sprintf("%s %s", LogLineChecksum(msg), msg))
		}
		prefix = yellow + "W"
	case syslog.LOG_INFO:
		if syslogAllowed {
			err = w.Info(fmt.Sprintf("%s %s", LogLineChecksum(msg), msg))
		}
		prefix = "I"
	case syslog.LOG_DEBUG:
		if syslogAllowed {
			err = w.Debug(fmt.Sprintf("%s %s", LogLineChecksum(msg), msg))
		}
		prefix = "D"
	default:
		if w.Writer != nil {
			err = w.Err(fmt.Sprintf("%s (unknown logging level: %d)", msg, int(level)))
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write to syslog: %d %s (%s)\n", int(level), msg, err)
	}

	var reset string
	if strings.HasPrefix(prefix, "\033") {
		reset = "\033[0m"
	}

	if int(level) <= w.stdoutLevel {
		if _, err := fmt.Fprintf(w.stdout, "%s%s %s %s %s%s\n",
			prefix,
			w.clk.Now().Format("150405"),
			path.Base(os.Args[0]),
			LogLineChecksum(msg),
			msg,
			reset); err != nil {
			panic(fmt.Sprintf("failed to write log line: %s", err))
		}
	}
}

func (log *impl) auditAtLevel(level syslog.Priority, msg string) {
	msg = fmt.Sprintf("%s %s", auditTag, msg)
	log.w.logAtLevel(level, msg)
}

// AuditPanic catches and logs panics, then exits with exit code 1.
// This method should be called in a defer statement as early as possible.
func (log *impl) AuditPanic() {
	err := recover()
	// No panic, no problem
	if err == nil {
		return
	}
	// Get the stack trace of the panicking goroutine, then replace every
	// newline so the whole trace ends up on one log line.
	var stack [4096]byte
	n := runtime.Stack(stack[:], false)
	log.AuditErrf("Panic caused by err: %s", err)
	log.AuditErrf("Stack Trace (Current goroutine) %s", stack[:n])
	os.Exit(1)
}

// Err level messages are always marked with the audit tag, for special handling
// at the upstream system logger.
func (log *impl) Err(msg string) {
	log.Errf("%s", msg)
}

// Errf level messages are always marked with the audit tag, for special handling
// at the upstream system logger.
func (log *impl) Errf(format string, a ...interface{}) {
	log.auditAtLevel(syslog.LOG_ERR, fmt.Sprintf(format, a...))
}

// Warning level messages pass through normally.
func (log *impl) Warning(msg string) {
	log.Warningf("%s", msg)
}

// Warningf level messages pass through normally.
func (log *impl) Warningf(format string, a ...interface{}) {
	log.w.logAtLevel(syslog.LOG_WARNING, fmt.Sprintf(format, a...))
}

// Info level messages pass through normally.
func (log *impl) Info(msg string) {
	log.Infof("%s", msg)
}

// Infof level messages pass through normally.
func (log *impl) Infof(format string, a ...interface{}) {
	log.w.logAtLevel(syslog.LOG_INFO, fmt.Sprintf(format, a...))
}

// Debug level messages pass through normally.
func (log *impl) Debug(msg string) {
	log.Debugf("%s", msg)
}

// Debugf level messages pass through normally.
func (log *impl) Debugf(format string, a ...interface{}) {
	log.w.logAtLevel(syslog.LOG_DEBUG, fmt.Sprintf(format, a...))
}

// AuditInfo sends an INFO-severity message that is prefixed with the
// audit tag, for special handling at the upstream system logger.
func (log *impl) AuditInfo(msg string) {
	log.AuditInfof("%s", msg)
}

// AuditInfof sends an INFO-severity message that is prefixed with the
// audit tag, for special handling at the upstream system logger.
func (log *impl) AuditInfof(format string, a ...interface{}) {
	log.auditAtLevel(syslog.LOG_INFO, fmt.Sprintf(format, a...))
}

// AuditObject sends an INFO-severity JSON-serialized object message that is prefixed
// with the audit tag, for special handling at the upstream system logger.
func (log *impl) AuditObject(msg string, obj interface{}) {
	jsonObj, err := json.Marshal(obj)
	if err != nil {
		log.auditAtLevel(syslog.LOG_ERR, fmt.Sprintf("Object could not be serialized to JSON. Raw: %+v", obj))
		return
	}

	log.auditAtLevel(syslog.LOG_INFO, fmt.Sprintf("%s JSON=%s", msg, jsonObj))
}

// AuditErr can format an error for auditing; it does so at ERR level.
func (log *impl) AuditErr(msg string) {
	log.AuditErrf("%s", msg)
}

// AuditErrf can format an error for auditing; it does so at ERR level.
func (log *impl) AuditErrf(format string, a ...interface{}) {
	log.auditAtLevel(syslog.LOG_ERR, fmt.Sprintf(format, a...))
}
