// Package cmd provides utilities that underlie the specific commands: the
// shared config blocks, config file loading and validation, logger
// construction and the fatal error helpers.
package cmd

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"path"
	"reflect"
	"runtime"
	"strings"

	"github.com/letsencrypt/validator/v10"

	blog "github.com/letsencrypt/certreq/log"
	"github.com/letsencrypt/certreq/strictyaml"
)

// exit is replaced in tests.
var exit = os.Exit

// Command returns the name of the running binary.
func Command() string {
	return path.Base(os.Args[0])
}

// NewLogger returns a logger writing to out at logConf.StdoutLevel and, when
// logConf.SyslogLevel is not -1, to the local syslog daemon.
func NewLogger(logConf SyslogConfig, out io.Writer) (blog.Logger, error) {
	var sysLog *syslog.Writer
	if logConf.SyslogLevel != -1 {
		var err error
		sysLog, err = syslog.Dial("", "", syslog.LOG_INFO|syslog.LOG_LOCAL0, Command())
		if err != nil {
			return nil, fmt.Errorf("connecting to syslog: %w", err)
		}
	}
	return blog.New(out, sysLog, logConf.StdoutLevel, logConf.SyslogLevel)
}

// ReadConfigFile takes a file path as an argument and attempts to
// unmarshal the content of the file into a struct containing a
// configuration of a certreq component. Unknown keys are an error.
func ReadConfigFile(filename string, out interface{}) error {
	configData, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return strictyaml.Unmarshal(configData, out)
}

// ValidateConfig checks the validate struct tags of config, reporting
// fields by their YAML names.
func ValidateConfig(config interface{}) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate.Struct(config)
}

// LoadConfig reads filename into config and validates it.
func LoadConfig(filename string, config interface{}) error {
	err := ReadConfigFile(filename, config)
	if err != nil {
		return fmt.Errorf("reading %q: %w", filename, err)
	}
	err = ValidateConfig(config)
	if err != nil {
		return fmt.Errorf("validating %q: %w", filename, err)
	}
	return nil
}

// Fail logs msg at the audit error level and exits with status 1.
func Fail(msg string) {
	logger := blog.Get()
	logger.AuditErr(msg)
	exit(1)
}

// FailOnError calls Fail if the provided error is non-nil.
// This is useful for one-line error handling in top-level executables,
// but should generally be avoided in libraries. The message argument is
// optional.
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	if msg == "" {
		Fail(err.Error())
	} else {
		Fail(fmt.Sprintf("%s: %s", msg, err))
	}
}

// AuditPanic catches and logs panics, then exits with exit code 1.
// This method should be called in a defer statement as early as possible.
func AuditPanic() {
	err := recover()
	if err == nil {
		return
	}
	logger := blog.Get()
	var stack [4096]byte
	n := runtime.Stack(stack[:], false)
	logger.AuditErrf("Panic caused by err: %s", err)
	logger.AuditErrf("Stack Trace (Current goroutine) %s", stack[:n])
	exit(1)
}
