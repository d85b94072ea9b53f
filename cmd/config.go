package cmd

// SyslogConfig defines the config for logging. Levels follow syslog
// severities: 3 is errors only, 7 includes debug output, and -1 disables
// that destination entirely.
type SyslogConfig struct {
	// StdoutLevel is the highest severity written to the output stream,
	// which is stderr for command line tools.
	StdoutLevel int `yaml:"stdoutLevel" validate:"min=-1,max=7"`
	// SyslogLevel is the highest severity sent to the local syslog daemon.
	SyslogLevel int `yaml:"syslogLevel" validate:"min=-1,max=7"`
}
