// Command certreq builds an openssl request configuration from a subject
// and a list of Subject Alternative Names, then runs "openssl req" with it
// or prints the steps to do so by hand.
//
// The subject comes from exactly one place: a full subject line (-dn), the
// individual attribute flags, or, when neither supplies anything,
// interactive prompts on stdin.
//
// Run "certreq -h" for the full list of flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/letsencrypt/certreq/cmd"
	berrors "github.com/letsencrypt/certreq/errors"
	"github.com/letsencrypt/certreq/goodkey"
	blog "github.com/letsencrypt/certreq/log"
	"github.com/letsencrypt/certreq/metrics"
	"github.com/letsencrypt/certreq/openssl"
	"github.com/letsencrypt/certreq/subject"
)

// Config is the optional YAML configuration given with -config.
type Config struct {
	Openssl struct {
		// Path is the openssl binary, looked up in $PATH if it has no
		// directory component.
		Path string `yaml:"path" validate:"required"`
		// ManualConfigName is the config file name used in the printed
		// instructions of manual mode.
		ManualConfigName string `yaml:"manualConfigName" validate:"required"`
	} `yaml:"openssl"`

	KeyPolicy goodkey.Config `yaml:"keyPolicy"`

	Lint struct {
		PublicSuffix bool `yaml:"publicSuffix"`
		ReservedIP   bool `yaml:"reservedIP"`
		IDN          bool `yaml:"idn"`
	} `yaml:"lint"`

	Syslog cmd.SyslogConfig `yaml:"syslog"`

	// MetricsTextfile, if set, receives the run's counters in the
	// Prometheus text format once the run ends.
	MetricsTextfile string `yaml:"metricsTextfile"`
}

// defaultConfig is what a run uses without -config. A config file is
// decoded on top of it, so it only needs to name what it changes.
func defaultConfig() Config {
	var c Config
	c.Openssl.Path = openssl.DefaultBinary
	c.Openssl.ManualConfigName = "openssl.cfg"
	c.Lint.PublicSuffix = true
	c.Lint.ReservedIP = true
	c.Lint.IDN = true
	c.Syslog.StdoutLevel = 3
	c.Syslog.SyslogLevel = -1
	return c
}

// options are the parsed command line.
type options struct {
	attrs *subject.Attributes
	dn    string
	san   string

	newKeyPath string
	keySize    string
	keyPath    string
	csrPath    string

	manual     bool
	verbose    bool
	configFile string
}

// multiValue collects every occurrence of a repeatable flag.
type multiValue []string

func (m *multiValue) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(*m, ",")
}

func (m *multiValue) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// parseFlags registers one flag per schema entry plus the fixed options and
// parses args. Usage and parse errors are written to errOut.
func parseFlags(name string, args []string, errOut io.Writer) (*options, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)

	single := make(map[string]*string)
	multi := make(map[string]*multiValue)
	for _, attr := range subject.AllAttributes() {
		if attr.MultiValued {
			v := &multiValue{}
			fs.Var(v, attr.Key, attr.Prompt+". May be repeated")
			multi[attr.Key] = v
			continue
		}
		single[attr.Key] = fs.String(attr.Key, "", attr.Prompt)
	}

	o := &options{}
	fs.StringVar(&o.dn, "dn", "", "Full subject line, e.g. \"cn=example.com,ou=Eng\". Individual subject flags are ignored")
	fs.StringVar(&o.newKeyPath, "n", "", "Generate a new RSA private key in this file")
	fs.StringVar(&o.keySize, "keysize", "", fmt.Sprintf("Size of the key generated with -n, as bits or rsa:bits (default %d)", goodkey.DefaultRSABits))
	fs.StringVar(&o.keyPath, "k", "", "Use the existing private key in this file")
	fs.StringVar(&o.csrPath, "w", "", "Write the CSR to this file. Stdout if omitted")
	fs.BoolVar(&o.manual, "m", false, "Print instructions to create the request manually instead of running openssl")
	fs.BoolVar(&o.verbose, "v", false, "Display more details")
	fs.StringVar(&o.configFile, "config", "", "Path to an optional YAML configuration file")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, berrors.ConfigError("unexpected arguments: %q", fs.Args())
	}

	o.san = *single[subject.SANKey]
	o.attrs = subject.NewAttributes()
	for _, attr := range subject.DNAttributes() {
		values := []string{*single[attr.Key]}
		if attr.MultiValued {
			values = *multi[attr.Key]
		}
		for _, v := range values {
			err = o.attrs.Add(attr, v)
			if err != nil {
				return nil, err
			}
		}
	}

	switch {
	case o.newKeyPath != "" && o.keyPath != "":
		return nil, berrors.ConfigError("-n and -k are mutually exclusive")
	case o.newKeyPath == "" && o.keyPath == "":
		return nil, berrors.ConfigError("one of -n or -k is required")
	case o.keySize != "" && o.newKeyPath == "":
		return nil, berrors.ConfigError("-keysize can only be used with -n")
	}
	return o, nil
}

// loadConfig returns the defaults overlaid with the config file, if any,
// and the verbosity flag.
func loadConfig(o *options) (Config, error) {
	c := defaultConfig()
	if o.configFile != "" {
		err := cmd.LoadConfig(o.configFile, &c)
		if err != nil {
			return Config{}, err
		}
	}
	if o.verbose {
		c.Syslog.StdoutLevel = 7
	}
	return c, nil
}

func main() {
	defer cmd.AuditPanic()

	o, err := parseFlags(cmd.Command(), os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	cmd.FailOnError(err, "Parsing flags")

	c, err := loadConfig(o)
	cmd.FailOnError(err, "Loading config")

	logger, err := cmd.NewLogger(c.Syslog, os.Stderr)
	cmd.FailOnError(err, "Setting up logging")
	_ = blog.Set(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Counters are only registered when they will be written out.
	var stats prometheus.Gatherer
	var registerer prometheus.Registerer = metrics.NoopRegisterer
	if c.MetricsTextfile != "" {
		reg := metrics.NewRegistry()
		stats, registerer = reg, reg
	}
	r := &requester{
		log:      logger,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		prompts:  os.Stderr,
		terminal: term.IsTerminal(int(os.Stdin.Fd())),
		runner:   &openssl.ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr},
		stats:    stats,
		metrics:  newRequestMetrics(registerer),
	}
	err = r.run(ctx, c, o)
	cmd.FailOnError(err, "")
}
