package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/letsencrypt/certreq/csr"
	"github.com/letsencrypt/certreq/csrconf"
	berrors "github.com/letsencrypt/certreq/errors"
	"github.com/letsencrypt/certreq/goodkey"
	"github.com/letsencrypt/certreq/identifier"
	blog "github.com/letsencrypt/certreq/log"
	"github.com/letsencrypt/certreq/metrics"
	"github.com/letsencrypt/certreq/openssl"
	"github.com/letsencrypt/certreq/policy"
	"github.com/letsencrypt/certreq/privatekey"
	"github.com/letsencrypt/certreq/san"
	"github.com/letsencrypt/certreq/subject"
)

// requester runs one request from parsed options to a CSR (or to manual
// instructions).
type requester struct {
	log      blog.Logger
	stdin    io.Reader
	stdout   io.Writer
	prompts  io.Writer
	terminal bool
	runner   openssl.Runner
	stats    prometheus.Gatherer
	metrics  *requestMetrics
}

type requestMetrics struct {
	sanEntries        *prometheus.CounterVec
	subjectAttributes *prometheus.CounterVec
	signerRuns        *prometheus.CounterVec
}

func newRequestMetrics(stats prometheus.Registerer) *requestMetrics {
	sanEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certreq_san_entries_total",
		Help: "Number of SAN entries requested, by classification",
	}, []string{"type"})
	stats.MustRegister(sanEntries)

	subjectAttributes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certreq_subject_attributes_total",
		Help: "Number of subject attribute values requested, by attribute",
	}, []string{"attribute"})
	stats.MustRegister(subjectAttributes)

	signerRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certreq_signer_runs_total",
		Help: "Number of signer invocations, by mode and result",
	}, []string{"mode", "result"})
	stats.MustRegister(signerRuns)

	return &requestMetrics{
		sanEntries:        sanEntries,
		subjectAttributes: subjectAttributes,
		signerRuns:        signerRuns,
	}
}

func (r *requester) run(ctx context.Context, c Config, o *options) error {
	m := r.metrics
	if c.MetricsTextfile != "" {
		defer func() {
			err := metrics.WriteTextfile(r.stats, c.MetricsTextfile)
			if err != nil {
				r.log.Warningf("Writing metrics to %q: %s", c.MetricsTextfile, err)
			}
		}()
	}

	keyPolicy, err := goodkey.NewKeyPolicy(&c.KeyPolicy)
	if err != nil {
		return err
	}
	osslReq, err := r.selectKey(keyPolicy, o)
	if err != nil {
		return err
	}
	osslReq.OutPath = o.csrPath

	req, err := r.buildSubject(o)
	if err != nil {
		return err
	}
	for _, p := range req.Attributes.Pairs() {
		m.subjectAttributes.WithLabelValues(p.Attribute.Key).Inc()
	}
	r.log.AuditInfof("Subject (%s): %s", req.Source, csrconf.SubjectLine(req.Attributes))

	buckets := r.classify(req.SAN, m)
	linter := policy.Linter{
		PublicSuffix: c.Lint.PublicSuffix,
		ReservedIP:   c.Lint.ReservedIP,
		IDN:          c.Lint.IDN,
	}
	for _, w := range linter.Lint(buckets.Entries) {
		r.log.Warningf("%s", w)
	}

	cfg := csrconf.Render(req.Attributes, buckets)
	r.log.Debugf("Generated openssl config:\n%s", cfg)

	if o.manual {
		err = openssl.WriteInstructions(r.stdout, c.Openssl.Path, c.Openssl.ManualConfigName, cfg, osslReq)
		m.signerRuns.WithLabelValues("manual", result(err)).Inc()
		return err
	}

	signer := openssl.NewSigner(c.Openssl.Path, r.runner, r.log)
	err = signer.Sign(ctx, cfg, osslReq)
	m.signerRuns.WithLabelValues("automatic", result(err)).Inc()
	if err != nil {
		return err
	}

	if o.csrPath == "" {
		return nil
	}
	return r.verify(o.csrPath, req.Attributes, buckets, keyPolicy)
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// selectKey fills in the key half of the openssl request. An existing key
// that can be decoded must pass the key policy; one that cannot (e.g. an
// encrypted key) is passed through to openssl with a warning. In manual mode
// the command runs on another machine, so an existing key is not read.
func (r *requester) selectKey(keyPolicy *goodkey.KeyPolicy, o *options) (openssl.Request, error) {
	if o.newKeyPath != "" {
		spec, err := keyPolicy.ParseNewKeySize(o.keySize)
		if err != nil {
			return openssl.Request{}, err
		}
		r.log.Debugf("Generating new %s key in %s", spec, o.newKeyPath)
		return openssl.Request{NewKey: &openssl.NewKey{Path: o.newKeyPath, Spec: spec}}, nil
	}

	if o.manual {
		_, err := os.Stat(o.keyPath)
		if err != nil {
			r.log.Warningf("Existing key %s is not readable here, it must exist where the command is run: %s", o.keyPath, err)
		}
		return openssl.Request{ExistingKeyPath: o.keyPath}, nil
	}

	_, pub, err := privatekey.Load(o.keyPath)
	switch {
	case errors.Is(err, privatekey.ErrUnparseable):
		r.log.Warningf("Could not check existing key, passing it to openssl unchecked: %s", err)
	case err != nil:
		return openssl.Request{}, berrors.BadKeyError("loading existing key: %s", err)
	default:
		err = keyPolicy.GoodKey(pub)
		if err != nil {
			return openssl.Request{}, berrors.BadKeyError("existing key %q: %s", o.keyPath, err)
		}
		thumbprint, err := privatekey.Thumbprint(pub)
		if err != nil {
			return openssl.Request{}, berrors.BadKeyError("existing key %q: %s", o.keyPath, err)
		}
		r.log.AuditInfof("Using existing key %s with thumbprint %s", o.keyPath, thumbprint)
	}
	return openssl.Request{ExistingKeyPath: o.keyPath}, nil
}

func (r *requester) buildSubject(o *options) (*subject.Request, error) {
	in := subject.Input{DN: o.dn, Flags: o.attrs, SAN: o.san}
	src, _, err := subject.Resolve(in)
	if err != nil {
		return nil, err
	}
	if src == subject.SourceInteractive && !r.terminal {
		r.log.Info("Standard input is not a terminal, reading the subject from piped input")
	}
	b := subject.NewBuilder(subject.NewLinePrompter(r.stdin, r.prompts))
	return b.Build(in)
}

// classify sorts the SAN string into buckets, logging every entry. Invalid
// entries are logged as errors and dropped; they never stop the run.
func (r *requester) classify(raw string, m *requestMetrics) *san.Buckets {
	b := san.Classify(raw)
	for _, id := range b.Entries {
		m.sanEntries.WithLabelValues(string(id.Type)).Inc()
		if id.Type != identifier.Invalid {
			r.log.Debugf("SAN %s: %s", id.Type, id.Value)
		}
	}
	var rErr *berrors.RequestError
	if errors.As(b.Err(), &rErr) {
		for _, sub := range rErr.SubErrors {
			r.log.Errf("Invalid SAN %s", sub)
		}
	}
	return b
}

func (r *requester) verify(path string, attrs *subject.Attributes, b *san.Buckets, keyPolicy *goodkey.KeyPolicy) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return berrors.BadCSRError("reading CSR %q: %s", path, err)
	}
	parsed, err := csr.Parse(data)
	if err != nil {
		return err
	}
	err = csr.VerifyCSR(parsed, attrs, b, keyPolicy)
	if err != nil {
		return err
	}
	thumbprint, err := privatekey.Thumbprint(parsed.PublicKey)
	if err != nil {
		return berrors.BadCSRError("CSR public key: %s", err)
	}
	r.log.AuditInfof("Wrote CSR to %s for key thumbprint %s", path, thumbprint)
	return nil
}
