package log

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jmhodges/clock"

	"github.com/letsencrypt/certreq/test"
)

func setup(t *testing.T, level int) (*impl, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := New(&buf, nil, level, -1)
	test.AssertNotError(t, err, "Could not construct logger")
	l := logger.(*impl)
	fc := clock.NewFake()
	fc.Set(time.Date(2026, 10, 16, 13, 14, 15, 0, time.UTC))
	l.w.(*bothWriter).clk = fc
	return l, &buf
}

func TestConstructionNil(t *testing.T) {
	_, err := New(nil, nil, 7, 7)
	test.AssertError(t, err, "Nil output writer should fail")
}

func TestLevelMasking(t *testing.T) {
	l, buf := setup(t, 4)

	l.Debug("debug line")
	l.Info("info line")
	l.Warning("warning line")
	l.Err("error line")

	out := buf.String()
	test.AssertNotContains(t, out, "debug line")
	test.AssertNotContains(t, out, "info line")
	test.AssertContains(t, out, "warning line")
	test.AssertContains(t, out, "[AUDIT] error line")
}

func TestSuppressAll(t *testing.T) {
	l, buf := setup(t, -1)
	l.Err("nobody hears this")
	test.AssertEquals(t, buf.Len(), 0)
}

func TestLineFormat(t *testing.T) {
	l, buf := setup(t, 7)
	l.Infof("Subject: %s", "cn=example")

	line := strings.TrimSuffix(buf.String(), "\n")
	fields := strings.SplitN(line, " ", 4)
	test.AssertEquals(t, len(fields), 4)
	test.AssertEquals(t, fields[0], "I131415")
	test.AssertEquals(t, fields[2], LogLineChecksum("Subject: cn=example"))
	test.AssertEquals(t, fields[3], "Subject: cn=example")
}

func TestEmbeddedNewline(t *testing.T) {
	l, buf := setup(t, 7)
	l.Debug("[ req ]\nprompt=no\n")

	test.AssertEquals(t, strings.Count(buf.String(), "\n"), 1)
	test.AssertContains(t, buf.String(), `[ req ]\nprompt=no\n`)
}

func TestAuditObject(t *testing.T) {
	m := NewMock()
	m.AuditObject("Request", map[string]string{"cn": "example.com"})
	m.AuditObject("Unserializable", func() {})

	logged := m.GetAll()
	test.AssertEquals(t, len(logged), 2)
	test.AssertEquals(t, logged[0], `INFO: [AUDIT] Request JSON={"cn":"example.com"}`)
	test.AssertContains(t, logged[1], "ERR: [AUDIT] Object could not be serialized to JSON")
}

func TestMock(t *testing.T) {
	m := NewMock()
	m.Warningf("Invalid SAN: %s", "bad_token!")
	m.Debugf("DNS: %s", "example.com")

	test.AssertEquals(t, len(m.GetAll()), 2)
	test.AssertDeepEquals(t, m.GetAllMatching("^WARNING: Invalid SAN"), []string{"WARNING: Invalid SAN: bad_token!"})

	m.Clear()
	test.AssertEquals(t, len(m.GetAll()), 0)
}

func TestLogLineChecksum(t *testing.T) {
	test.AssertEquals(t, LogLineChecksum("foo"), LogLineChecksum("foo"))
	test.AssertNotEquals(t, LogLineChecksum("foo"), LogLineChecksum("bar"))
	test.AssertEquals(t, len(LogLineChecksum("")), 6)
}

func TestSetGet(t *testing.T) {
	_Singleton.log = nil
	defer func() { _Singleton.log = nil }()

	m := NewMock()
	test.AssertNotError(t, Set(m), "first Set failed")
	test.AssertError(t, Set(NewMock()), "second Set succeeded")
	test.AssertEquals(t, Get(), Logger(m))

	_Singleton.log = nil
	test.AssertNotNil(t, Get(), "Get did not install a default logger")
}
