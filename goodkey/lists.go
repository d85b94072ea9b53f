package goodkey

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// keyList is a set of public key digests read from a file.
type keyList struct {
	digests map[string]struct{}
	digest  func(crypto.PublicKey) ([]byte, error)
}

// listKind describes how one kind of key list is stored and how a key is
// hashed to look it up.
type listKind struct {
	// field names the top-level key holding the entries. If empty, the
	// document is a bare sequence.
	field  string
	decode func(string) ([]byte, error)
	size   int
	digest func(crypto.PublicKey) ([]byte, error)
}

var (
	// Known weak RSA keys (e.g. the Debian OpenSSL PRNG keys) are published
	// as a JSON array of hex encoded last 10 bytes of the SHA-1 hash of the
	// modulus.
	weakRSAKeys = listKind{
		decode: hex.DecodeString,
		size:   10,
		digest: modulusSuffix,
	}
	// Blocked keys are listed under "blocked" as base64 SHA-256 hashes of the
	// DER SubjectPublicKeyInfo.
	blockedKeys = listKind{
		field:  "blocked",
		decode: base64.StdEncoding.DecodeString,
		size:   sha256.Size,
		digest: spkiHash,
	}
)

// modulusSuffix returns nil for anything but an RSA key with a modulus.
func modulusSuffix(key crypto.PublicKey) ([]byte, error) {
	k, ok := key.(*rsa.PublicKey)
	if !ok || k.N == nil {
		return nil, nil
	}
	sum := sha1.Sum(k.N.Bytes())
	return sum[len(sum)-weakRSAKeys.size:], nil
}

func spkiHash(key crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(der)
	return sum[:], nil
}

// load reads a list of this kind from path. JSON documents are read as
// YAML. An empty list is an error.
func (k listKind) load(path string) (*keyList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []string
	if k.field == "" {
		err = yaml.Unmarshal(data, &entries)
	} else {
		var doc map[string][]string
		err = yaml.Unmarshal(data, &doc)
		entries = doc[k.field]
	}
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("key list is empty")
	}

	l := &keyList{digests: make(map[string]struct{}, len(entries)), digest: k.digest}
	for _, e := range entries {
		d, err := k.decode(e)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e, err)
		}
		if len(d) != k.size {
			return nil, fmt.Errorf("entry %q is %d bytes, expected %d", e, len(d), k.size)
		}
		l.digests[string(d)] = struct{}{}
	}
	return l, nil
}

// contains reports whether key is on the list. A nil list holds nothing.
func (l *keyList) contains(key crypto.PublicKey) (bool, error) {
	if l == nil {
		return false, nil
	}
	d, err := l.digest(key)
	if err != nil || d == nil {
		return false, err
	}
	_, found := l.digests[string(d)]
	return found, nil
}
