// Package csr checks a certificate signing request produced by the signer
// against the subject and SANs that were asked for.
package csr

import (
	"crypto/x509"
	"encoding/pem"
	"net/netip"
	"slices"

	berrors "github.com/letsencrypt/certreq/errors"
	"github.com/letsencrypt/certreq/goodkey"
	"github.com/letsencrypt/certreq/san"
	"github.com/letsencrypt/certreq/subject"
)

// This map is used to decide which CSR signing algorithms we consider
// strong enough to use. Significantly the missing algorithms are:
// * No algorithms using MD2, MD5, or SHA-1
// * No DSA algorithms
var goodSignatureAlgorithms = map[x509.SignatureAlgorithm]bool{
	x509.SHA256WithRSA:   true,
	x509.SHA384WithRSA:   true,
	x509.SHA512WithRSA:   true,
	x509.ECDSAWithSHA256: true,
	x509.ECDSAWithSHA384: true,
	x509.ECDSAWithSHA512: true,
}

var (
	noCSRBlock          = berrors.BadCSRError("no CERTIFICATE REQUEST PEM block found")
	unsupportedSigAlg   = berrors.BadCSRError("signature algorithm not supported")
	invalidSig          = berrors.BadCSRError("invalid signature on CSR")
	invalidEmailPresent = berrors.BadCSRError("CSR contains one or more email address SANs")
	invalidURIPresent   = berrors.BadCSRError("CSR contains one or more URI SANs")
)

// Parse finds the first certificate request PEM block in data and parses
// it. Any text before the block, such as the dump printed by "openssl req
// -text", is skipped.
func Parse(data []byte) (*x509.CertificateRequest, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, noCSRBlock
		}
		if block.Type != "CERTIFICATE REQUEST" && block.Type != "NEW CERTIFICATE REQUEST" {
			continue
		}
		csr, err := x509.ParseCertificateRequest(block.Bytes)
		if err != nil {
			return nil, berrors.BadCSRError("parsing CSR: %s", err)
		}
		return csr, nil
	}
}

// VerifyCSR checks the signature and key of csr and that it carries exactly
// the DNS and IP SANs in b, in order, and the commonName in attrs. UPN
// otherNames are not decoded by crypto/x509 and are not compared.
func VerifyCSR(csr *x509.CertificateRequest, attrs *subject.Attributes, b *san.Buckets, keyPolicy *goodkey.KeyPolicy) error {
	err := keyPolicy.GoodKey(csr.PublicKey)
	if err != nil {
		return berrors.BadCSRError("invalid public key in CSR: %s", err)
	}
	if !goodSignatureAlgorithms[csr.SignatureAlgorithm] {
		return unsupportedSigAlg
	}
	err = csr.CheckSignature()
	if err != nil {
		return invalidSig
	}
	if len(csr.EmailAddresses) > 0 {
		return invalidEmailPresent
	}
	if len(csr.URIs) > 0 {
		return invalidURIPresent
	}

	var cn string
	if cns := attrs.Values("cn"); len(cns) > 0 {
		cn = cns[0]
	}
	if csr.Subject.CommonName != cn {
		return berrors.BadCSRError("CSR commonName %q does not match requested %q", csr.Subject.CommonName, cn)
	}

	if !slices.Equal(csr.DNSNames, b.DNSNames) {
		return berrors.BadCSRError("CSR DNS names %q do not match requested %q", csr.DNSNames, b.DNSNames)
	}

	var got, want []netip.Addr
	for _, ip := range csr.IPAddresses {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			return berrors.BadCSRError("CSR contains malformed IP address %v", ip)
		}
		got = append(got, addr.Unmap())
	}
	for _, s := range b.IPs {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return berrors.InternalServerError("requested IP %q no longer parses: %s", s, err)
		}
		want = append(want, addr.WithZone("").Unmap())
	}
	if !slices.Equal(got, want) {
		return berrors.BadCSRError("CSR IP addresses %v do not match requested %v", got, want)
	}
	return nil
}
