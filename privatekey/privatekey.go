// Package privatekey loads an existing private key so its public half can
// be checked before it is handed to the signer.
package privatekey

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"hash"
	"os"

	"github.com/go-jose/go-jose/v4"
)

// ErrUnparseable is wrapped by Load when the file was read but holds no key
// this package can decode, e.g. an encrypted PEM block. The signer may
// still be able to use such a file.
var ErrUnparseable = errors.New("unparseable private key")

// verifyRSA is broken out of Verify for testing purposes.
func verifyRSA(privKey *rsa.PrivateKey, pubKey *rsa.PublicKey, msgHash hash.Hash) error {
	signatureRSA, err := rsa.SignPSS(rand.Reader, privKey, crypto.SHA256, msgHash.Sum(nil), nil)
	if err != nil {
		return fmt.Errorf("failed to sign using the provided RSA private key: %s", err)
	}

	err = rsa.VerifyPSS(pubKey, crypto.SHA256, msgHash.Sum(nil), signatureRSA, nil)
	if err != nil {
		return fmt.Errorf("the provided RSA private key failed signature verification: %s", err)
	}
	return nil
}

// verifyECDSA is broken out of Verify for testing purposes.
func verifyECDSA(privKey *ecdsa.PrivateKey, pubKey *ecdsa.PublicKey, msgHash hash.Hash) error {
	r, s, err := ecdsa.Sign(rand.Reader, privKey, msgHash.Sum(nil))
	if err != nil {
		return fmt.Errorf("failed to sign using the provided ECDSA private key: %s", err)
	}

	if !ecdsa.Verify(pubKey, msgHash.Sum(nil), r, s) {
		return errors.New("the provided ECDSA private key failed signature verification")
	}
	return nil
}

// Verify ensures that the embedded PublicKey of the provided privateKey is
// actually a match for the private key.
func Verify(privateKey crypto.Signer) error {
	msgHash := sha256.New()
	_, err := msgHash.Write([]byte("verifiable"))
	if err != nil {
		return fmt.Errorf("failed to hash 'verifiable' message: %s", err)
	}

	switch k := privateKey.(type) {
	case *rsa.PrivateKey:
		return verifyRSA(k, &k.PublicKey, msgHash)
	case *ecdsa.PrivateKey:
		return verifyECDSA(k, &k.PublicKey, msgHash)
	default:
		return fmt.Errorf("unsupported private key type %T", privateKey)
	}
}

// Load reads a PEM formatted RSA or ECDSA private key in a PKCS #1, PKCS #8
// or SEC 1 container from path, checks that its public half matches, and
// returns both halves. Leading "EC PARAMETERS" blocks are skipped.
func Load(path string) (crypto.Signer, crypto.PublicKey, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read key file %q: %w", path, err)
	}

	signer, err := parse(keyBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%q: %w", path, err)
	}
	err = Verify(signer)
	if err != nil {
		return nil, nil, fmt.Errorf("%q: %w", path, err)
	}
	return signer, signer.Public(), nil
}

func parse(keyBytes []byte) (crypto.Signer, error) {
	var keyDER *pem.Block
	for {
		keyDER, keyBytes = pem.Decode(keyBytes)
		if keyDER == nil || keyDER.Type != "EC PARAMETERS" {
			break
		}
	}
	if keyDER == nil {
		return nil, fmt.Errorf("%w: no PEM formatted block found", ErrUnparseable)
	}

	signer, err := x509.ParsePKCS8PrivateKey(keyDER.Bytes)
	if err == nil {
		switch signer := signer.(type) {
		case *rsa.PrivateKey:
			return signer, nil
		case *ecdsa.PrivateKey:
			return signer, nil
		}
	}

	rsaSigner, err := x509.ParsePKCS1PrivateKey(keyDER.Bytes)
	if err == nil {
		return rsaSigner, nil
	}

	ecdsaSigner, err := x509.ParseECPrivateKey(keyDER.Bytes)
	if err == nil {
		return ecdsaSigner, nil
	}
	return nil, fmt.Errorf("%w: %q block is not an RSA or ECDSA private key", ErrUnparseable, keyDER.Type)
}

// Thumbprint returns the base64url encoded RFC 7638 SHA-256 thumbprint of
// pub, which identifies a key in logs without printing all of it.
func Thumbprint(pub crypto.PublicKey) (string, error) {
	jwk := &jose.JSONWebKey{Key: pub}
	thumbprint, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(thumbprint), nil
}
