// Package goodkey decides whether a key is strong enough to put in a CSR,
// and parses the key size given for a newly generated key.
package goodkey

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/titanous/rocacheck"

	berrors "github.com/letsencrypt/certreq/errors"
)

const (
	// DefaultRSABits is the size of a new key when none is given.
	DefaultRSABits = 2048
	defaultMinBits = 2048
	defaultMaxBits = 8192
)

// To generate, run: primes 2 752 | tr '\n' ,
var smallPrimeInts = []int64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
	53, 59, 61, 67, 71, 73, 79, 83, 89, 97, 101, 103, 107,
	109, 113, 127, 131, 137, 139, 149, 151, 157, 163, 167,
	173, 179, 181, 191, 193, 197, 199, 211, 223, 227, 229,
	233, 239, 241, 251, 257, 263, 269, 271, 277, 281, 283,
	293, 307, 311, 313, 317, 331, 337, 347, 349, 353, 359,
	367, 373, 379, 383, 389, 397, 401, 409, 419, 421, 431,
	433, 439, 443, 449, 457, 461, 463, 467, 479, 487, 491,
	499, 503, 509, 521, 523, 541, 547, 557, 563, 569, 571,
	577, 587, 593, 599, 601, 607, 613, 617, 619, 631, 641,
	643, 647, 653, 659, 661, 673, 677, 683, 691, 701, 709,
	719, 727, 733, 739, 743, 751,
}

var (
	smallPrimesOnce sync.Once
	smallPrimes     []*big.Int
)

// Config configures a KeyPolicy.
type Config struct {
	// MinRSABits and MaxRSABits bound the RSA modulus length, inclusive.
	// Zero takes the default of 2048 and 8192 respectively.
	MinRSABits int `yaml:"minRSABits" validate:"omitempty,min=1024"`
	MaxRSABits int `yaml:"maxRSABits" validate:"omitempty,min=1024"`
	// ROCACheck rejects RSA moduli produced by the Infineon library
	// affected by CVE-2017-15361.
	ROCACheck bool `yaml:"rocaCheck"`
	// WeakKeyFile is a JSON array of hex encoded truncated SHA-1 modulus
	// hashes of known weak RSA keys.
	WeakKeyFile string `yaml:"weakKeyFile"`
	// BlockedKeyFile is a YAML file listing base64 SHA-256 hashes of
	// SubjectPublicKeyInfos that must not be used.
	BlockedKeyFile string `yaml:"blockedKeyFile"`
}

// KeyPolicy bounds the keys accepted for a request. The zero value is not
// useful; use NewKeyPolicy.
type KeyPolicy struct {
	MinRSABits int
	MaxRSABits int
	ROCACheck  bool

	AllowECDSANISTP256 bool
	AllowECDSANISTP384 bool
	AllowECDSANISTP521 bool

	weakRSAList *keyList
	blockedList *keyList
}

// NewKeyPolicy returns a KeyPolicy allowing RSA keys within the configured
// bounds and the NIST P-256, P-384 and P-521 curves. A nil config takes
// every default.
func NewKeyPolicy(config *Config) (*KeyPolicy, error) {
	if config == nil {
		config = &Config{}
	}
	minBits, maxBits := config.MinRSABits, config.MaxRSABits
	if minBits == 0 {
		minBits = defaultMinBits
	}
	if maxBits == 0 {
		maxBits = defaultMaxBits
	}
	if minBits%8 != 0 || maxBits%8 != 0 {
		return nil, berrors.ConfigError("RSA key bounds must be multiples of 8, got %d..%d", minBits, maxBits)
	}
	if minBits > maxBits {
		return nil, berrors.ConfigError("minimum RSA key size %d exceeds maximum %d", minBits, maxBits)
	}
	kp := &KeyPolicy{
		MinRSABits:         minBits,
		MaxRSABits:         maxBits,
		ROCACheck:          config.ROCACheck,
		AllowECDSANISTP256: true,
		AllowECDSANISTP384: true,
		AllowECDSANISTP521: true,
	}
	var err error
	if config.WeakKeyFile != "" {
		kp.weakRSAList, err = weakRSAKeys.load(config.WeakKeyFile)
		if err != nil {
			return nil, berrors.ConfigError("loading weak key list: %s", err)
		}
	}
	if config.BlockedKeyFile != "" {
		kp.blockedList, err = blockedKeys.load(config.BlockedKeyFile)
		if err != nil {
			return nil, berrors.ConfigError("loading blocked key list: %s", err)
		}
	}
	return kp, nil
}

// ParseNewKeySize accepts "N" or "rsa:N" and returns the openssl -newkey
// argument "rsa:N". An empty size means DefaultRSABits.
func (policy *KeyPolicy) ParseNewKeySize(size string) (string, error) {
	if size == "" {
		size = strconv.Itoa(DefaultRSABits)
	}
	bitsStr := size
	if alg, rest, ok := strings.Cut(size, ":"); ok {
		if !strings.EqualFold(alg, "rsa") {
			return "", berrors.BadKeyError("unsupported key algorithm %q, only rsa keys can be generated", alg)
		}
		bitsStr = rest
	}
	bits, err := strconv.Atoi(bitsStr)
	if err != nil || bits <= 0 {
		return "", berrors.BadKeyError("invalid key size %q", size)
	}
	err = policy.checkRSABits(bits)
	if err != nil {
		return "", err
	}
	return "rsa:" + strconv.Itoa(bits), nil
}

func (policy *KeyPolicy) checkRSABits(bits int) error {
	if bits < policy.MinRSABits {
		return berrors.BadKeyError("key too small: %d < %d", bits, policy.MinRSABits)
	}
	if bits > policy.MaxRSABits {
		return berrors.BadKeyError("key too large: %d > %d", bits, policy.MaxRSABits)
	}
	// Bit lengths that are not a multiple of 8 may cause problems on some
	// client implementations.
	if bits%8 != 0 {
		return berrors.BadKeyError("key length wasn't a multiple of 8: %d", bits)
	}
	return nil
}

// GoodKey returns nil if key may be used in a request, and a BadKey error
// describing the first problem found otherwise.
func (policy *KeyPolicy) GoodKey(key crypto.PublicKey) error {
	switch t := key.(type) {
	case rsa.PublicKey:
		key = &t
	case ecdsa.PublicKey:
		key = &t
	}

	for _, l := range []struct {
		list   *keyList
		reason string
	}{
		{policy.blockedList, "public key is forbidden"},
		{policy.weakRSAList, "key is on a known weak RSA key list"},
	} {
		listed, err := l.list.contains(key)
		if err != nil {
			return berrors.BadKeyError("computing key digest: %s", err)
		}
		if listed {
			return berrors.BadKeyError("%s", l.reason)
		}
	}

	switch t := key.(type) {
	case *rsa.PublicKey:
		return policy.goodKeyRSA(t)
	case *ecdsa.PublicKey:
		return policy.goodKeyECDSA(t)
	default:
		return berrors.BadKeyError("unsupported key type %s", reflect.TypeOf(key))
	}
}

// goodKeyECDSA follows the public key validation routine of NIST SP800-56A
// § 5.6.2.3.2. Every allowed curve is a prime curve whose point at
// infinity is (0,0).
func (policy *KeyPolicy) goodKeyECDSA(key *ecdsa.PublicKey) error {
	err := policy.goodCurve(key.Curve)
	if err != nil {
		return err
	}
	params := key.Params()

	// Step 1: Q is not the point at infinity.
	if isPointAtInfinityNISTP(key.X, key.Y) {
		return berrors.BadKeyError("key x, y must not be the point at infinity")
	}

	// Step 2: x and y are in [0, p-1].
	if key.X.Sign() < 0 || key.Y.Sign() < 0 {
		return berrors.BadKeyError("key x, y must not be negative")
	}
	if key.X.Cmp(params.P) >= 0 || key.Y.Cmp(params.P) >= 0 {
		return berrors.BadKeyError("key x, y must not exceed P-1")
	}

	// Step 3: Q is on the curve.
	if !key.Curve.IsOnCurve(key.X, key.Y) {
		return berrors.BadKeyError("key point is not on the curve")
	}

	// Step 4: n*Q is the point at infinity.
	ox, oy := key.Curve.ScalarMult(key.X, key.Y, params.N.Bytes())
	if !isPointAtInfinityNISTP(ox, oy) {
		return berrors.BadKeyError("public key does not have correct order")
	}
	return nil
}

// isPointAtInfinityNISTP must only be used on curves whose point at
// infinity is (0,0).
func isPointAtInfinityNISTP(x, y *big.Int) bool {
	return x.Sign() == 0 && y.Sign() == 0
}

func (policy *KeyPolicy) goodCurve(c elliptic.Curve) error {
	params := c.Params()
	switch {
	case policy.AllowECDSANISTP256 && params == elliptic.P256().Params():
		return nil
	case policy.AllowECDSANISTP384 && params == elliptic.P384().Params():
		return nil
	case policy.AllowECDSANISTP521 && params == elliptic.P521().Params():
		return nil
	default:
		return berrors.BadKeyError("ECDSA curve %v not allowed", params.Name)
	}
}

func (policy *KeyPolicy) goodKeyRSA(key *rsa.PublicKey) error {
	if key.N == nil {
		return berrors.BadKeyError("RSA key has no modulus")
	}
	err := policy.checkRSABits(key.N.BitLen())
	if err != nil {
		return err
	}
	// The public exponent must be odd and at least 2^16 + 1. rsa.PublicKey
	// stores E as an int, so there is no upper bound to check.
	if (key.E%2) == 0 || key.E < ((1<<16)+1) {
		return berrors.BadKeyError("key exponent should be odd and >2^16: %d", key.E)
	}
	if checkSmallPrimes(key.N) {
		return berrors.BadKeyError("key divisible by small prime")
	}
	if policy.ROCACheck && rocacheck.IsWeak(key) {
		return berrors.BadKeyError("key generated by vulnerable Infineon library (CVE-2017-15361)")
	}
	return nil
}

// checkSmallPrimes reports whether i is divisible by any prime below 752.
// It short circuits, so it must not be used on secret values.
func checkSmallPrimes(i *big.Int) bool {
	smallPrimesOnce.Do(func() {
		for _, prime := range smallPrimeInts {
			smallPrimes = append(smallPrimes, big.NewInt(prime))
		}
	})

	for _, prime := range smallPrimes {
		var result big.Int
		result.Mod(i, prime)
		if result.Sign() == 0 {
			return true
		}
	}
	return false
}
