// Package digest computes content hashes of files for comparison against
// hashes recorded in provenance.
// Algorithm names follow the names provenance collectors write into their
// environment records ("md5", "sha1", ...).
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// osOpen is a variable to allow testing of open errors.
var osOpen = func(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// ErrUnknownAlgorithm is returned for an algorithm name with no hasher.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithm names a content-hashing function.
type Algorithm string

// Supported algorithms.
const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
	CRC32  Algorithm = "crc32"
	BLAKE3 Algorithm = "blake3"
)

// DefaultAlgorithm is assumed when a provenance record declares none.
const DefaultAlgorithm = MD5

var constructors = map[Algorithm]func() hash.Hash{
	MD5:    md5.New,
	SHA1:   sha1.New,
	SHA256: sha256.New,
	SHA512: sha512.New,
	CRC32:  func() hash.Hash { return crc32.NewIEEE() },
	BLAKE3: func() hash.Hash { return blake3.New() },
}

// Parse resolves an algorithm name case-insensitively. An empty name
// resolves to DefaultAlgorithm.
func Parse(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultAlgorithm, nil
	}
	a := Algorithm(strings.ReplaceAll(name, "-", ""))
	if _, ok := constructors[a]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
	}
	return a, nil
}

// Supported returns the known algorithm names in a stable order.
func Supported() []Algorithm {
	return []Algorithm{MD5, SHA1, SHA256, SHA512, CRC32, BLAKE3}
}

// New returns a fresh hasher for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	ctor, ok := constructors[a]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, a)
	}
	return ctor(), nil
}

func (a Algorithm) String() string {
	return string(a)
}

// Bytes computes the hex digest of data.
func Bytes(a Algorithm, data []byte) (string, error) {
	h, err := a.New()
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Reader computes the hex digest of everything read from r.
func Reader(a Algorithm, r io.Reader) (string, error) {
	h, err := a.New()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File computes the hex digest of the file at path.
func File(a Algorithm, path string) (string, error) {
	if _, ok := constructors[a]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAlgorithm, a)
	}
	f, err := osOpen(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Reader(a, f)
}

// Equal compares two hex digests, ignoring case. Empty digests never match.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
