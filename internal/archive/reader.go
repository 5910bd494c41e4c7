// Package archive reads and writes compressed tar bundles of provenance
// directories. Both tar.xz and tar.gz are supported.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// IsArchive reports whether path names a supported bundle.
func IsArchive(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".tar.xz") ||
		strings.HasSuffix(lower, ".tar.gz") ||
		strings.HasSuffix(lower, ".tgz")
}

// NewReader creates a new archive reader for the given path.
// It automatically detects and handles .tar.gz and .tar.xz compression.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var reader io.Reader
	var decompressor io.Closer

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Visitor is a callback function for iterating archive entries.
// Return true to stop iteration, false to continue.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// Walk opens an archive and iterates through its entries.
func Walk(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// ErrMemberNotFound is returned by ReadMember when no entry matches.
var ErrMemberNotFound = fmt.Errorf("archive member not found")

// ReadMember reads the regular file stored as member, either at the top of
// the archive or below a single leading directory.
// It returns the content and the entry name that matched.
func ReadMember(archivePath, member string) ([]byte, string, error) {
	member = strings.TrimPrefix(member, "/")
	var content []byte
	var found string
	err := Walk(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		name := strings.TrimPrefix(header.Name, "./")
		stripped := name
		if idx := strings.Index(name, "/"); idx >= 0 {
			stripped = name[idx+1:]
		}
		if name != member && stripped != member {
			return false, nil
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return true, fmt.Errorf("read %s: %w", header.Name, err)
		}
		content = data
		found = header.Name
		return true, nil
	})
	if err != nil {
		return nil, "", err
	}
	if found == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrMemberNotFound, member)
	}
	return content, found, nil
}
