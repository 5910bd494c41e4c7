package provenance

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	perrors "github.com/cran/provTraceR/core/errors"
	"github.com/cran/provTraceR/internal/archive"
)

// Record file names, in lookup order.
const (
	JSONFile = "prov.json"
	XMLFile  = "prov.xml"
)

// recordFormats lists the record files tried for each script, in order.
var recordFormats = []struct {
	file  string
	parse func([]byte, string) (*Record, error)
}{
	{JSONFile, ParseJSON},
	{XMLFile, ParseXML},
}

// Injectable functions for testing.
var (
	osReadFile        = os.ReadFile
	archiveReadMember = archive.ReadMember
)

// Store locates and parses provenance records under one provenance
// directory, or inside a tar.xz / tar.gz bundle of such a directory.
type Store struct {
	root     string
	archived bool
}

// OpenStore returns a Store rooted at root. The root must exist.
func OpenStore(root string) (*Store, error) {
	if root == "" {
		return nil, perrors.NewConfiguration("prov-dir", "provenance directory is not set")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &perrors.ConfigurationError{
			Setting: "prov-dir",
			Message: fmt.Sprintf("cannot access provenance directory %s", root),
			Err:     err,
		}
	}
	if archive.IsArchive(root) && !info.IsDir() {
		return &Store{root: root, archived: true}, nil
	}
	if !info.IsDir() {
		return nil, perrors.NewConfiguration("prov-dir", fmt.Sprintf("%s is not a directory or provenance bundle", root))
	}
	return &Store{root: root}, nil
}

// Root returns the directory or bundle the store reads from.
func (s *Store) Root() string {
	return s.root
}

// RecordDir returns the per-script directory name, e.g. "prov_analysis".
func RecordDir(script string) string {
	return "prov_" + ScriptBase(script)
}

// Load finds and parses the provenance record of script.
func (s *Store) Load(script string) (*Record, error) {
	dir := RecordDir(script)
	var (
		rec *Record
		err error
	)
	if s.archived {
		rec, err = s.loadArchived(dir)
	} else {
		rec, err = s.loadDir(filepath.Join(s.root, dir))
	}
	if err != nil {
		return nil, err
	}
	rec.Script = script
	return rec, nil
}

func (s *Store) loadDir(dir string) (*Record, error) {
	for _, candidate := range recordFormats {
		location := filepath.Join(dir, candidate.file)
		data, err := osReadFile(location)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, perrors.NewIO("read", location, err)
		}
		return candidate.parse(data, location)
	}
	return nil, &perrors.NotFoundError{Resource: "provenance", ID: filepath.Base(dir), Where: dir}
}

func (s *Store) loadArchived(dir string) (*Record, error) {
	for _, candidate := range recordFormats {
		data, member, err := archiveReadMember(s.root, path.Join(dir, candidate.file))
		if errors.Is(err, archive.ErrMemberNotFound) {
			continue
		}
		if err != nil {
			return nil, perrors.NewIO("read", s.root, err)
		}
		return candidate.parse(data, s.root+"!"+member)
	}
	return nil, &perrors.NotFoundError{Resource: "provenance", ID: dir, Where: s.root}
}
