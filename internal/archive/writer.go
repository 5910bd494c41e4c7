package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// xzNewWriter is a variable to allow testing of compressor failures.
var xzNewWriter = func(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

// epoch is stamped on every entry so identical trees give identical bundles.
var epoch = time.Unix(0, 0).UTC()

// CreateTarXz bundles srcDir into a tar.xz archive at dstPath. Entries are
// stored under baseDir, in lexical order, with normalized timestamps and
// ownership.
func CreateTarXz(srcDir, dstPath, baseDir string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	var paths []string
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", srcDir, err)
	}
	sort.Strings(paths)

	outFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	xw, err := xzNewWriter(outFile)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)

	for _, path := range paths {
		if err := addEntry(tw, srcDir, path, baseDir); err != nil {
			tw.Close()
			xw.Close()
			return fmt.Errorf("failed to create archive: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		xw.Close()
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("failed to finish xz stream: %w", err)
	}
	return outFile.Close()
}

func addEntry(tw *tar.Writer, srcDir, path, baseDir string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	relPath, err := filepath.Rel(srcDir, path)
	if err != nil {
		return err
	}
	if relPath == "." {
		return nil
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return nil
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = strings.TrimPrefix(baseDir+"/"+filepath.ToSlash(relPath), "/")
	if info.IsDir() {
		header.Name += "/"
	}
	header.ModTime = epoch
	header.AccessTime = time.Time{}
	header.ChangeTime = time.Time{}
	header.Uid, header.Gid = 0, 0
	header.Uname, header.Gname = "", ""

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(tw, file)
	return err
}
