package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
)

const sweepLockName = ".sweep.lock"

// SanitizeTitle keeps letters, digits, spaces, hyphens and underscores and
// trims the result. An empty result becomes "chapter".
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return fallbackTitle
	}
	return out
}

func ArchiveName(title string) string {
	return fmt.Sprintf("%s_%s.zip", SanitizeTitle(title), randomHex8())
}

// writeArchive zips draftDir with entries rooted at the draft dir's own name,
// so the archive's top level holds exactly that folder. The archive is written
// under a temporary name and renamed into place once complete.
func (p *Packager) writeArchive(draftDir, fileName string) (string, int64, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return "", 0, err
	}
	final := filepath.Join(p.cfg.OutputDir, fileName)
	tmp, err := os.CreateTemp(p.cfg.OutputDir, "."+fileName+".partial-*")
	if err != nil {
		return "", 0, err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := zipDir(tmp, draftDir); err != nil {
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmpName, final); err != nil {
		return "", 0, err
	}
	ok = true

	st, err := os.Stat(final)
	if err != nil {
		return final, 0, nil
	}
	return final, st.Size(), nil
}

func zipDir(w io.Writer, root string) error {
	zw := zip.NewWriter(w)
	parent := filepath.Dir(root)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate
		hdr.Modified = info.ModTime().UTC()
		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(dst, src)
		closeErr := src.Close()
		return errors.Join(err, closeErr)
	})
	if walkErr != nil {
		_ = zw.Close()
		return walkErr
	}
	return zw.Close()
}

var ErrArchiveNotFound = errors.New("archive not found or expired")

// ResolveArchive maps a client supplied file name to a path inside dir. Names
// with path separators, parent references or a non-zip suffix are rejected.
func ResolveArchive(dir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		name == "." || name == ".." || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".zip") {
		return "", fmt.Errorf("%w: %q", ErrArchiveNotFound, name)
	}
	path := filepath.Join(dir, name)
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", ErrArchiveNotFound, name)
	}
	return path, nil
}

// SweepExpired deletes finished archives in dir last modified before
// now-olderThan and returns how many were removed. Partial archives are
// swept too.
// SweepExpired removes archives in dir last modified before now-olderThan.
// It holds an advisory file lock on dir so processes sharing the directory do
// not sweep concurrently; when another holder has it, the sweep is skipped.
func SweepExpired(dir string, olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	lock := flock.New(filepath.Join(dir, sweepLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return 0, nil
	}
	defer lock.Unlock()

	cutoff := now.Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
