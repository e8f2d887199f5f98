// Package storage keeps uploaded photos and certification documents on the
// local filesystem under a single root directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	PhotoExtensions         = []string{"png", "jpg", "jpeg", "gif", "webp"}
	CertificationExtensions = []string{"pdf"}
)

const (
	PhotosDir         = ""
	CertificationsDir = "certifications"
)

var (
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrFileNotFound        = errors.New("file not found")
)

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"pdf":  "application/pdf",
}

type Store struct {
	root string
}

// New creates the root and the certifications directory if missing.
func New(root string) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, CertificationsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

// Ext returns the lower-cased extension without the dot, "" if none.
func Ext(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

func Allowed(filename string, allowed []string) bool {
	ext := Ext(filename)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func MimeType(filename string) string {
	if m, ok := mimeTypes[Ext(filename)]; ok {
		return m
	}
	return "application/octet-stream"
}

// Save writes r under subdir with a random name that keeps only the validated
// extension of original. It returns the stored name.
func (s *Store) Save(subdir, original string, r io.Reader, allowed []string) (string, error) {
	if !Allowed(original, allowed) {
		return "", ErrExtensionNotAllowed
	}
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + Ext(original)

	f, err := os.OpenFile(filepath.Join(s.root, subdir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		s.Remove(subdir, name)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		s.Remove(subdir, name)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, nil
}

// Path resolves a stored name and checks that the file exists.
func (s *Store) Path(subdir, name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", ErrFileNotFound
	}
	p := filepath.Join(s.root, subdir, name)
	if _, err := os.Stat(p); err != nil {
		return "", ErrFileNotFound
	}
	return p, nil
}

func (s *Store) Remove(subdir, name string) {
	if name == "" || filepath.Base(name) != name {
		return
	}
	_ = os.Remove(filepath.Join(s.root, subdir, name))
}
