package attachment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiskStorage writes attachments under root, namespaced per owner and
// expense. Object keys embed a timestamp and a random suffix so a retried
// upload never overwrites an earlier attempt.
type DiskStorage struct {
	root    string
	maxSize int64
}

func NewDiskStorage(root string, maxSize int64) *DiskStorage {
	return &DiskStorage{root: root, maxSize: maxSize}
}

func (s *DiskStorage) Store(ownerID, expenseID int64, upload Upload) (string, error) {
	name := filepath.Base(upload.Name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", ErrBadFileName
	}
	if upload.Size <= 0 {
		return "", ErrEmptyUpload
	}
	if s.maxSize > 0 && upload.Size > s.maxSize {
		return "", ErrBadFileName.WithDetails(fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	key := fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), uuid.NewString()[:8], name)
	rel := filepath.Join(fmt.Sprintf("%d", ownerID), fmt.Sprintf("%d", expenseID), key)
	abs := filepath.Join(s.root, rel)

	// The joined path must stay inside the owner's namespace under root.
	if !strings.HasPrefix(filepath.Clean(abs), filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", ErrBadFileName
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", ErrStoreFailed.WithCause(err)
	}

	dst, err := os.Create(abs)
	if err != nil {
		return "", ErrStoreFailed.WithCause(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, upload.Content); err != nil {
		os.Remove(abs)
		return "", ErrStoreFailed.WithCause(err)
	}

	return rel, nil
}

func (s *DiskStorage) Remove(path string) error {
	abs := filepath.Join(s.root, path)
	if !strings.HasPrefix(filepath.Clean(abs), filepath.Clean(s.root)+string(os.PathSeparator)) {
		return ErrBadFileName
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
