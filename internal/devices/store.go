package devices

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/markusressel/fancond/internal/util"
	"github.com/natefinch/atomic"
)

const backupTimeFormat = "20060102-150405"

// Store reads and writes the device set document at a fixed path
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

func (s *Store) Exists() bool {
	return util.FileExists(s.Path)
}

// Read returns the stored document, or the default document if none exists yet
func (s *Store) Read() (Document, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return DefaultDocument(), nil
	}
	if err != nil {
		return DefaultDocument(), err
	}
	return Decode(data)
}

// Write replaces the stored document atomically
func (s *Store) Write(doc Document) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return err
	}
	return atomic.WriteFile(s.Path, bytes.NewReader(data))
}

// WriteWithBackup moves an existing document aside before writing the given one.
// Returns the path of the backup, which is empty if there was nothing to back up.
func (s *Store) WriteWithBackup(doc Document, now time.Time) (backupPath string, err error) {
	if s.Exists() {
		backupPath = fmt.Sprintf("%s.%s.bak", s.Path, now.Format(backupTimeFormat))
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return "", err
		}
		if err = atomic.WriteFile(backupPath, bytes.NewReader(data)); err != nil {
			return "", err
		}
	}
	return backupPath, s.Write(doc)
}

// ModTime returns the last modification time of the stored document
func (s *Store) ModTime() (time.Time, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
