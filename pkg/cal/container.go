package cal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Calibration errors.
var (
	// ErrEmpty indicates a table with no points.
	ErrEmpty = errors.New("calibration table is empty")

	// ErrFormat indicates serialized data of the wrong kind or version.
	ErrFormat = errors.New("unsupported calibration format")

	// ErrNotFound indicates no stored data for a key.
	ErrNotFound = errors.New("calibration data not found")
)

// Container is calibration data that can be stored and retrieved as bytes.
type Container interface {
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
}

// Make builds a container of type T from serialized data.
//
//	table, err := cal.Make[cal.GainTable](data)
func Make[T any, PT interface {
	*T
	Container
}](data []byte) (PT, error) {
	c := PT(new(T))
	if err := c.Deserialize(data); err != nil {
		return nil, err
	}
	return c, nil
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store keeps serialized containers as files in a directory, one per key.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Key builds the storage key for a named table on a device.
func Key(name, serial string) string {
	return name + "_" + serial
}

func (s *Store) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid calibration key %q", key)
	}
	return filepath.Join(s.dir, key+".cal"), nil
}

// Write stores c under key.
func (s *Store) Write(key string, c Container) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := c.Serialize()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", key, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create calibration directory: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return os.Rename(tmp, p)
}

// Read returns the raw data stored under key.
func (s *Store) Read(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// Has reports whether data exists under key.
func (s *Store) Has(key string) bool {
	p, err := s.path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads and deserializes the container stored under key.
func Load[T any, PT interface {
	*T
	Container
}](s *Store, key string) (PT, error) {
	data, err := s.Read(key)
	if err != nil {
		return nil, err
	}
	return Make[T, PT](data)
}
