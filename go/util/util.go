package util

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
)

// Close wraps an io.Closer and logs an error if one is returned.
func Close(c io.Closer) {
	if err := c.Close(); err != nil {
		sklog.Errorf("Failed to Close(): %v", err)
	}
}

// Remove removes the specified file and logs an error if one is returned.
func Remove(name string) {
	if err := os.Remove(name); err != nil {
		sklog.Errorf("Failed to Remove(%s): %v", name, err)
	}
}

// WithWriteFile provides an interface for writing to a backing file using a
// temporary intermediate file for more atomicity in case a long-running write
// gets interrupted.
func WithWriteFile(file string, writeFn func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(file), filepath.Base(file))
	if err != nil {
		return skerr.Wrapf(err, "failed to create temporary file for WithWriteFile")
	}
	if err := writeFn(f); err != nil {
		Close(f)
		Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		Remove(f.Name())
		return skerr.Wrapf(err, "failed to close temporary file for WithWriteFile")
	}
	// CreateTemp makes files readable only by the owner, but the result is
	// committed and served as a web page.
	if err := os.Chmod(f.Name(), 0644); err != nil {
		Remove(f.Name())
		return skerr.Wrap(err)
	}
	if err := os.Rename(f.Name(), file); err != nil {
		return skerr.Wrapf(err, "failed to rename temporary file for WithWriteFile")
	}
	return nil
}

// WithReadFile opens the given file for reading and runs the given function.
func WithReadFile(file string, fn func(f io.Reader) error) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer Close(f)
	return fn(f)
}

// WriteFileIfAbsent writes contents to file unless file already exists.
// Returns true if the file was written.
func WriteFileIfAbsent(file string, contents []byte) (bool, error) {
	if _, err := os.Stat(file); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, skerr.Wrap(err)
	}
	if err := os.WriteFile(file, contents, 0644); err != nil {
		return false, skerr.Wrap(err)
	}
	return true, nil
}
