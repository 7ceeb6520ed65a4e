// Package pid guards against concurrent sessions with a PID file.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/formctl/internal/errors"
)

const DefaultName = "formctl.pid"

// File is a PID file at a fixed path.
type File struct {
	path string
}

// New returns the PID file name in the system temporary directory.
func New(name string) *File {
	return At(filepath.Join(os.TempDir(), name))
}

// At returns the PID file at path.
func At(path string) *File {
	return &File{path: path}
}

// Path returns the location of the PID file.
func (f *File) Path() string {
	return f.path
}

// Write writes the current process ID to the PID file. It fails with
// ErrAlreadyRunning when the file names another live process.
func (f *File) Write() error {
	errFactory := errors.New()

	if data, err := os.ReadFile(f.path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() && alive(pid) {
			return errFactory.WithData(errors.ErrAlreadyRunning, pid)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
