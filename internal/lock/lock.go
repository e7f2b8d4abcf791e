// Package lock implements the writer lockfile that lets a long-running
// "nutrilog serve" own the database while other invocations stay read-only.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrMalformed is returned for a lockfile that cannot be parsed.
var ErrMalformed = errors.New("writer lockfile is malformed")

// Holder describes the process that owns the writer lock.
// The lockfile holds "addr|pid|token".
type Holder struct {
	Addr  string
	PID   int
	Token string
}

// HeldError is returned when another live nutrilog process holds the lock.
type HeldError struct {
	Holder Holder
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("database is in use by 'nutrilog serve' (pid %d, http://%s); stop it or use its HTTP API", e.Holder.PID, e.Holder.Addr)
}

// Lock is a held writer lock.
type Lock struct {
	path   string
	holder Holder
}

// Path returns the lockfile location inside the data directory.
func Path(dir string) string {
	return filepath.Join(dir, constants.WriterLockfileName)
}

// Acquire takes the writer lock in dir on behalf of the server listening on addr.
// A lockfile left behind by a dead process is replaced.
func Acquire(dir, addr string) (*Lock, error) {
	path := Path(dir)

	holder, live, err := Inspect(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case errors.Is(err, ErrMalformed):
		if err := removeLockfile(path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case live && holder.PID != getpidFunc():
		return nil, &HeldError{Holder: holder}
	default:
		if err := removeLockfile(path); err != nil {
			return nil, err
		}
		logger.Info("Replaced stale writer lock", "pid", holder.PID)
	}

	l := &Lock{
		path:   path,
		holder: Holder{Addr: addr, PID: getpidFunc(), Token: uuid.NewString()},
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another process acquired the writer lock first")
		}
		return nil, fmt.Errorf("failed to create lockfile: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s|%d|%s\n", l.holder.Addr, l.holder.PID, l.holder.Token)
	if _, err := f.WriteString(line); err != nil {
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	return l, nil
}

// Holder returns the identity written to the lockfile.
func (l *Lock) Holder() Holder {
	return l.holder
}

// Release removes the lockfile if it still carries this lock's token.
func (l *Lock) Release() error {
	holder, err := read(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if holder.Token != l.holder.Token {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}

// Inspect reads the lockfile in dir and reports whether its process is a
// running nutrilog. A missing lockfile reports os.ErrNotExist.
func Inspect(dir string) (Holder, bool, error) {
	holder, err := read(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return Holder{}, false, os.ErrNotExist
		}
		return Holder{}, false, err
	}

	process, err := findProcessFunc(holder.PID)
	if err != nil || process == nil {
		return holder, false, nil
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return holder, false, nil
	}
	return holder, true, nil
}

// CheckWritable returns a HeldError when another live process owns dir.
func CheckWritable(dir string) error {
	holder, live, err := Inspect(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, ErrMalformed) {
			return nil
		}
		return err
	}
	if live && holder.PID != getpidFunc() {
		return &HeldError{Holder: holder}
	}
	return nil
}

func removeLockfile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale lockfile: %w", err)
	}
	return nil
}

func read(path string) (Holder, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, err
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return Holder{}, ErrMalformed
	}
	pid, err := strconv.Atoi(parts[1])
	if err != nil || pid <= 0 {
		return Holder{}, fmt.Errorf("%w: invalid process ID", ErrMalformed)
	}
	if strings.TrimSpace(parts[2]) == "" {
		return Holder{}, fmt.Errorf("%w: empty token", ErrMalformed)
	}
	return Holder{Addr: parts[0], PID: pid, Token: parts[2]}, nil
}
