package lock

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/mitchellh/go-ps"
)

type fakeProcess struct {
	pid int
	exe string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.exe }

// withProcesses stubs the process table and the current pid for one test.
func withProcesses(t *testing.T, self int, table map[int]string) {
	t.Helper()
	origFind, origPid := findProcessFunc, getpidFunc
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := table[pid]
		if !ok {
			return nil, nil
		}
		return fakeProcess{pid: pid, exe: exe}, nil
	}
	getpidFunc = func() int { return self }
	t.Cleanup(func() {
		findProcessFunc, getpidFunc = origFind, origPid
	})
}

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	withProcesses(t, 100, map[int]string{100: "nutrilog"})

	l, err := Acquire(dir, "127.0.0.1:8787")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	holder, live, err := Inspect(dir)
	if err != nil || !live {
		t.Fatalf("Inspect = %+v, %v, %v", holder, live, err)
	}
	if holder.PID != 100 || holder.Addr != "127.0.0.1:8787" || holder.Token != l.Holder().Token {
		t.Errorf("holder = %+v, want %+v", holder, l.Holder())
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(Path(dir)); !os.IsNotExist(err) {
		t.Error("lockfile still present after Release")
	}
}

func TestAcquireHeldByLiveServer(t *testing.T) {
	dir := t.TempDir()
	withProcesses(t, 100, map[int]string{100: "nutrilog", 200: "nutrilog"})
	os.WriteFile(Path(dir), []byte("127.0.0.1:9000|200|abc\n"), 0600)

	_, err := Acquire(dir, "127.0.0.1:8787")
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("Acquire error = %v, want HeldError", err)
	}
	if held.Holder.PID != 200 || !strings.Contains(err.Error(), "pid 200") {
		t.Errorf("held = %+v", held.Holder)
	}

	if err := CheckWritable(dir); !errors.As(err, &held) {
		t.Errorf("CheckWritable = %v, want HeldError", err)
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
		table   map[int]string
	}{
		{"dead process", "127.0.0.1:9000|200|abc\n", map[int]string{}},
		{"pid reused by another program", "127.0.0.1:9000|200|abc\n", map[int]string{200: "bash"}},
		{"malformed", "garbage", map[int]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			withProcesses(t, 100, tt.table)
			os.WriteFile(Path(dir), []byte(tt.content), 0600)

			if err := CheckWritable(dir); err != nil {
				t.Errorf("CheckWritable = %v, want nil for stale lock", err)
			}
			l, err := Acquire(dir, "127.0.0.1:8787")
			if err != nil {
				t.Fatalf("Acquire failed: %v", err)
			}
			if l.Holder().PID != 100 {
				t.Errorf("holder pid = %d, want 100", l.Holder().PID)
			}
		})
	}
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	dir := t.TempDir()
	withProcesses(t, 100, map[int]string{100: "nutrilog"})

	l, err := Acquire(dir, "127.0.0.1:8787")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	os.WriteFile(Path(dir), []byte("127.0.0.1:9000|300|other-token\n"), 0600)

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(Path(dir)); err != nil {
		t.Error("Release removed a lockfile it does not own")
	}
}

func TestCheckWritableWithoutLock(t *testing.T) {
	if err := CheckWritable(t.TempDir()); err != nil {
		t.Errorf("CheckWritable = %v, want nil", err)
	}
}
