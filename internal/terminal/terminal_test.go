package terminal

import (
	"os"
	"sync"
	"testing"
)

// pipePair returns an os.File pair that is not a terminal, which is
// what stdin looks like under go test.
func pipePair(t *testing.T) (r, w *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

// TestOpen_NotATerminal verifies that a pipe is passed through without
// touching terminal attributes.
func TestOpen_NotATerminal(t *testing.T) {
	r, w := pipePair(t)

	term, err := Open(r, w)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if term.IsRaw() {
		t.Error("a pipe should never be put in raw mode")
	}
	if err := term.Restore(); err != nil {
		t.Errorf("Restore: %v", err)
	}
}

// TestStreams verifies Input reads from in and Output writes to out.
func TestStreams(t *testing.T) {
	inR, inW := pipePair(t)
	outR, outW := pipePair(t)

	term, err := Open(inR, outW)
	if err != nil {
		t.Fatal(err)
	}
	defer term.Restore() //nolint:errcheck

	if _, err := inW.Write([]byte("typed\n")); err != nil {
		t.Fatal(err)
	}
	got, err := term.Input().ReadBytes(1024, true)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if string(got) != "typed\n" {
		t.Errorf("input = %q", got)
	}

	if err := term.Output().Write([]byte("shown")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 16)
	n, err := outR.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "shown" {
		t.Errorf("output = %q", buf[:n])
	}
}

// TestStreamClose_KeepsFiles verifies closing the adapter streams does
// not close the process's file descriptors.
func TestStreamClose_KeepsFiles(t *testing.T) {
	r, w := pipePair(t)

	term, err := Open(r, w)
	if err != nil {
		t.Fatal(err)
	}
	term.Input().Close()  //nolint:errcheck
	term.Output().Close() //nolint:errcheck

	if _, err := w.Write([]byte("still open")); err != nil {
		t.Errorf("out file was closed: %v", err)
	}
}

// TestRestore_Concurrent verifies Restore is safe to race.
func TestRestore_Concurrent(t *testing.T) {
	r, w := pipePair(t)

	term, err := Open(r, w)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := term.Restore(); err != nil {
				t.Errorf("Restore: %v", err)
			}
		}()
	}
	wg.Wait()
}
