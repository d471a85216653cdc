package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// WriteWorkerScript writes an executable shell script that emits the given
// progress lines followed by the result line on stdout, then exits 0. It
// returns the script path for use as a worker binary.
func WriteWorkerScript(t testing.TB, dir, name string, progressLines []string, result string) string {
	t.Helper()

	script := "#!/bin/sh\n"
	for _, line := range progressLines {
		script += "echo '" + line + "'\n"
	}
	script += "echo '" + result + "'\n"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write worker script %s: %v", name, err)
	}
	return path
}

// WriteSleepingWorkerScript writes an executable shell script that sleeps for
// the given number of seconds before exiting, for cancellation tests.
func WriteSleepingWorkerScript(t testing.TB, dir, name string, seconds int) string {
	t.Helper()

	script := "#!/bin/sh\nsleep " + strconv.Itoa(seconds) + "\necho '{}'\n"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write worker script %s: %v", name, err)
	}
	return path
}

// WriteFailingWorkerScript writes an executable shell script that prints
// message to stderr and exits with the given code.
func WriteFailingWorkerScript(t testing.TB, dir, name, message string, code int) string {
	t.Helper()

	script := "#!/bin/sh\necho '" + message + "' >&2\nexit " + strconv.Itoa(code) + "\n"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write worker script %s: %v", name, err)
	}
	return path
}
