//go:build !unix

package main

import "os"

// Best-effort fallback: runtime-level stderr output such as panics is not
// captured the way Dup2 captures it on Unix.
func redirectStdIO(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	os.Stdout = f
	os.Stderr = f
	return nil
}
