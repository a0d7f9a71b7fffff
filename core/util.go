package core

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanString trims leading and trailing whitespace, composes `s` to NFC and optionally lowers it.
// Vietnamese input pasted from some keyboards arrives decomposed ("e" + U+0302 + U+0301 for "ế").
func CleanString(s string, lower ...bool) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests,
// so we walk up until the module root is found and fall back to the current directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
