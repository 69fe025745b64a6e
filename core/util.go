package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ContainsFold reports whether `substr` is within any of `fields`, ignoring case.
// An empty substr matches everything.
func ContainsFold(substr string, fields ...string) bool {
	substr = CleanString(substr, true /* lower */)
	if substr == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), substr) {
			return true
		}
	}
	return false
}

// StringIn reports whether `s` is one of `values`. Empty values match everything.
func StringIn(s string, values []string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Getwd finds the project root (the first parent directory holding a go.mod).
// go test changes the working directory to the package being tested.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

// InScope reports whether `id` is one of `ids`.
// A nil `ids` does not restrict anything, while an empty non-nil `ids` matches nothing.
func InScope(id string, ids []string) bool {
	if ids == nil {
		return true
	}
	for _, v := range ids {
		if id == v {
			return true
		}
	}
	return false
}
