package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SanitizeFilename replaces characters that are unsafe in file names, so a
// source path can become part of a log file name.
func SanitizeFilename(s string) string {
	const banned = `/<>:"\|?*`

	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(banned, r) {
			return '_'
		}

		return r
	}, strings.TrimSpace(s))
}

// UniqueFilename returns path if nothing exists there, otherwise the first
// `name_N.ext` variant that is free.
func UniqueFilename(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	dir, file := filepath.Split(path)
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)

	for i := 0; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
