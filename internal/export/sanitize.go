package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

var ErrInvalidOutputDir = errors.New("invalid output_dir")

// SanitizeName keeps names safe for EDL comment lines and file names.
func SanitizeName(s string, maxLen int) string {
	cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case strings.ContainsRune(" -_.,()", r):
			return r
		}
		return '_'
	}, s))

	if runes := []rune(cleaned); maxLen > 0 && len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}

// FileName is the EDL file name for a project.
func FileName(project string) string {
	name := SanitizeName(project, maxClipNameLen)
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "timeline"
	}
	return name + ".edl"
}

func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: required", ErrInvalidOutputDir)
	}
	if slices.Contains(strings.Split(filepath.ToSlash(dir), "/"), "..") {
		return fmt.Errorf("%w: path traversal", ErrInvalidOutputDir)
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: must be a clean path", ErrInvalidOutputDir)
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: does not exist", ErrInvalidOutputDir)
	case err != nil:
		return fmt.Errorf("%w: %v", ErrInvalidOutputDir, err)
	case !info.IsDir():
		return fmt.Errorf("%w: not a directory", ErrInvalidOutputDir)
	}
	return nil
}
