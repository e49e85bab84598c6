package domain

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"go.trai.ch/zerr"
)

// Command is a declared unit of work: an argument vector plus the files it
// reads and writes. Reads and Writes are kept sorted and free of duplicates.
type Command struct {
	Name   string
	Argv   []string
	Reads  []string
	Writes []string
}

// Clone returns a deep copy of c.
func (c Command) Clone() Command {
	return Command{
		Name:   c.Name,
		Argv:   slices.Clone(c.Argv),
		Reads:  slices.Clone(c.Reads),
		Writes: slices.Clone(c.Writes),
	}
}

// ValidateCommandName rejects names that cannot be used on the command line
// or as node identities.
func ValidateCommandName(name string) error {
	if name == "" || strings.ContainsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == filepath.Separator
	}) {
		return zerr.With(zerr.Wrap(ErrInvalidCommandName, "command name must be non-empty without whitespace or separators"), "command", name)
	}
	return nil
}

// CleanPath canonicalises a declared path.
func CleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", zerr.With(zerr.Wrap(ErrInvalidPath, "declared path is empty"), "path", path)
	}
	return filepath.Clean(path), nil
}

// mergePaths adds paths to the sorted set dst and reports whether it grew.
func mergePaths(dst []string, paths []string) ([]string, bool, error) {
	changed := false
	for _, p := range paths {
		cleaned, err := CleanPath(p)
		if err != nil {
			return dst, changed, err
		}
		i, found := slices.BinarySearch(dst, cleaned)
		if found {
			continue
		}
		dst = slices.Insert(dst, i, cleaned)
		changed = true
	}
	return dst, changed, nil
}
