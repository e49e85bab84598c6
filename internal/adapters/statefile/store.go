// Package statefile persists declarations and fingerprints as a single JSON record.
package statefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StateStore = (*Store)(nil)

// Record field names. All four must be present in a valid record.
const (
	FieldCommands = "commands"
	FieldReads    = "reads"
	FieldWrites   = "writes"
	FieldHashes   = "hashes"
)

var requiredFields = []string{FieldCommands, FieldReads, FieldWrites, FieldHashes}

// record is the on-disk layout. Maps marshal with sorted keys, so equal
// states encode to identical bytes.
type record struct {
	Commands map[string][]string `json:"commands"`
	Reads    map[string][]string `json:"reads"`
	Writes   map[string][]string `json:"writes"`
	Hashes   map[string]string   `json:"hashes"`
}

// Store implements ports.StateStore on the local file system.
type Store struct {
	logger ports.Logger
}

// NewStore creates a new Store. Warnings about migrated records go to logger.
func NewStore(logger ports.Logger) *Store {
	return &Store{logger: logger}
}

// Load reads, decodes and validates the record at path.
func (s *Store) Load(ctx context.Context, path string) (*domain.State, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is the configured state file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateNotFound, err), "failed to load state"), "path", path)
		}
		return nil, zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateReadFailed, err), "failed to load state"), "path", path)
	}

	st, migrated, err := Decode(data)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to load state"), "path", path)
	}

	if len(migrated) > 0 {
		for _, name := range migrated {
			s.logger.Warn(fmt.Sprintf("command %q was stored as a shell string, converted to [sh -c ...]", name))
		}
		if err := s.Save(ctx, path, st); err != nil {
			return nil, err
		}
	}

	return st, nil
}

// Save atomically replaces the record at path with st.
func (s *Store) Save(_ context.Context, path string, st *domain.State) error {
	data, err := Encode(st)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateWriteFailed, err), "failed to encode state"), "path", path)
	}
	if err := writeAtomic(path, data); err != nil {
		return zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateWriteFailed, err), "failed to save state"), "path", path)
	}
	return nil
}

// Create writes an empty record at path. An existing record is only
// replaced when force is set.
func (s *Store) Create(ctx context.Context, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateExists), "refusing to initialize"), "path", path)
		}
	}
	return s.Save(ctx, path, domain.NewState())
}

// Encode renders st in the persisted format.
func Encode(st *domain.State) ([]byte, error) {
	rec := record{
		Commands: make(map[string][]string),
		Reads:    make(map[string][]string),
		Writes:   make(map[string][]string),
		Hashes:   st.Fingerprints(),
	}
	for _, cmd := range st.Commands() {
		rec.Commands[cmd.Name] = cmd.Argv
		if cmd.Reads != nil {
			rec.Reads[cmd.Name] = cmd.Reads
		}
		if cmd.Writes != nil {
			rec.Writes[cmd.Name] = cmd.Writes
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a persisted record. It also returns the names
// of commands that were stored as a single shell string and have been
// converted to an explicit sh -c invocation.
func Decode(data []byte) (*domain.State, []string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, domain.Classify(domain.ErrStorage, domain.ErrStateMalformed, err)
	}
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			return nil, nil, zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateMissingField), "incomplete record"), "field", f)
		}
	}

	var (
		commands map[string]json.RawMessage
		reads    map[string][]string
		writes   map[string][]string
		hashes   map[string]string
	)
	for _, target := range []struct {
		field string
		dst   any
	}{
		{FieldCommands, &commands},
		{FieldReads, &reads},
		{FieldWrites, &writes},
		{FieldHashes, &hashes},
	} {
		if err := json.Unmarshal(fields[target.field], target.dst); err != nil {
			return nil, nil, zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateMalformed, err), "invalid field"), "field", target.field)
		}
	}

	st := domain.NewState()
	var migrated []string

	for _, name := range slices.Sorted(maps.Keys(commands)) {
		argv, legacy, err := decodeInvocation(commands[name])
		if err != nil {
			return nil, nil, zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateMalformed, err), "invalid command"), "command", name)
		}
		if legacy {
			migrated = append(migrated, name)
		}
		if err := st.AddCommand(name, argv); err != nil {
			return nil, nil, domain.Classify(domain.ErrStorage, domain.ErrStateMalformed, err)
		}
	}

	for _, edges := range []struct {
		field string
		set   map[string][]string
		add   func(string, ...string) error
	}{
		{FieldReads, reads, st.AddReads},
		{FieldWrites, writes, st.AddWrites},
	} {
		for _, name := range slices.Sorted(maps.Keys(edges.set)) {
			if err := edges.add(name, edges.set[name]...); err != nil {
				return nil, nil, zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateMalformed, err), "invalid edge declaration"), "field", edges.field)
			}
		}
	}

	for _, path := range slices.Sorted(maps.Keys(hashes)) {
		cleaned, err := domain.CleanPath(path)
		if err != nil {
			return nil, nil, zerr.With(zerr.Wrap(domain.Classify(domain.ErrStorage, domain.ErrStateMalformed, err), "invalid fingerprint"), "field", FieldHashes)
		}
		if _, canonical := hashes[cleaned]; canonical && cleaned != path {
			continue
		}
		st.SetFingerprint(cleaned, hashes[path])
	}

	return st, migrated, nil
}

// decodeInvocation accepts an argument vector or a legacy shell string.
func decodeInvocation(raw json.RawMessage) ([]string, bool, error) {
	var argv []string
	if err := json.Unmarshal(raw, &argv); err == nil {
		return argv, false, nil
	}
	var line string
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, false, err
	}
	return []string{"sh", "-c", line}, true, nil
}

// writeAtomic writes data to a temporary file next to path and renames it into
// place, so readers observe either the old or the new record.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, domain.StateTempPattern)
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
