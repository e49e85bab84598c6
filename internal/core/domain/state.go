package domain

import (
	"maps"
	"slices"

	"go.trai.ch/zerr"
)

// State is the in-memory form of the persisted record: declared commands with
// their read and write sets, and the last recorded fingerprint per path.
//
// Every mutation that changes the content bumps Revision, which lets the state
// handle skip flushing an untouched record.
type State struct {
	commands map[string]*Command
	hashes   map[string]string
	revision uint64
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		commands: make(map[string]*Command),
		hashes:   make(map[string]string),
	}
}

// Revision returns the mutation counter.
func (s *State) Revision() uint64 {
	return s.revision
}

// AddCommand declares name with the given argument vector. Re-declaring an
// existing command replaces its invocation and keeps its read and write sets.
func (s *State) AddCommand(name string, argv []string) error {
	if err := ValidateCommandName(name); err != nil {
		return err
	}
	if len(argv) == 0 || argv[0] == "" {
		return zerr.With(zerr.Wrap(ErrEmptyInvocation, "an argument vector is required"), "command", name)
	}

	if existing, ok := s.commands[name]; ok {
		if slices.Equal(existing.Argv, argv) {
			return nil
		}
		existing.Argv = slices.Clone(argv)
		s.revision++
		return nil
	}

	s.commands[name] = &Command{Name: name, Argv: slices.Clone(argv)}
	s.revision++
	return nil
}

// AddReads adds paths to the read set of the named command. The set counts
// as declared afterwards even when paths is empty.
func (s *State) AddReads(name string, paths ...string) error {
	cmd, err := s.lookup(name)
	if err != nil {
		return err
	}
	merged, changed, err := mergePaths(cmd.Reads, paths)
	if err != nil {
		return zerr.With(err, "command", name)
	}
	if merged == nil {
		merged = []string{}
	}
	cmd.Reads = merged
	if changed {
		s.revision++
	}
	return nil
}

// AddWrites adds paths to the write set of the named command.
func (s *State) AddWrites(name string, paths ...string) error {
	cmd, err := s.lookup(name)
	if err != nil {
		return err
	}
	merged, changed, err := mergePaths(cmd.Writes, paths)
	if err != nil {
		return zerr.With(err, "command", name)
	}
	if merged == nil {
		merged = []string{}
	}
	cmd.Writes = merged
	if changed {
		s.revision++
	}
	return nil
}

func (s *State) lookup(name string) (*Command, error) {
	cmd, ok := s.commands[name]
	if !ok {
		return nil, zerr.With(zerr.Wrap(ErrCommandNotFound, "command is not declared"), "command", name)
	}
	return cmd, nil
}

// Command returns a copy of the named command.
func (s *State) Command(name string) (Command, bool) {
	cmd, ok := s.commands[name]
	if !ok {
		return Command{}, false
	}
	return cmd.Clone(), true
}

// HasCommand reports whether name is declared.
func (s *State) HasCommand(name string) bool {
	_, ok := s.commands[name]
	return ok
}

// Commands returns copies of all declared commands sorted by name.
func (s *State) Commands() []Command {
	names := slices.Sorted(maps.Keys(s.commands))
	out := make([]Command, 0, len(names))
	for _, name := range names {
		out = append(out, s.commands[name].Clone())
	}
	return out
}

// ReadPaths returns every path read by at least one command, sorted and distinct.
func (s *State) ReadPaths() []string {
	seen := make(map[string]struct{})
	for _, cmd := range s.commands {
		for _, p := range cmd.Reads {
			seen[p] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Readers returns the sorted names of the commands that read path.
func (s *State) Readers(path string) []string {
	var names []string
	for name, cmd := range s.commands {
		if _, found := slices.BinarySearch(cmd.Reads, path); found {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Writers returns the sorted names of the commands that write path.
func (s *State) Writers(path string) []string {
	var names []string
	for name, cmd := range s.commands {
		if _, found := slices.BinarySearch(cmd.Writes, path); found {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Fingerprint returns the recorded digest of path.
func (s *State) Fingerprint(path string) (string, bool) {
	digest, ok := s.hashes[path]
	return digest, ok
}

// SetFingerprint records digest for path.
func (s *State) SetFingerprint(path, digest string) {
	if current, ok := s.hashes[path]; ok && current == digest {
		return
	}
	s.hashes[path] = digest
	s.revision++
}

// Fingerprints returns a copy of every recorded digest.
func (s *State) Fingerprints() map[string]string {
	return maps.Clone(s.hashes)
}
