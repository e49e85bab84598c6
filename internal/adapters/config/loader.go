// Package config loads bulk command declarations from a YAML manifest.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ManifestLoader = (*Loader)(nil)

// Loader implements ports.ManifestLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads the manifest at path and validates every declaration.
// Commands are returned sorted by name.
func (l *Loader) Load(path string) (*domain.Manifest, error) {
	var dto Manifest
	if err := readAndUnmarshalYAML(path, &dto); err != nil {
		return nil, zerr.With(err, "path", path)
	}

	switch dto.Version {
	case SupportedVersion:
	case "":
		l.Logger.Warn(fmt.Sprintf("%s does not declare a version, assuming %q", path, SupportedVersion))
	default:
		l.Logger.Warn(fmt.Sprintf("%s declares unknown version %q, reading it as %q", path, dto.Version, SupportedVersion))
	}

	manifest := &domain.Manifest{Commands: make([]domain.Command, 0, len(dto.Commands))}
	for _, name := range slices.Sorted(maps.Keys(dto.Commands)) {
		cmd := domain.Command{Name: name}
		if c := dto.Commands[name]; c != nil {
			cmd.Argv = c.Cmd
			cmd.Reads = c.Reads
			cmd.Writes = c.Writes
		}
		manifest.Commands = append(manifest.Commands, cmd)
	}

	// Applying to a scratch state runs the same validation as the CLI.
	if err := manifest.Apply(domain.NewState()); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid manifest"), "path", path)
	}

	return manifest, nil
}

func readAndUnmarshalYAML[T any](path string, target *T) error {
	data, err := os.ReadFile(path) //nolint:gosec // Path is chosen by the user
	if err != nil {
		return zerr.Wrap(domain.Classify(domain.ErrConfigReadFailed, err), "failed to load manifest")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return zerr.Wrap(domain.Classify(domain.ErrConfigParseFailed, err), "failed to load manifest")
	}

	return nil
}
