package config

import (
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the manifest schema version understood by the loader.
const SupportedVersion = "1"

// Manifest represents the structure of the depex.yaml file.
type Manifest struct {
	Version  string                 `yaml:"version"`
	Commands map[string]*CommandDTO `yaml:"commands"`
}

// CommandDTO represents a command declaration in the manifest.
type CommandDTO struct {
	Cmd    Invocation `yaml:"cmd"`
	Reads  []string   `yaml:"reads"`
	Writes []string   `yaml:"writes"`
}

// Invocation is an argument vector. A plain string is accepted as shorthand
// for running it through sh -c.
type Invocation []string

var errInvalidInvocation = zerr.New("cmd must be a string or a list of strings")

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *Invocation) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var line string
		if err := node.Decode(&line); err != nil {
			return err
		}
		*i = Invocation{"sh", "-c", line}
		return nil
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return err
		}
		*i = argv
		return nil
	default:
		return zerr.With(errInvalidInvocation, "line", node.Line)
	}
}
