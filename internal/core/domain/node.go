package domain

// NodeKind distinguishes the two variants of a graph node.
type NodeKind uint8

const (
	// KindFile is a node standing for a file path.
	KindFile NodeKind = iota
	// KindCommand is a node standing for a declared command.
	KindCommand
)

// String returns the kind label used in diagnostics.
func (k NodeKind) String() string {
	if k == KindCommand {
		return "command"
	}
	return "file"
}

// Node is a vertex of the dependency graph. A file and a command that share
// the same identifier are distinct nodes.
type Node struct {
	Kind NodeKind
	ID   InternedString
}

// FileNode returns the node for path.
func FileNode(path string) Node {
	return Node{Kind: KindFile, ID: NewInternedString(path)}
}

// CommandNode returns the node for the command called name.
func CommandNode(name string) Node {
	return Node{Kind: KindCommand, ID: NewInternedString(name)}
}

// IsCommand reports whether n is a command node.
func (n Node) IsCommand() bool {
	return n.Kind == KindCommand
}

// String renders n as kind:id.
func (n Node) String() string {
	return n.Kind.String() + ":" + n.ID.String()
}

// Compare orders nodes by identifier, then files before commands.
// It is the tie-break used wherever the graph needs a deterministic order.
func (n Node) Compare(other Node) int {
	if c := n.ID.Compare(other.ID); c != 0 {
		return c
	}
	switch {
	case n.Kind < other.Kind:
		return -1
	case n.Kind > other.Kind:
		return 1
	default:
		return 0
	}
}
