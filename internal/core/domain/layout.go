package domain

const (
	// StateFileName is the default name of the persisted state record.
	StateFileName = ".depex.json"

	// ManifestFileName is the default name of the declarative manifest.
	ManifestFileName = "depex.yaml"

	// StateTempPattern is the pattern for temporary files written next to the state record.
	StateTempPattern = ".depex-*.tmp"

	// FingerprintBufferSize is the chunk size used when streaming file content into a digest.
	FingerprintBufferSize = 64 * 1024

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultStatePath returns the state file location used when none is configured.
func DefaultStatePath() string {
	return StateFileName
}
