package ports

// Fingerprinter defines the interface for computing content fingerprints.
//
//go:generate mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks
type Fingerprinter interface {
	// Fingerprint returns the hex digest of the file's content.
	// Equal content yields equal digests regardless of path or timestamps.
	Fingerprint(path string) (string, error)
}
