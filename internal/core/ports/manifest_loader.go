package ports

import "go.trai.ch/depex/internal/core/domain"

// ManifestLoader defines the interface for loading bulk command declarations.
//
//go:generate mockgen -source=manifest_loader.go -destination=mocks/mock_manifest_loader.go -package=mocks
type ManifestLoader interface {
	// Load reads and validates the manifest at path.
	Load(path string) (*domain.Manifest, error)
}
