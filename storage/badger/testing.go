package badger

import "github.com/poiesic/coursefinder/storage"

// NewMemoryRepositories creates in-memory repositories for testing.
// The caller owns the returned backend and must close it.
func NewMemoryRepositories() (storage.CatalogRepository, storage.AnnotationRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	catalog, err := NewCatalogRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	annotations := NewAnnotationRepository(backend)

	return catalog, annotations, backend, nil
}
