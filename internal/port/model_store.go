package port

import "errors"

var ErrArtifactNotFound = errors.New("model artifact not found")

type ModelStore interface {
	// Save persists a serialized model artifact under name, overwriting any
	// previous artifact.
	Save(name string, data []byte) error

	// Load reads the artifact stored under name. A missing artifact returns
	// ErrArtifactNotFound.
	Load(name string) ([]byte, error)

	// Location describes where artifacts live, for status reporting.
	Location() string
}
