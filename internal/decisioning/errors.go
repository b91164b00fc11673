package decisioning

import "errors"

var (
	// ErrArtifactNotAvailable means no artifact has ever been loaded; the
	// engine is not ready.
	ErrArtifactNotAvailable = errors.New("artifact not available")

	// ErrArtifactVersionUnsupported means the loaded artifact's major
	// version does not match the supported major version.
	ErrArtifactVersionUnsupported = errors.New("artifact version unsupported")
)
