package artifact

import "encoding/json"

// Lifecycle event names delivered to the configured Emitter.
const (
	EventDownloadSucceeded = "artifactDownloadSucceeded"
	EventDownloadFailed    = "artifactDownloadFailed"
)

// Emitter receives artifact lifecycle events. A nil Emitter is tolerated.
type Emitter func(event string, payload any)

type DownloadSucceeded struct {
	ArtifactLocation string          `json:"artifactLocation"`
	ArtifactPayload  json.RawMessage `json:"artifactPayload"`
}

type DownloadFailed struct {
	ArtifactLocation string `json:"artifactLocation"`
	Error            error  `json:"error"`
}
