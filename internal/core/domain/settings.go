package domain

// StoredSettings lives for the whole application session: loaded once at
// startup, persisted verbatim on every change.
type StoredSettings struct {
	APIKey         string `json:"api_key,omitempty"`
	PreferredModel string `json:"preferred_model,omitempty"`
}

// ExtractionOptions carries per-call overrides for the model collaborator.
// Empty fields fall back to the client's configured defaults.
type ExtractionOptions struct {
	Model  string
	APIKey string
}
