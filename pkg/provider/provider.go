package provider

import "context"

// Provider defines the interface for LLM provider families.
type Provider interface {
	// Generate sends a normalized request to the backing model and returns
	// a normalized response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider family identifier.
	Name() string
}

// LocalProvider is implemented by providers backed by a local inference
// server. Healthy reports whether the server is reachable right now.
type LocalProvider interface {
	Provider
	Healthy(ctx context.Context) bool
}

// Known provider family names. Adding a family means adding one adapter
// and registering it under its name; nothing else switches on these.
const (
	FamilyOpenAI    = "openai"
	FamilyAnthropic = "anthropic"
	FamilyGoogle    = "google"
	FamilyOllama    = "ollama"
	FamilyMock      = "mock"
)

// KeyFunc supplies a credential at call time, so rotated keys take effect
// on the next request without a restart.
type KeyFunc func() string

// StaticKey returns a KeyFunc that always yields the given key.
func StaticKey(key string) KeyFunc {
	return func() string { return key }
}
