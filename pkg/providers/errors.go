package providers

import "fmt"

// ProviderError is any upstream LLM/search/stats failure. It is propagated
// to the layer that invoked the provider directly and never retried here.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Status: status, Err: err}
}
