package services

import "fmt"

// Credential names reported by MissingCredentialError.
const (
	CredentialPersona = "SOUL_REPO_TOKEN"
	CredentialModel   = "GEMINI_API_KEY"
)

// MissingCredentialError means a required secret is not configured. It is
// returned before any network call is attempted.
type MissingCredentialError struct{ Credential string }

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing credential %s", e.Credential)
}

// PersonaUnavailableError covers every way the persona fetch can fail once a
// credential is present.
type PersonaUnavailableError struct{ Err error }

func (e *PersonaUnavailableError) Error() string {
	return fmt.Sprintf("persona source unreachable: %v", e.Err)
}

func (e *PersonaUnavailableError) Unwrap() error { return e.Err }

// ModelError covers every failure reported by the generative model.
type ModelError struct{ Err error }

func (e *ModelError) Error() string {
	return fmt.Sprintf("model generation failed: %v", e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
