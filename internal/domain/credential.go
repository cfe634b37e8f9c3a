package domain

import "context"

// CredentialSource yields an API credential at the moment it is needed.
// Implementations must not cache: a rotated key takes effect on the next call.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// CredentialFunc adapts a plain function to CredentialSource.
type CredentialFunc func(ctx context.Context) (string, error)

// Credential implements CredentialSource.
func (f CredentialFunc) Credential(ctx context.Context) (string, error) { return f(ctx) }

// StaticCredential returns a source that always yields key. Empty key
// yields ErrMissingCredential.
func StaticCredential(key string) CredentialSource {
	return CredentialFunc(func(context.Context) (string, error) {
		if key == "" {
			return "", ErrMissingCredential
		}
		return key, nil
	})
}
