/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package credentials

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/codeloom/provider"
	"github.com/chainguard-dev/clog"
)

// ErrNoCredentials reports that no provider in the priority list yielded a
// usable secret. Callers treat this as a normal outcome and surface a
// configuration message, not a failure.
var ErrNoCredentials = errors.New("no usable provider credentials")

// SecretStore retrieves the secret for a provider. An empty secret or an
// error both mean "try the next provider".
type SecretStore interface {
	Retrieve(ctx context.Context, id provider.ID) (string, error)
}

// StatusStore is an optional capability reporting whether a provider's
// credential record is marked valid. When absent every provider is probed.
type StatusStore interface {
	Valid(ctx context.Context, id provider.ID) bool
}

// Credential is a resolved (provider, secret) pair.
type Credential struct {
	Provider provider.ID
	Secret   string
}

// Resolver picks the first usable credential from an ordered priority list.
type Resolver struct {
	secrets SecretStore
	status  StatusStore
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStatusStore pre-filters providers whose credential record is not
// marked valid, skipping the secret probe for them entirely.
func WithStatusStore(status StatusStore) Option {
	return func(r *Resolver) {
		r.status = status
	}
}

// NewResolver returns a resolver backed by the given secret store.
func NewResolver(secrets SecretStore, opts ...Option) (*Resolver, error) {
	if secrets == nil {
		return nil, fmt.Errorf("secret store is required")
	}
	r := &Resolver{secrets: secrets}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve walks the priority list in order and returns the first provider
// that yields a non-empty secret. No provider later in the list is probed
// once a match is found. Exhaustion returns ErrNoCredentials.
func (r *Resolver) Resolve(ctx context.Context, priority []provider.ID) (Credential, error) {
	log := clog.FromContext(ctx)

	for _, id := range priority {
		if r.status != nil && !r.status.Valid(ctx, id) {
			continue
		}
		secret, err := r.secrets.Retrieve(ctx, id)
		if err != nil {
			log.With("provider", id).Debug("secret retrieval failed, trying next provider", "error", err)
			continue
		}
		if secret == "" {
			continue
		}
		return Credential{Provider: id, Secret: secret}, nil
	}
	return Credential{}, ErrNoCredentials
}

// ResolveAll returns every provider in the priority list with a usable
// secret, preserving priority order. An empty result is not an error here;
// callers needing at least one credential use Resolve.
func (r *Resolver) ResolveAll(ctx context.Context, priority []provider.ID) []Credential {
	log := clog.FromContext(ctx)

	var out []Credential
	for _, id := range priority {
		if r.status != nil && !r.status.Valid(ctx, id) {
			continue
		}
		secret, err := r.secrets.Retrieve(ctx, id)
		if err != nil {
			log.With("provider", id).Debug("secret retrieval failed, skipping provider", "error", err)
			continue
		}
		if secret == "" {
			continue
		}
		out = append(out, Credential{Provider: id, Secret: secret})
	}
	return out
}
