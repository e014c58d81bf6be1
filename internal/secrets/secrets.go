// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

// Package secrets keeps credentials such as the database password out of
// config files. Values live in the OS keyring and config refers to them
// with keyring://service/key URIs.
package secrets

// DefaultService is the keyring service cairn stores its own secrets under.
const DefaultService = "cairn"

// Store provides secret storage keyed by service and key.
type Store interface {
	// Set saves value under service/key, replacing any previous value.
	Set(service, key, value string) error

	// Get returns the value for service/key. A missing entry fails with
	// CodeSecretNotFound.
	Get(service, key string) (string, error)

	// Delete removes service/key. A missing entry fails with
	// CodeSecretNotFound.
	Delete(service, key string) error

	// Keys lists the key names stored under service, in insertion order.
	Keys(service string) ([]string, error)
}
