// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// indexKey holds a JSON list of the keys stored under a service, since
// the OS keyrings cannot enumerate entries.
const indexKey = "__cairn_keys__"

// Keyring implements Store on the OS keyring: Keychain on macOS,
// secret-service on Linux and Credential Manager on Windows.
type Keyring struct{}

func NewKeyring() *Keyring {
	return &Keyring{}
}

var _ Store = (*Keyring)(nil)

func (k *Keyring) Set(service, key, value string) error {
	if err := checkEntry(service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return cairnerr.Wrapf(err, cairnerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	keys, err := k.Keys(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return k.saveIndex(service, append(keys, key))
}

func (k *Keyring) Get(service, key string) (string, error) {
	if err := checkEntry(service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", cairnerr.Errorf(cairnerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", cairnerr.Wrapf(err, cairnerr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return val, nil
}

func (k *Keyring) Delete(service, key string) error {
	if err := checkEntry(service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return cairnerr.Errorf(cairnerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return cairnerr.Wrapf(err, cairnerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	keys, err := k.Keys(service)
	if err != nil {
		return err
	}
	return k.saveIndex(service, slices.DeleteFunc(keys, func(s string) bool { return s == key }))
}

func (k *Keyring) Keys(service string) ([]string, error) {
	if service == "" {
		return nil, cairnerr.New(cairnerr.CodeSecretInvalidInput, "secret service must not be empty")
	}
	raw, err := keyring.Get(service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, cairnerr.Wrapf(err, cairnerr.CodeSecretListFailure, "loading key index for %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, cairnerr.Wrapf(err, cairnerr.CodeSecretListFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (k *Keyring) saveIndex(service string, keys []string) error {
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("removing empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return cairnerr.Wrapf(err, cairnerr.CodeSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return cairnerr.Wrapf(err, cairnerr.CodeSecretListFailure, "saving key index for %s", service)
	}
	return nil
}

func checkEntry(service, key string) error {
	switch {
	case service == "":
		return cairnerr.New(cairnerr.CodeSecretInvalidInput, "secret service must not be empty")
	case key == "":
		return cairnerr.New(cairnerr.CodeSecretInvalidInput, "secret key must not be empty")
	case key == indexKey:
		return cairnerr.Errorf(cairnerr.CodeSecretInvalidInput, "secret key %q is reserved", key)
	}
	return nil
}
