// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package secrets

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

const uriScheme = "keyring://"

// IsURI reports whether value is a keyring:// reference.
func IsURI(value string) bool {
	return strings.HasPrefix(value, uriScheme)
}

// URI formats the reference config uses for service/key.
func URI(service, key string) string {
	return uriScheme + service + "/" + key
}

// ParseURI splits keyring://service/key. The key may itself contain
// slashes.
func ParseURI(uri string) (service, key string, err error) {
	if !IsURI(uri) {
		return "", "", cairnerr.Errorf(cairnerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, uriScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", cairnerr.Errorf(cairnerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring URI points at. Other values are
// returned unchanged.
func Resolve(s Store, value string) (string, error) {
	if !IsURI(value) {
		return value, nil
	}
	service, key, err := ParseURI(value)
	if err != nil {
		return "", err
	}
	secret, err := s.Get(service, key)
	if err != nil {
		return "", cairnerr.Wrapf(err, cairnerr.CodeSecretResolveFailure, "resolving %s", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring URI among v's settings with the
// secret it names. A value that cannot be resolved is left in place and
// logged, so the failure surfaces where the setting is used.
func ResolveViper(v *viper.Viper, s Store, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsURI(val) {
			continue
		}
		resolved, err := Resolve(s, val)
		if err != nil {
			logger.Warn("keyring reference not resolved", "config_key", key, "error", err)
			continue
		}
		v.Set(key, resolved)
	}
}
