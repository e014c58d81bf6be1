// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package secrets_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/secrets"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		service string
		key     string
		wantErr bool
	}{
		{uri: "keyring://cairn/database.password", service: "cairn", key: "database.password"},
		{uri: "keyring://cairn/nested/key", service: "cairn", key: "nested/key"},
		{uri: "keyring://cairn", wantErr: true},
		{uri: "keyring:///key", wantErr: true},
		{uri: "keyring://cairn/", wantErr: true},
		{uri: "plain", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			service, key, err := secrets.ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, cairnerr.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.service, service)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestURI_RoundTrip(t *testing.T) {
	uri := secrets.URI(secrets.DefaultService, "database.password")
	assert.Equal(t, "keyring://cairn/database.password", uri)
	assert.True(t, secrets.IsURI(uri))

	service, key, err := secrets.ParseURI(uri)
	require.NoError(t, err)
	assert.Equal(t, secrets.DefaultService, service)
	assert.Equal(t, "database.password", key)
}

func TestResolve(t *testing.T) {
	k := secrets.NewKeyring()
	require.NoError(t, k.Set("test-resolve", "pw", "s3cret"))

	got, err := secrets.Resolve(k, "keyring://test-resolve/pw")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	got, err = secrets.Resolve(k, "literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", got)

	_, err = secrets.Resolve(k, "keyring://test-resolve/missing")
	require.Error(t, err)
	assert.True(t, cairnerr.IsNotFound(err))
}

func TestResolveViper(t *testing.T) {
	k := secrets.NewKeyring()
	require.NoError(t, k.Set("test-viper", "database.password", "from-keyring"))

	v := viper.New()
	v.Set("database.password", "keyring://test-viper/database.password")
	v.Set("database.user", "cairn")
	v.Set("database.host", "keyring://test-viper/absent")

	secrets.ResolveViper(v, k, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, "from-keyring", v.GetString("database.password"))
	assert.Equal(t, "cairn", v.GetString("database.user"))
	assert.Equal(t, "keyring://test-viper/absent", v.GetString("database.host"), "unresolved references stay in place")
}
