// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/secrets"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// memSecrets is an in-memory secrets.Store.
type memSecrets struct {
	keys []string
	data map[string]string
}

func (m *memSecrets) Set(_, key, value string) error {
	if _, ok := m.data[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.data[key] = value
	return nil
}

func (m *memSecrets) Get(_, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", cairnerr.Errorf(cairnerr.CodeSecretNotFound, "secret %s not found", key)
	}
	return v, nil
}

func (m *memSecrets) Delete(_, key string) error {
	if _, ok := m.data[key]; !ok {
		return cairnerr.Errorf(cairnerr.CodeSecretNotFound, "secret %s not found", key)
	}
	delete(m.data, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
	return nil
}

func (m *memSecrets) Keys(string) ([]string, error) {
	return slices.Clone(m.keys), nil
}

// useMemSecrets swaps the keyring for an in-memory store for one test.
func useMemSecrets(t *testing.T) *memSecrets {
	t.Helper()
	m := &memSecrets{data: map[string]string{}}
	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return m }
	t.Cleanup(func() { secretStoreFactory = old })
	return m
}

func TestSecretSet_FromFlag(t *testing.T) {
	m := useMemSecrets(t)

	out, err := execute(t, "secret", "set", "database.password", "--value", "hunter2")
	require.NoError(t, err)
	assert.Contains(t, out, "keyring://cairn/database.password")
	assert.Equal(t, "hunter2", m.data["database.password"])
}

func TestSecretSet_FromStdin(t *testing.T) {
	m := useMemSecrets(t)

	t.Setenv("HOME", t.TempDir())
	resetViper(t)

	root := NewRootCmd()
	root.SetIn(strings.NewReader("from-stdin\n"))
	root.SetOut(new(strings.Builder))
	root.SetArgs([]string{"secret", "set", "token"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "from-stdin", m.data["token"])
}

func TestSecretSet_RejectsEmptyValue(t *testing.T) {
	useMemSecrets(t)

	_, err := execute(t, "secret", "set", "token", "--value", "")
	require.Error(t, err)
	assert.Equal(t, 2, cairnerr.ExitCode(err))
}

func TestSecretList(t *testing.T) {
	useMemSecrets(t)

	out, err := execute(t, "secret", "list")
	require.NoError(t, err)
	assert.Equal(t, "No secrets found\n", out)

	_, err = execute(t, "secret", "set", "b", "--value", "2")
	require.NoError(t, err)
	_, err = execute(t, "secret", "set", "a", "--value", "1")
	require.NoError(t, err)

	out, err = execute(t, "secret", "list")
	require.NoError(t, err)
	assert.Equal(t, "b\na\n", out)

	out, err = execute(t, "secret", "list", "-o", "json")
	require.NoError(t, err)
	var keys []string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []string{"b", "a"}, keys)
}

func TestSecretDelete(t *testing.T) {
	m := useMemSecrets(t)
	require.NoError(t, m.Set(secrets.DefaultService, "gone", "x"))

	out, err := execute(t, "secret", "delete", "gone")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted secret gone")

	_, err = execute(t, "secret", "delete", "gone")
	require.Error(t, err)
	assert.Equal(t, 3, cairnerr.ExitCode(err))
}

func TestKeyringReferenceResolvedFromEnv(t *testing.T) {
	m := useMemSecrets(t)
	require.NoError(t, m.Set(secrets.DefaultService, "pw", "resolved"))
	t.Setenv("CAIRN_DATABASE_PASSWORD", "keyring://cairn/pw")

	_, err := execute(t, "version")
	require.NoError(t, err)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "resolved", cfg.Database.Password)
}
