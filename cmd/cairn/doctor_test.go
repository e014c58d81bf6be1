// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctor_RunsAllChecks(t *testing.T) {
	useMemSecrets(t)
	// Point at a closed port so the probe fails fast.
	t.Setenv("CAIRN_DATABASE_PORT", "1")

	out, err := execute(t, "doctor")
	require.NoError(t, err, "doctor reports failures instead of returning them")

	for _, name := range []string{"Binary:", "Config:", "Keyring:", "Database:", "Disk Space:"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "cairn dev")
	assert.Contains(t, out, "0 secret(s) stored")
	assert.Contains(t, out, "unreachable at postgres://postgres@localhost:1/postgres")
}

func TestDoctor_FlagsUnresolvedPassword(t *testing.T) {
	useMemSecrets(t)
	t.Setenv("CAIRN_DATABASE_PORT", "1")
	t.Setenv("CAIRN_DATABASE_PASSWORD", "keyring://cairn/missing")

	out, err := execute(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "could not be read")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
	assert.Equal(t, "1.5 GB", formatBytes(3*1024*1024*1024/2))
}
