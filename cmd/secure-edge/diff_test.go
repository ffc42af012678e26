package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
)

func TestNewDiffCmd(t *testing.T) {
	cmd := newDiffCmd()

	if cmd.Use != "diff <template1> [template2]" {
		t.Errorf("Use = %q, want 'diff <template1> [template2]'", cmd.Use)
	}
	for _, name := range []string{"format", "ignore-order", "env", "whitelist"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestDiffCmd_AgainstSynthesized(t *testing.T) {
	built, err := run(t, "build")
	require.NoError(t, err)
	path := writeFile(t, "template.json", built)

	out, err := run(t, "diff", path)
	require.NoError(t, err)
	assert.Equal(t, "No differences.\n", out)
}

func TestDiffCmd_WhitelistChange(t *testing.T) {
	resolved, err := run(t, "resolve", "--env", "CODE", "--whitelist", "10.0.0.0/8")
	require.NoError(t, err)
	path := writeFile(t, "code.json", resolved)

	out, err := run(t, "diff", path, "--env", "CODE", "--whitelist", "192.168.0.0/16", "-f", "json")
	require.NoError(t, err)

	var result struct {
		Summary edgerest.DiffSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Modified)
	assert.Contains(t, out, stack.RestAPIName)
	assert.Contains(t, out, "aws:SourceIp[0] modified")
}

func TestDiffCmd_MissingFile(t *testing.T) {
	_, err := run(t, "diff", "/nonexistent/template.json")
	assert.Error(t, err)
}
