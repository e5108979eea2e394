package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cfg, exit, err := Parse([]string{
		"-input", "realigned_epi=epi.nii",
		"-input", "range=[0, 10]",
		"-cache-dir", "/tmp/c",
		"-no-cache",
		"-workers", "4",
		"-log-format", "JSON",
		"pipelines/epi_t1.hcl",
	}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "pipelines/epi_t1.hcl", cfg.PipelinePath)
	assert.Equal(t, map[string]string{"realigned_epi": "epi.nii", "range": "[0, 10]"}, cfg.Inputs)
	assert.Equal(t, "/tmp/c", cfg.CacheDir)
	assert.True(t, cfg.NoCache)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "modules", cfg.ModulesPath)
}

func TestParse_PipelineFlagWins(t *testing.T) {
	cfg, _, err := Parse([]string{"-pipeline", "a.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.PipelinePath)

	cfg, _, err = Parse([]string{"-p", "b.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "b.hcl", cfg.PipelinePath)
}

func TestParse_HelpAndNoPath(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {}} {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string][]string{
		"unknown flag":    {"--nope"},
		"malformed input": {"-input", "novalue", "p.hcl"},
		"duplicate input": {"-input", "a=1", "-input", "a=2", "p.hcl"},
		"bad log level":   {"-log-level", "loud", "p.hcl"},
		"bad workers":     {"-workers", "-1", "p.hcl"},
		"extra argument":  {"p.hcl", "q.hcl"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(args, &bytes.Buffer{})
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
