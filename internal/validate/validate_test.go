// SPDX-License-Identifier: MIT

package validate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAccumulates(t *testing.T) {
	v := New()
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())

	v.AddError("a", "first", 1)
	v.AddError("b", "second", 2)
	assert.False(t, v.IsValid())
	require.Len(t, v.Errors(), 2)

	err := v.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed for a: first")
	assert.Contains(t, err.Error(), "validation failed for b: second")
}

func TestURL(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"https ok", "https://panelapp.agha.umccr.org/api/v1/panels", true},
		{"http ok", "http://localhost:8080", true},
		{"empty", "", false},
		{"no host", "https://", false},
		{"bad scheme", "ftp://example.org", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			v.URL("base", tc.value, []string{"http", "https"})
			assert.Equal(t, tc.valid, v.IsValid())
		})
	}
}

func TestRatio(t *testing.T) {
	v := New()
	v.Ratio("af", 0.01)
	v.Ratio("af_zero", 0)
	v.Ratio("af_one", 1)
	assert.True(t, v.IsValid())

	v.Ratio("af_bad", 1.5)
	v.Ratio("af_neg", -0.1)
	assert.Len(t, v.Errors(), 2)
}

func TestRangeAndPositive(t *testing.T) {
	v := New()
	v.Range("depth", 3, 0, 10)
	v.Positive("panel", 137)
	v.NonNegative("retries", 0)
	assert.True(t, v.IsValid())

	v.Range("depth", 11, 0, 10)
	v.Positive("panel", 0)
	v.NonNegative("retries", -1)
	assert.Len(t, v.Errors(), 3)
}

func TestDirectory(t *testing.T) {
	tmp := t.TempDir()

	v := New()
	v.Directory("out", tmp, true)
	assert.True(t, v.IsValid())

	v = New()
	v.Directory("out", filepath.Join(tmp, "missing"), true)
	assert.False(t, v.IsValid())

	// created when mustExist is false
	v = New()
	created := filepath.Join(tmp, "created")
	v.Directory("out", created, false)
	assert.True(t, v.IsValid())
	assert.DirExists(t, created)

	v = New()
	v.Directory("out", "../sneaky", false)
	assert.False(t, v.IsValid())
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"port only", ":8080", true},
		{"host and port", "127.0.0.1:8080", true},
		{"hostname", "example.org:443", true},
		{"empty", "", false},
		{"no port", "127.0.0.1", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			v.ListenAddr("listen", tc.value)
			assert.Equal(t, tc.valid, v.IsValid(), "errors: %v", v.Errors())
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "example.org", "example.org", false},
		{"uppercase", "Example.ORG", "example.org", false},
		{"trailing dot", "example.org.", "example.org", false},
		{"idn", "bücher.example", "xn--bcher-kva.example", false},
		{"ipv4", "192.168.1.10", "192.168.1.10", false},
		{"ipv6 bracketed", "[::1]", "::1", false},
		{"empty", "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeHost(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	got, err := NormalizeBaseURL("https://PanelApp.AGHA.umccr.org/api/v1/panels/")
	require.NoError(t, err)
	assert.Equal(t, "https://panelapp.agha.umccr.org/api/v1/panels", got)

	_, err = NormalizeBaseURL("ftp://example.org")
	assert.Error(t, err)

	_, err = NormalizeBaseURL("")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		parsed, err := ParseLogLevel(lvl)
		require.NoError(t, err)
		assert.Equal(t, lvl, parsed.String())
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}
