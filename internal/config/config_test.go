package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/524D/qcml/internal/logging"
	"github.com/524D/qcml/internal/qcml"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qcml.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
ontology:
  obo:
    - psi-ms.obo
    - PSI-MOD.obo.xz
  cache: terms.db
writer:
  ratio_fill: sentinel
reader:
  unknown_action: record
  ratio_sentinel: "-1"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"psi-ms.obo", "PSI-MOD.obo.xz"}, cfg.Ontology.OBO)
	assert.Equal(t, "terms.db", cfg.Ontology.Cache)
	// Keys that are not in the file keep their default
	assert.Equal(t, qcml.DefaultRatioSentinel, cfg.Writer.RatioSentinel)
	assert.Equal(t, logging.ModeDevelopment, cfg.Log.Mode)

	wo, err := cfg.WriterOptions()
	require.NoError(t, err)
	assert.Equal(t, qcml.FillSentinel, wo.RatioFill)
	assert.Equal(t, "-1", wo.RatioSentinel)

	ro, err := cfg.ReaderOptions()
	require.NoError(t, err)
	assert.Equal(t, qcml.RecordUnknownActions, ro.UnknownActions)
	assert.Equal(t, "-1", ro.RatioSentinel)
	assert.Nil(t, ro.Ontology)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
	}{
		{"ratio fill", "writer:\n  ratio_fill: zero\n", qcml.ErrUnknownPolicy},
		{"action policy", "reader:\n  unknown_action: keep\n", qcml.ErrUnknownPolicy},
		{"log mode", "log:\n  mode: loud\n", logging.ErrUnknownMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Load(writeConfig(t, "writer: [1, 2"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Ontology.OBO = []string{"psi-ms.obo"}
	data, err := cfg.Marshal()
	require.NoError(t, err)

	var got Config
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, cfg, got)
}
