package tomo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
algorithm:
  niter: 4
  nreal: 8
  nvoronoi: 250
  narrival: 500
  adaptive_voronoi_cells: true
  outlier_removal_factor: 1.5
  damp: 1.0
  atol: 1e-6
  btol: 1e-6
  conlim: 50
  maxiter: 100
locate:
  dlat: 0.1
  dlon: 0.1
  ddepth: 10
  dtime: 1
workspace:
  traveltime_dir: /tmp/tt
  output_dir: /tmp/out
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(validConfigYAML))
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Algorithm.NIter)
	require.Equal(t, 250, cfg.Algorithm.NVoronoi)
	require.True(t, cfg.Algorithm.AdaptiveVoronoi)
	require.InDelta(t, 1.5, cfg.Algorithm.OutlierRemovalFactor, 1e-12)
	require.InDelta(t, 0.1, cfg.Locate.DLat, 1e-12)
	require.Equal(t, "/tmp/out", cfg.Workspace.OutputDir)
}

func TestParseConfigRejectsUnknownField(t *testing.T) {
	raw := []byte(validConfigYAML + "\nextra_section:\n  x: 1\n")
	_, err := ParseConfig(raw)
	require.Error(t, err)
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	raw := []byte(`
algorithm:
  niter: 0
  nreal: 8
  nvoronoi: 250
  narrival: 500
  outlier_removal_factor: 1.5
  damp: 1.0
  atol: 1e-6
  btol: 1e-6
  conlim: 50
  maxiter: 100
locate:
  dlat: 0.1
  dlon: 0.1
  ddepth: 10
  dtime: 1
`)
	_, err := ParseConfig(raw)
	require.Error(t, err)
}
