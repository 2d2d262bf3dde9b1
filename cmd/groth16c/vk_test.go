package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleVK = `{
  "curve": "toy19",
  "alpha_beta": {
    "c0": {"c0": {"c0": "1", "c1": "2"}, "c1": {"c0": "3", "c1": "4"}, "c2": {"c0": "5", "c1": "6"}},
    "c1": {"c0": {"c0": "7", "c1": "8"}, "c1": {"c0": "9", "c1": "a"}, "c2": {"c0": "b", "c1": "c"}}
  },
  "gamma_neg": {"x": {"c0": "1", "c1": "0"}, "y": {"c0": "2", "c1": "0"}},
  "delta_neg": {"x": {"c0": "3", "c1": "0"}, "y": {"c0": "4", "c1": "0"}},
  "gamma_abc": [{"x": "5", "y": "6"}, {"x": "7", "y": "8"}],
  "max_multipliers": [255]
}`

func TestParseVerifyingKey(t *testing.T) {
	vk, bounds, curve, err := parseVerifyingKey([]byte(sampleVK))
	require.NoError(t, err)
	require.Equal(t, "toy19", curve)
	require.Equal(t, []int64{255}, bounds)
	require.Len(t, vk.GammaABC, 2)
	require.Equal(t, int64(1), vk.AlphaBeta.C0.C0.C0.Int64())
	require.Equal(t, int64(0xc), vk.AlphaBeta.C1.C2.C1.Int64())
	require.Equal(t, int64(5), vk.GammaABC[0].X.Int64())
	require.Equal(t, int64(2), vk.GammaNeg.Y.C0.Int64())
}

func TestParseVerifyingKeyErrors(t *testing.T) {
	_, _, _, err := parseVerifyingKey([]byte("not json"))
	require.Error(t, err)

	_, _, _, err = parseVerifyingKey([]byte(`{"gamma_abc": []}`))
	require.Error(t, err)
}

func TestCurveParamsByName(t *testing.T) {
	p, err := curveParamsByName("bls12381")
	require.NoError(t, err)
	require.Equal(t, "BLS12-381", p.Name)

	_, err = curveParamsByName("nope")
	require.Error(t, err)
}
