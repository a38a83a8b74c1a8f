package qa

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonRecordJSON(t *testing.T) {
	tested, err := json.Marshal(ComparisonRecord{Seq: 0, Name: "h_pt", PValue: 0.25, Verdict: VerdictGood, Tested: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":0,"name":"h_pt","p_value":0.25,"verdict":"good","tested":true}`, string(tested))

	untested, err := json.Marshal(ComparisonRecord{Seq: 1, Name: "h_eta", PValue: math.NaN(), Verdict: VerdictNone})
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":1,"name":"h_eta","p_value":null,"verdict":"none","tested":false}`, string(untested))
}

func TestRunRecordTested(t *testing.T) {
	run := &RunRecord{Comparisons: []ComparisonRecord{
		{Seq: 0, Tested: true, PValue: 0.1},
		{Seq: 1, PValue: math.NaN()},
		{Seq: 2, Tested: true, PValue: 0.9},
	}}

	tested := run.Tested()
	require.Len(t, tested, 2)
	assert.Equal(t, 2, tested[1].Seq)

	body, err := json.Marshal(run)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"p_value":null`)
}

func TestComparisonRecordJSONRoundTrip(t *testing.T) {
	in := []ComparisonRecord{
		{Seq: 0, Name: "h_pt", PValue: 0.25, Verdict: VerdictGood, Tested: true},
		{Seq: 1, Name: "h_eta", PValue: math.NaN(), Verdict: VerdictNone},
	}
	body, err := json.Marshal(in)
	require.NoError(t, err)

	var out []ComparisonRecord
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, "h_eta", out[1].Name)
	assert.False(t, out[1].Tested)
	assert.True(t, math.IsNaN(out[1].PValue))
}
