package qa

import (
	"encoding/json"
	"math"
	"time"

	"qacompare/domain/core"
)

// ComparisonRecord is one comparison of a run, in push order.
type ComparisonRecord struct {
	Seq     int     `json:"seq" db:"seq"`
	Name    string  `json:"name" db:"name"`
	PValue  float64 `json:"p_value" db:"p_value"`
	Verdict Verdict `json:"verdict" db:"verdict"`
	Tested  bool    `json:"tested" db:"-"`
}

// MarshalJSON writes an untested p-value as null.
func (c ComparisonRecord) MarshalJSON() ([]byte, error) {
	type plain ComparisonRecord
	out := struct {
		plain
		PValue *float64 `json:"p_value"`
	}{plain: plain(c)}
	if c.Tested && !math.IsNaN(c.PValue) {
		p := c.PValue
		out.PValue = &p
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null p-value back as NaN.
func (c *ComparisonRecord) UnmarshalJSON(data []byte) error {
	type plain ComparisonRecord
	in := struct {
		*plain
		PValue *float64 `json:"p_value"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.PValue = math.NaN()
	if in.PValue != nil {
		c.PValue = *in.PValue
	}
	return nil
}

// RunRecord is the persisted summary of one QA run.
type RunRecord struct {
	ID          core.RunID         `json:"id"`
	Label       string             `json:"label"`
	Combined    CombinedStatistic  `json:"combined"`
	Comparisons []ComparisonRecord `json:"comparisons"`
	Fingerprint core.Hash          `json:"fingerprint"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Tested returns the comparisons that produced a statistic.
func (r *RunRecord) Tested() []ComparisonRecord {
	out := make([]ComparisonRecord, 0, len(r.Comparisons))
	for _, c := range r.Comparisons {
		if c.Tested {
			out = append(out, c)
		}
	}
	return out
}
