package engine

import "encoding/json"

type fetchJSON struct {
	Variable   string `json:"variable"`
	CycleID    int    `json:"cycle_id"`
	Status     string `json:"status"`
	Values     int    `json:"values"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// MarshalJSON encodes the fetch error as a string and the duration in
// milliseconds.
func (f Fetch) MarshalJSON() ([]byte, error) {
	v := fetchJSON{
		Variable:   f.Variable,
		CycleID:    f.CycleID,
		Status:     string(f.Status),
		Values:     f.Values,
		DurationMS: f.Duration.Milliseconds(),
	}
	if f.Err != nil {
		v.Error = f.Err.Error()
	}
	return json.Marshal(v)
}

// MarshalJSON implements json.Marshaler.
func (r *Report) MarshalJSON() ([]byte, error) {
	fetches := r.Fetches
	if fetches == nil {
		fetches = []Fetch{}
	}
	return json.Marshal(struct {
		RunID      string  `json:"run_id,omitempty"`
		Trigger    string  `json:"trigger"`
		Fetches    []Fetch `json:"fetches"`
		Failed     int     `json:"failed"`
		DurationMS int64   `json:"duration_ms"`
	}{
		RunID:      r.RunID,
		Trigger:    r.Trigger,
		Fetches:    fetches,
		Failed:     len(r.Failed()),
		DurationMS: r.Duration.Milliseconds(),
	})
}
