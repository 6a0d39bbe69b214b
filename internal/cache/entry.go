package cache

import (
	"encoding/json"
	"time"
)

// Status is the recorded outcome of the last fetch attempt for a key.
// Beyond the two canonical values, fetchers may record free-form error
// codes such as "timeout" or "rate_limited".
type Status string

const (
	// StatusSuccess marks an entity whose last fetch returned usable data.
	StatusSuccess Status = "success"
	// StatusFailed marks a semantic negative, e.g. entity not found.
	StatusFailed Status = "failed"
)

// Entry records the outcome and timestamp of the last fetch attempt.
type Entry struct {
	Status      Status
	FailCount   int
	CollectedAt time.Time
}

type entryJSON struct {
	Status      string `json:"status"`
	FailCount   int    `json:"fail_count,omitempty"`
	CollectedAt string `json:"collected_at,omitempty"`
}

// MarshalJSON writes the structured entry form with an RFC 3339 timestamp.
func (e Entry) MarshalJSON() ([]byte, error) {
	raw := entryJSON{
		Status:    string(e.Status),
		FailCount: e.FailCount,
	}
	if !e.CollectedAt.IsZero() {
		raw.CollectedAt = e.CollectedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON accepts both the structured entry form and the legacy
// bare-string status form. A malformed timestamp is normalized to the
// zero time, which downstream staleness checks treat as stale.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Entry{Status: Status(s)}
		return nil
	}

	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Entry{
		Status:    Status(raw.Status),
		FailCount: raw.FailCount,
	}
	if raw.CollectedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.CollectedAt); err == nil {
			e.CollectedAt = t
		}
	}
	return nil
}
