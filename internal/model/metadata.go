package model

import (
	"math/big"
	"time"
)

// DurationNs is an unsigned 128-bit nanosecond duration (spec.md §3).
// No pack example needs genuine 128-bit arithmetic, so this is backed
// by math/big.Int rather than a hand-rolled two-word integer; the
// value is always non-negative by construction.
type DurationNs struct {
	big.Int
}

// DurationNsFromDuration constructs a DurationNs from a standard
// library Duration (which, at 64 bits, can never exceed the 128-bit
// range, so this conversion is always exact and lossless).
func DurationNsFromDuration(d time.Duration) DurationNs {
	var v DurationNs
	v.SetInt64(int64(d))
	return v
}

// MarshalJSON renders the duration as a decimal string, since JSON
// numbers are not guaranteed to round-trip values beyond 53 bits of
// precision.
func (d DurationNs) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a decimal string produced by MarshalJSON.
func (d *DurationNs) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, ok := d.SetString(s, 10); !ok {
		return &ConfigurationError{message: "invalid duration value: " + s}
	}
	return nil
}

// System is a snapshot of host characteristics recorded alongside
// each successful execution (spec.md §3, expanded per SPEC_FULL.md §3
// with Hostname).
type System struct {
	Name                  string `json:"name,omitempty"`
	Hostname              string `json:"hostname,omitempty"`
	LongOSVersion         string `json:"long_os_version,omitempty"`
	KernelVersion         string `json:"kernel_version,omitempty"`
	DistributionID        string `json:"distribution_id"`
	TotalMemory           uint64 `json:"total_memory"`
	EstimatedCPUCoreCount uint   `json:"estimated_cpu_core_count"`
}

// Metadata is the per-successful-execution record spec.md §3
// describes: when it ran, how long it took, and what it ran on.
type Metadata struct {
	TimestampNs         int64      `json:"timestamp_ns"`
	ExecutionDurationNs DurationNs `json:"execution_duration_ns"`
	System              System     `json:"system"`
}
