package domain

import "time"

// PatternType tags the kind of recurring structure a ConversionPattern
// captures — the tagged union referenced in spec.md §7.
type PatternType string

const (
	PatternSequenceTiming PatternType = "sequence_timing"
	PatternMessageTone    PatternType = "message_tone"
	PatternChannelMix     PatternType = "channel_mix"
	PatternSubjectLine    PatternType = "subject_line"
)

// ConversionPattern is an archived, detected regularity in what separates
// converting from non-converting assignments within a segment. The
// Detail field's shape depends on Type; it is archived to S3 as opaque
// JSON rather than modeled per-type in Postgres, since new pattern types
// are expected to be added without a migration (spec.md §7).
type ConversionPattern struct {
	ID         string      `json:"id" db:"id"`
	Type       PatternType `json:"type" db:"type"`
	Segment    string      `json:"segment" db:"segment"`
	Detail     map[string]any `json:"detail" db:"-"`
	Confidence float64     `json:"confidence" db:"confidence"`
	SampleSize int         `json:"sample_size" db:"sample_size"`
	ArchiveKey string      `json:"archive_key" db:"archive_key"`
	DetectedAt time.Time   `json:"detected_at" db:"detected_at"`
}
