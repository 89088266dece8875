// Package variantlib provides the core structures and algorithms for
// adaptive content delivery: compatibility scoring, variant selection,
// fallback resolution and the priority download-job scheduler.
package variantlib

// Kind is the quality tier of a content variant.
type Kind string

const (
	KindOriginal Kind = "original"
	KindHigh     Kind = "high"
	KindNormal   Kind = "normal"
	KindLow      Kind = "low"
)

// QualityRank orders kinds for deterministic tie-breaking,
// high > normal > low > original.
func (k Kind) QualityRank() int {
	switch k {
	case KindHigh:
		return 3
	case KindNormal:
		return 2
	case KindLow:
		return 1
	default:
		return 0
	}
}

// ConversionState tracks the external conversion pipeline for a variant.
// Transitions pending -> in_progress -> {success, failed}, exactly once.
type ConversionState string

const (
	ConversionPending    ConversionState = "pending"
	ConversionInProgress ConversionState = "in_progress"
	ConversionSuccess    ConversionState = "success"
	ConversionFailed     ConversionState = "failed"
)

// Metadata describes the device requirements a variant was encoded for.
type Metadata struct {
	// RequiredChipset is the chipset class the variant targets, e.g. "snapdragon888".
	RequiredChipset string `json:"required_chipset"`
	// MinMemory is the minimum device memory in GB.
	MinMemory int `json:"min_memory"`
	// Resolution is the target display resolution, e.g. "1080p".
	Resolution string `json:"resolution"`
}

// ContentVariant is one quality-tier rendition of a logical content asset.
// Every non-original variant carries the id of the original it was derived
// from in ParentID; originals have an empty ParentID.
type ContentVariant struct {
	// ID is the unique identifier of the variant.
	ID string `json:"id"`
	// Name is the logical title shared across all variants of the same asset.
	Name string `json:"name"`
	// Kind is the quality tier of this rendition.
	Kind Kind `json:"kind"`
	// Version is a semver-like version string.
	Version string `json:"version"`
	// Meta holds the device requirements for this rendition.
	Meta Metadata `json:"meta"`
	// ParentID links a derived variant to its original asset.
	ParentID string `json:"parent_id,omitempty"`
	// ConversionState is the state of the external conversion pipeline.
	ConversionState ConversionState `json:"conversion_state"`
	// Path is the storage location of the variant's payload.
	Path string `json:"path,omitempty"`
	// DownloadURL is where clients fetch the payload from.
	DownloadURL string `json:"download_url,omitempty"`
}

// DeviceInfo is the client device descriptor used for compatibility scoring.
type DeviceInfo struct {
	Chipset    string `json:"chipset"`
	Memory     int    `json:"memory"`
	Resolution string `json:"resolution"`
}

// ScoredVariant pairs a candidate variant with its compatibility score.
type ScoredVariant struct {
	Variant *ContentVariant
	Score   float64
}
