package variantlib

import "strings"

// Dimension weights for the composite compatibility score.
const (
	weightChipset    = 0.4
	weightMemory     = 0.3
	weightResolution = 0.3
)

// reliabilityFloor keeps a single early failure from permanently exiling
// a variant from consideration. Reliability is a soft signal here;
// disqualification is the fallback resolver's job.
const reliabilityFloor = 0.6

// resolutionTiers orders display resolutions from lowest to highest.
var resolutionTiers = map[string]int{
	"480p":  1,
	"720p":  2,
	"1080p": 3,
	"1440p": 4,
	"2160p": 5,
}

// chipsetFamily strips the trailing model digits from a chipset class,
// e.g. "snapdragon888" -> "snapdragon".
func chipsetFamily(chipset string) string {
	return strings.TrimRight(chipset, "0123456789")
}

// ChipsetScore rates how well the device chipset satisfies the variant's
// required chipset: 10 for an exact match, 5 for a family-prefix match,
// 0 otherwise.
func ChipsetScore(device DeviceInfo, meta Metadata) int {
	if meta.RequiredChipset == "" || device.Chipset == "" {
		return 0
	}
	if device.Chipset == meta.RequiredChipset {
		return 10
	}
	family := chipsetFamily(meta.RequiredChipset)
	if family != "" && strings.HasPrefix(device.Chipset, family) {
		return 5
	}
	return 0
}

// MemoryScore rates device memory against the variant's minimum:
// 10 with 2GB headroom, 5 at the bare minimum, 0 below it.
func MemoryScore(device DeviceInfo, meta Metadata) int {
	switch {
	case device.Memory >= meta.MinMemory+2:
		return 10
	case device.Memory >= meta.MinMemory:
		return 5
	default:
		return 0
	}
}

// ResolutionScore rates the variant resolution against the device panel:
// 10 for an exact match, 5 when the content is a lower tier the device
// can upscale, 0 otherwise (including any unknown resolution).
func ResolutionScore(device DeviceInfo, meta Metadata) int {
	if meta.Resolution == device.Resolution && meta.Resolution != "" {
		return 10
	}
	ct, cok := resolutionTiers[meta.Resolution]
	dt, dok := resolutionTiers[device.Resolution]
	if cok && dok && ct < dt {
		return 5
	}
	return 0
}

// ReliabilityFactor converts a client's delivery history with a content
// into a multiplicative score adjustment. A client with no prior history
// gets 1.0; otherwise the success rate, floored at reliabilityFloor.
func ReliabilityFactor(stats ReliabilityStats) float64 {
	if stats.Attempts == 0 {
		return 1.0
	}
	rate := 1 - stats.FailureRate()
	if rate < reliabilityFloor {
		return reliabilityFloor
	}
	return rate
}

// Score computes the final compatibility score of a variant for a device.
// Per-dimension scores are 0, 5 or 10; the weighted composite lies in
// [0, 10] and is then scaled by the reliability factor. Pure function.
func Score(device DeviceInfo, meta Metadata, reliability float64) float64 {
	weighted := weightChipset*float64(ChipsetScore(device, meta)) +
		weightMemory*float64(MemoryScore(device, meta)) +
		weightResolution*float64(ResolutionScore(device, meta))
	return weighted * reliability
}
