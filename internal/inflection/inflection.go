// Package inflection locates the true moment a flight transition began,
// within a backtrack window whose trigger sample arrived after the fact.
package inflection

import "github.com/dropzone-telemetry/skyjump/internal/events"

// Find scans samples in chronological order and returns the earlier sample
// of the first adjacent pair whose vertical-speed delta exceeds
// minSpeedDelta in the direction given by isRising. If no such pair
// exists, it returns the oldest sample. If samples has fewer than two
// elements it returns its only sample, or false if it is empty.
//
// The detection trigger fires after the true transition has already
// happened — by the time a detector's median-smoothed condition holds,
// several samples of the move are already behind it. Walking the backtrack
// window forward for the first sample-to-sample jump recovers the actual
// inflection point instead of reporting the delayed trigger index.
func Find(samples []events.VerticalSpeedSample, isRising bool, minSpeedDelta float64) (events.VerticalSpeedSample, bool) {
	if len(samples) == 0 {
		return events.VerticalSpeedSample{}, false
	}
	if len(samples) < 2 {
		return samples[0], true
	}

	for i := 0; i+1 < len(samples); i++ {
		delta := samples[i+1].ClippedVerticalSpeed - samples[i].ClippedVerticalSpeed
		if isRising && delta > minSpeedDelta {
			return samples[i], true
		}
		if !isRising && delta < -minSpeedDelta {
			return samples[i], true
		}
	}
	return samples[0], true
}
