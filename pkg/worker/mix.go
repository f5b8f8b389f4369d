package worker

import (
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
)

// Mix builds the output block. The processed frame (the input without the
// suppressed categories) is the base signal scaled by the speech bus. The
// events stem, when given, is a part of the processed frame and is scaled
// by the events bus instead. What the processing removed comes back only
// as a bed of residualBed scaled by the noise bus.
//
// Samples beyond the processed length are taken from the original; an
// empty events frame means there is no events stem.
func Mix(original, processed, events audio.Frame, gains gain.Vector, residualBed float64) audio.Frame {
	speech := float32(gains.Speech)
	eventsGain := float32(gains.Events)
	bed := float32(gains.Noise * residualBed)

	out := make([]float32, len(original.Samples))
	for idx, v := range original.Samples {
		p := v
		if idx < len(processed.Samples) {
			p = processed.Samples[idx]
		}
		var e float32
		if idx < len(events.Samples) {
			e = events.Samples[idx]
		}
		out[idx] = (p-e)*speech + e*eventsGain + (v-p)*bed
	}
	return original.WithSamples(out)
}
