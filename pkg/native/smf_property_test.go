package native

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestReadVarLenProperty checks that every 28-bit delta written the way MIDI
// files encode it is read back with its encoded length.
func TestReadVarLenProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("delta times decode to their value", prop.ForAll(
		func(d int) bool {
			tr := new(smfTrack)
			tr.delta(d)
			got, n := readVarLen(tr.buf.Bytes())
			return got == d && n == tr.buf.Len()
		},
		gen.IntRange(0, 0x0FFFFFFF),
	))

	properties.TestingRun(t)
}

// TestParseSMFMergeProperty checks that merged events are ordered by tick and
// that the file length is the end of the longest track.
func TestParseSMFMergeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	build := func(deltas []int, ch byte) (*smfTrack, int) {
		tr := new(smfTrack)
		total := 0
		for i, d := range deltas {
			total += d
			key := byte(40 + i%40)
			tr.event(d, 0x90|ch, key, 100)
		}
		tr.end(0)
		return tr, total
	}

	properties.Property("events are tick ordered", prop.ForAll(
		func(a, b []int) bool {
			ta, totalA := build(a, 0)
			tb, totalB := build(b, 1)
			mf, err := parseSMF(buildSMF(1, 480, ta, tb), "utf-8")
			if err != nil {
				return false
			}
			for i := 1; i < len(mf.Events); i++ {
				if mf.Events[i].Tick < mf.Events[i-1].Tick {
					return false
				}
			}
			want := totalA
			if totalB > want {
				want = totalB
			}
			return mf.TotalTicks == want
		},
		gen.SliceOf(gen.IntRange(0, 2000)),
		gen.SliceOf(gen.IntRange(0, 2000)),
	))

	properties.TestingRun(t)
}
