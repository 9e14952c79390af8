package core

// ConfigWord packs repeats, length and spacing for the timing engine:
//
//	bits 0-4:   repeats
//	bits 5-11:  length - min length
//	bits 12-31: spacing - min spacing
type ConfigWord uint32

const (
	repeatsBits  = 5
	lengthBits   = 7
	spacingBits  = 20
	repeatsShift = 0
	lengthShift  = repeatsShift + repeatsBits
	spacingShift = lengthShift + lengthBits

	RepeatsFieldMax = 1<<repeatsBits - 1
	LengthFieldMax  = 1<<lengthBits - 1
	SpacingFieldMax = 1<<spacingBits - 1
)

// EngineConfig is everything the engine needs for one configuration: the
// packed word and the offset word the refill keeps queued.
type EngineConfig struct {
	Config ConfigWord
	Offset uint32
}

// Encode packs already-biased length and spacing with raw offset and repeats.
// Fields wider than their slot are clamped to the slot's maximum.
func Encode(offset, length, spacing, repeats uint32) EngineConfig {
	w := saturate(repeats, RepeatsFieldMax)<<repeatsShift |
		saturate(length, LengthFieldMax)<<lengthShift |
		saturate(spacing, SpacingFieldMax)<<spacingShift
	return EngineConfig{Config: ConfigWord(w), Offset: offset}
}

// EncodeValues biases user values by their minimums and encodes them.
// Values must already have passed Validate.
func EncodeValues(v Values) EngineConfig {
	return Encode(
		v[ParamOffset],
		v[ParamLength]-paramSpecs[ParamLength].Min,
		v[ParamSpacing]-paramSpecs[ParamSpacing].Min,
		v[ParamRepeats],
	)
}

// Decode unpacks the biased fields of a configuration word.
func (w ConfigWord) Decode() (length, spacing, repeats uint32) {
	repeats = uint32(w>>repeatsShift) & RepeatsFieldMax
	length = uint32(w>>lengthShift) & LengthFieldMax
	spacing = uint32(w>>spacingShift) & SpacingFieldMax
	return length, spacing, repeats
}

func saturate(v, max uint32) uint32 {
	if v > max {
		return max
	}
	return v
}
