package types

import "strings"

// Tone preset names.
const (
	ToneProfessional = "professional"
	ToneEmotional    = "emotional"
	ToneConfident    = "confident"
	ToneCreative     = "creative"
)

// DefaultTone is used when no tone is requested.
const DefaultTone = ToneProfessional

var tonePresets = map[string]string{
	ToneProfessional: "Professional, concise, and clearly tailored to the role. Direct, specific, and achievement-focused. Avoids filler, excessive warmth, or verbosity.",
	ToneEmotional:    "Emotionally intelligent, detailed, and clearly tailored to the role and mission. Shows initiative, reflection, and care.",
	ToneConfident:    "Confident, enthusiastic, and results-oriented. Emphasizes achievements and impact.",
	ToneCreative:     "Creative, innovative, and forward-thinking. Shows unique perspective and problem-solving approach.",
}

// ToneNames lists the preset names in display order.
func ToneNames() []string {
	return []string{ToneProfessional, ToneEmotional, ToneConfident, ToneCreative}
}

// DescribeTone expands a preset name into its style description.
// Anything that is not a preset is treated as a free-text tone and returned trimmed;
// an empty tone falls back to the default preset.
func DescribeTone(tone string) string {
	tone = strings.TrimSpace(tone)
	if tone == "" {
		return tonePresets[DefaultTone]
	}
	if desc, ok := tonePresets[strings.ToLower(tone)]; ok {
		return desc
	}
	return tone
}
