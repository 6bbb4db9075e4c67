package deepgram

type deepgramVoice string

const defaultVoice = VoiceAura2Thalia

const (
	VoiceAura2Thalia    deepgramVoice = "aura-2-thalia-en"
	VoiceAura2Andromeda deepgramVoice = "aura-2-andromeda-en"
	VoiceAura2Helena    deepgramVoice = "aura-2-helena-en"
	VoiceAura2Apollo    deepgramVoice = "aura-2-apollo-en"
	VoiceAura2Arcas     deepgramVoice = "aura-2-arcas-en"
	VoiceAura2Aries     deepgramVoice = "aura-2-aries-en"
	VoiceAura2Asteria   deepgramVoice = "aura-2-asteria-en"
	VoiceAura2Athena    deepgramVoice = "aura-2-athena-en"
	VoiceAura2Luna      deepgramVoice = "aura-2-luna-en"
	VoiceAura2Orion     deepgramVoice = "aura-2-orion-en"
	VoiceAura2Zeus      deepgramVoice = "aura-2-zeus-en"
	VoiceAuraAsteria    deepgramVoice = "aura-asteria-en"
	VoiceAuraLuna       deepgramVoice = "aura-luna-en"
	VoiceAuraOrion      deepgramVoice = "aura-orion-en"
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceAura2Thalia,
		VoiceAura2Andromeda,
		VoiceAura2Helena,
		VoiceAura2Apollo,
		VoiceAura2Arcas,
		VoiceAura2Aries,
		VoiceAura2Asteria,
		VoiceAura2Athena,
		VoiceAura2Luna,
		VoiceAura2Orion,
		VoiceAura2Zeus,
		VoiceAuraAsteria,
		VoiceAuraLuna,
		VoiceAuraOrion,
	}
}

// ParseVoice returns the voice with the given model name. An empty name
// selects the default voice.
func ParseVoice(name string) (deepgramVoice, bool) {
	if name == "" {
		return defaultVoice, true
	}
	for _, voice := range GetAvailableVoices() {
		if string(voice) == name {
			return voice, true
		}
	}
	return "", false
}
