package player

import "fmt"

// TranscodeScheme caps the bit rate a player receives.
type TranscodeScheme string

const (
	TranscodeOff    TranscodeScheme = "OFF"
	TranscodeMax32  TranscodeScheme = "MAX_32"
	TranscodeMax40  TranscodeScheme = "MAX_40"
	TranscodeMax48  TranscodeScheme = "MAX_48"
	TranscodeMax56  TranscodeScheme = "MAX_56"
	TranscodeMax64  TranscodeScheme = "MAX_64"
	TranscodeMax80  TranscodeScheme = "MAX_80"
	TranscodeMax96  TranscodeScheme = "MAX_96"
	TranscodeMax112 TranscodeScheme = "MAX_112"
	TranscodeMax128 TranscodeScheme = "MAX_128"
	TranscodeMax160 TranscodeScheme = "MAX_160"
	TranscodeMax192 TranscodeScheme = "MAX_192"
	TranscodeMax224 TranscodeScheme = "MAX_224"
	TranscodeMax256 TranscodeScheme = "MAX_256"
	TranscodeMax320 TranscodeScheme = "MAX_320"
)

var transcodeSchemeBitRates = map[TranscodeScheme]int{
	TranscodeOff:    0,
	TranscodeMax32:  32,
	TranscodeMax40:  40,
	TranscodeMax48:  48,
	TranscodeMax56:  56,
	TranscodeMax64:  64,
	TranscodeMax80:  80,
	TranscodeMax96:  96,
	TranscodeMax112: 112,
	TranscodeMax128: 128,
	TranscodeMax160: 160,
	TranscodeMax192: 192,
	TranscodeMax224: 224,
	TranscodeMax256: 256,
	TranscodeMax320: 320,
}

// TranscodeSchemes lists every scheme in ascending bit rate order.
func TranscodeSchemes() []TranscodeScheme {
	return []TranscodeScheme{
		TranscodeOff, TranscodeMax32, TranscodeMax40, TranscodeMax48, TranscodeMax56,
		TranscodeMax64, TranscodeMax80, TranscodeMax96, TranscodeMax112, TranscodeMax128,
		TranscodeMax160, TranscodeMax192, TranscodeMax224, TranscodeMax256, TranscodeMax320,
	}
}

// MaxBitRate is the cap in kbps; 0 means unlimited.
func (s TranscodeScheme) MaxBitRate() int {
	return transcodeSchemeBitRates[s]
}

func ParseTranscodeScheme(name string) (TranscodeScheme, error) {
	s := TranscodeScheme(name)
	if _, ok := transcodeSchemeBitRates[s]; !ok {
		return "", fmt.Errorf("unknown transcode scheme %q", name)
	}
	return s, nil
}

// Technology is how the player consumes streams.
type Technology string

const (
	TechnologyWeb                  Technology = "WEB"
	TechnologyExternal             Technology = "EXTERNAL"
	TechnologyExternalWithPlaylist Technology = "EXTERNAL_WITH_PLAYLIST"
	TechnologyJavaApplet           Technology = "JAVA_APPLET"
)

func Technologies() []Technology {
	return []Technology{TechnologyWeb, TechnologyExternal, TechnologyExternalWithPlaylist, TechnologyJavaApplet}
}

func ParseTechnology(name string) (Technology, error) {
	for _, t := range Technologies() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown player technology %q", name)
}
