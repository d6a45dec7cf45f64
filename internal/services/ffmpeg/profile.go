package ffmpeg

// Profile carries the x265 quality/speed tradeoff parameters for one of
// the named encoder presets.
type Profile struct {
	Name       string
	Preset     string
	X265Params string
	CRF        string
}

var profiles = map[string]Profile{
	"slow": {
		Name:       "slow",
		Preset:     "slow",
		X265Params: "aq-mode=3:bframes=8:ref=6:psy-rd=2:psy-rdoq=1.5:rd=4:no-sao=0",
		CRF:        "24",
	},
	"medium": {
		Name:       "medium",
		Preset:     "medium",
		X265Params: "aq-mode=3:bframes=6:ref=4:psy-rd=1.5:rd=3",
		CRF:        "26",
	},
	"fast": {
		Name:       "fast",
		Preset:     "fast",
		X265Params: "aq-mode=2:bframes=4:ref=3",
		CRF:        "28",
	},
}

// ProfileByName returns the named encoder profile.
func ProfileByName(name string) (Profile, bool) {
	profile, ok := profiles[name]
	return profile, ok
}
