package media

import (
	"fmt"
	"strings"
)

// Tier is the inferred resolution class of a candidate. Higher is better.
type Tier int

const (
	TierDefault Tier = iota
	TierUnknown
	Tier360
	Tier480
	Tier720
	Tier1080
)

func (t Tier) String() string {
	switch t {
	case TierDefault:
		return "default"
	case TierUnknown:
		return "unknown"
	case Tier360:
		return "360p"
	case Tier480:
		return "480p"
	case Tier720:
		return "720p"
	case Tier1080:
		return "1080p"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Channel names the signal that produced a candidate.
type Channel int

const (
	ChannelDOM Channel = iota
	ChannelScript
	ChannelNetwork
	ChannelStatic
)

func (c Channel) String() string {
	switch c {
	case ChannelDOM:
		return "dom"
	case ChannelScript:
		return "script"
	case ChannelNetwork:
		return "network"
	case ChannelStatic:
		return "static"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Candidate is one discovered media location.
type Candidate struct {
	Location      string
	Tier          Tier
	Channel       Channel
	LooksOriginal bool
	// Sequence is the order of discovery within one session.
	Sequence int
}

// NewCandidate builds a candidate, inferring its tier from the location and
// the key (JSON key, attribute hint) it was found under.
func NewCandidate(location, key string, channel Channel, sequence int) Candidate {
	tier, original := InferTier(location, key)
	return Candidate{
		Location:      location,
		Tier:          tier,
		Channel:       channel,
		LooksOriginal: original,
		Sequence:      sequence,
	}
}

var originalTokens = []string{"original", "no_watermark", "nowatermark", "master", "raw"}

var tierTokens = []struct {
	tier   Tier
	tokens []string
}{
	{Tier1080, []string{"1080", "hd", "high"}},
	{Tier720, []string{"720"}},
	{Tier480, []string{"480"}},
	{Tier360, []string{"360"}},
}

var mediaKeyTokens = []string{"video", "media", "source", "src", "url", "play", "stream"}

// InferTier classifies a location by the tokens found in it and its key.
// Originality markers always rank as 1080 and flag the candidate as
// looking like the unwatermarked original.
func InferTier(location, key string) (Tier, bool) {
	text := strings.ToLower(location + " " + key)

	if containsAny(text, originalTokens) {
		return Tier1080, true
	}
	for _, tt := range tierTokens {
		if containsAny(text, tt.tokens) {
			return tt.tier, false
		}
	}
	if containsAny(strings.ToLower(key), mediaKeyTokens) {
		return TierUnknown, false
	}
	return TierDefault, false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
