package processor

import "github.com/rshravankumar10-design/threat_training_engine/pkg/types"

const (
	MaxScore = 100

	EmailPhishingThreshold   = 60
	EmailSuspiciousThreshold = 30

	PacketIntrusionThreshold  = 70
	PacketSuspiciousThreshold = 40
)

// 流量结论对应的展示文案
const (
	PatternMalicious  = "MALICIOUS - IMMEDIATE ACTION REQUIRED"
	PatternSuspicious = "SUSPICIOUS - REQUIRES INVESTIGATION"
	PatternClean      = "CLEAN - NO THREATS DETECTED"
)

// ClampScore 把原始分限制在 [0, 100]
func ClampScore(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > MaxScore {
		return MaxScore
	}
	return raw
}

func ClassifyEmail(score int) types.EmailVerdict {
	switch {
	case score >= EmailPhishingThreshold:
		return types.EmailPhishing
	case score >= EmailSuspiciousThreshold:
		return types.EmailSuspicious
	default:
		return types.EmailSafe
	}
}

// ClassifyPacket 返回流量结论和对应的流量模式文案
func ClassifyPacket(score int) (types.PacketVerdict, string) {
	switch {
	case score >= PacketIntrusionThreshold:
		return types.PacketIntrusion, PatternMalicious
	case score >= PacketSuspiciousThreshold:
		return types.PacketSuspicious, PatternSuspicious
	default:
		return types.PacketNormal, PatternClean
	}
}
