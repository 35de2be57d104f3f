package processor

import (
	"testing"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 0, ClampScore(0))
	assert.Equal(t, 42, ClampScore(42))
	assert.Equal(t, 100, ClampScore(100))
	assert.Equal(t, 100, ClampScore(1000))
}

func TestClassifyEmailBoundaries(t *testing.T) {
	testCases := []struct {
		score int
		want  types.EmailVerdict
	}{
		{0, types.EmailSafe},
		{29, types.EmailSafe},
		{30, types.EmailSuspicious},
		{59, types.EmailSuspicious},
		{60, types.EmailPhishing},
		{100, types.EmailPhishing},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, ClassifyEmail(tc.score), "score %d", tc.score)
	}
}

func TestClassifyPacketBoundaries(t *testing.T) {
	testCases := []struct {
		score       int
		wantVerdict types.PacketVerdict
		wantPattern string
	}{
		{0, types.PacketNormal, PatternClean},
		{39, types.PacketNormal, PatternClean},
		{40, types.PacketSuspicious, PatternSuspicious},
		{69, types.PacketSuspicious, PatternSuspicious},
		{70, types.PacketIntrusion, PatternMalicious},
		{100, types.PacketIntrusion, PatternMalicious},
	}
	for _, tc := range testCases {
		verdict, pattern := ClassifyPacket(tc.score)
		assert.Equal(t, tc.wantVerdict, verdict, "score %d", tc.score)
		assert.Equal(t, tc.wantPattern, pattern, "score %d", tc.score)
	}
}

// 分数增加时结论严重程度不下降
func TestClassifyMonotonic(t *testing.T) {
	emailRank := map[types.EmailVerdict]int{types.EmailSafe: 0, types.EmailSuspicious: 1, types.EmailPhishing: 2}
	packetRank := map[types.PacketVerdict]int{types.PacketNormal: 0, types.PacketSuspicious: 1, types.PacketIntrusion: 2}

	prevEmail, prevPacket := 0, 0
	for score := 0; score <= MaxScore; score++ {
		e := emailRank[ClassifyEmail(score)]
		p, _ := ClassifyPacket(score)
		assert.GreaterOrEqual(t, e, prevEmail, "email score %d", score)
		assert.GreaterOrEqual(t, packetRank[p], prevPacket, "packet score %d", score)
		prevEmail, prevPacket = e, packetRank[p]
	}
}
