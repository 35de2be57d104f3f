package processor

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePacketCount(t *testing.T) {
	gen := NewPacketGenerator(GeneratorOptions{Seed: seedPtr(1)})

	testCases := []struct {
		name  string
		lines int
		want  int
	}{
		{"单行至少5条", 1, 5},
		{"5行", 5, 5},
		{"9行", 9, 9},
		{"15行", 15, 15},
		{"超过15行截断", 40, 15},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tc.lines; i++ {
				fmt.Fprintf(&b, "line %d\n\n", i)
			}
			packets := gen.Generate(b.String(), false)
			assert.Len(t, packets, tc.want)
		})
	}
}

func TestGenerateBlankInput(t *testing.T) {
	gen := NewPacketGenerator(GeneratorOptions{})
	assert.Empty(t, gen.Generate("", true))
	assert.Empty(t, gen.Generate("  \n\t\n", true))
}

func TestGenerateDeterministicFields(t *testing.T) {
	// 不固定种子时，序号、地址、协议仍然是确定的
	gen := NewPacketGenerator(GeneratorOptions{})
	text := "10.0.0.1 -> 10.0.0.2 SYN\n10.0.0.1 -> 10.0.0.3 ACK\n10.0.0.2 -> 10.0.0.1 FIN"

	packets := gen.Generate(text, false)
	require.Len(t, packets, 5)

	wantSrc := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.1", "10.0.0.2"}
	wantDst := []string{"10.0.0.3", "10.0.0.1", "10.0.0.1", "10.0.0.3", "10.0.0.1"}
	for i, p := range packets {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, protocols[i], p.Protocol)
		assert.Equal(t, wantSrc[i], p.SrcAddr, "packet %d", p.Number)
		assert.Equal(t, wantDst[i], p.DstAddr, "packet %d", p.Number)
		assert.NotEqual(t, p.SrcAddr, p.DstAddr)
		assert.GreaterOrEqual(t, p.Length, 64)
		assert.LessOrEqual(t, p.Length, 1563)
		assert.Equal(t, types.ThreatSafe, p.ThreatLevel)
	}

	assert.Equal(t, "10.0.0.1 -> 10.0.0.2 SYN", packets[0].Info)
	assert.Equal(t, DefaultInfo, packets[3].Info)
	assert.Equal(t, "0.000000", packets[0].Timestamp)
	assert.Equal(t, "0.010000", packets[1].Timestamp)
}

func TestGenerateFallbackPools(t *testing.T) {
	gen := NewPacketGenerator(GeneratorOptions{Seed: seedPtr(7)})

	packets := gen.Generate("only one address 192.168.0.1 here", false)
	require.Len(t, packets, 5)
	for i, p := range packets {
		assert.Equal(t, fallbackSources[i%len(fallbackSources)], p.SrcAddr)
		assert.Equal(t, fallbackDestinations[i%len(fallbackDestinations)], p.DstAddr)
	}
}

func TestExtractIPv4(t *testing.T) {
	text := "a 10.0.0.1 b 999.1.1.1 c 10.0.0.1 d 172.16.0.254:443 e 256.1.1.1 f 8.8.8.8"
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.254", "8.8.8.8"}, ExtractIPv4(text))
	assert.Empty(t, ExtractIPv4("no addresses"))
}

func TestGenerateThreatLevels(t *testing.T) {
	always := NewPacketGenerator(GeneratorOptions{Seed: seedPtr(3), WarningChance: 1})
	never := NewPacketGenerator(GeneratorOptions{Seed: seedPtr(3), WarningChance: 0})

	testCases := []struct {
		name       string
		gen        *PacketGenerator
		text       string
		suspicious bool
		want       types.ThreatLevel
	}{
		{"高危关键字", never, "malware backdoor trojan", false, types.ThreatCritical},
		{"高危关键字大写", never, "TROJAN dropper", false, types.ThreatCritical},
		{"可疑关键字", never, "direct connection to exploit kit", false, types.ThreatWarning},
		{"无关键字不可疑", always, "ordinary traffic", false, types.ThreatSafe},
		{"无关键字且可疑，必然升级", always, "ordinary traffic", true, types.ThreatWarning},
		{"无关键字且可疑，概率为0", never, "ordinary traffic", true, types.ThreatSafe},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, p := range tc.gen.Generate(tc.text, tc.suspicious) {
				assert.Equal(t, tc.want, p.ThreatLevel)
			}
		})
	}
}

// 同一输入同一种子生成的列表完全一致
func TestGenerateSeededReproducible(t *testing.T) {
	text := "10.1.1.1 -> 10.1.1.2 port scan\nnmap -sS 10.1.1.2\nunusual traffic burst"

	a := NewPacketGenerator(GeneratorOptions{Seed: seedPtr(2024), WarningChance: 0.5})
	b := NewPacketGenerator(GeneratorOptions{Seed: seedPtr(2024), WarningChance: 0.5})

	first := a.Generate(text, true)
	assert.Equal(t, first, a.Generate(text, true))
	assert.Equal(t, first, b.Generate(text, true))

	other := NewPacketGenerator(GeneratorOptions{Seed: seedPtr(2025), WarningChance: 0.5})
	lengths := func(ps []types.SyntheticPacket) []int {
		var out []int
		for _, p := range ps {
			out = append(out, p.Length)
		}
		return out
	}
	assert.NotEqual(t, lengths(first), lengths(other.Generate(text, true)))
}

func TestGenerateConcurrent(t *testing.T) {
	gen := NewPacketGenerator(GeneratorOptions{WarningChance: 0.5})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			packets := gen.Generate("syn flood from 10.0.0.9 to 10.0.0.10", true)
			assert.Len(t, packets, 5)
		}()
	}
	wg.Wait()
}

func TestInfoTruncatedToRunes(t *testing.T) {
	gen := NewPacketGenerator(GeneratorOptions{Seed: seedPtr(1)})
	line := strings.Repeat("流", 80)
	packets := gen.Generate(line, false)
	require.NotEmpty(t, packets)
	assert.Equal(t, strings.Repeat("流", 50), packets[0].Info)
}

func TestCountNonSafeAndLabel(t *testing.T) {
	packets := []types.SyntheticPacket{
		{ThreatLevel: types.ThreatSafe},
		{ThreatLevel: types.ThreatWarning},
		{ThreatLevel: types.ThreatCritical},
	}
	assert.Equal(t, 2, CountNonSafe(packets))
	assert.Equal(t, "2 Direct Connection(s) Detected", DirectConnectionLabel(2))
}
