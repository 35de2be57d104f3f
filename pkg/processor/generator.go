package processor

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
)

const (
	MinSyntheticPackets = 5
	MaxSyntheticPackets = 15

	minPacketLength   = 64
	packetLengthRange = 1500 // 长度取值 [64, 1563]
	infoMaxRunes      = 50

	DefaultInfo          = "Network traffic data"
	DefaultWarningChance = 0.2
	DefaultTimestampStep = 10 * time.Millisecond

	// NonSafePacketBonus 每个非SAFE合成数据包的加分
	NonSafePacketBonus = 15
)

var (
	ipv4Pattern = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`)

	protocols = []string{"TCP", "UDP", "HTTP", "HTTPS", "DNS", "FTP", "SSH", "ICMP"}

	fallbackSources      = []string{"192.168.1.105", "10.0.0.23", "172.16.4.12"}
	fallbackDestinations = []string{"203.0.113.45", "198.51.100.7", "93.184.216.34"}

	criticalKeywords = []string{"malware", "trojan", "backdoor"}
	warningKeywords  = []string{"malware", "direct", "trojan", "exploit"}
)

type GeneratorOptions struct {
	Seed          *uint64       // 非空时每次生成都从同一种子开始，结果可复现
	WarningChance float64       // 随机升级为WARNING的概率
	TimestampStep time.Duration // 相邻记录的相对时间间隔
}

// PacketGenerator 根据输入文本伪造展示用的数据包列表
// 每次调用使用独立的随机源，可并发调用
type PacketGenerator struct {
	opts GeneratorOptions
}

func NewPacketGenerator(opts GeneratorOptions) *PacketGenerator {
	if opts.WarningChance < 0 {
		opts.WarningChance = 0
	}
	if opts.TimestampStep <= 0 {
		opts.TimestampStep = DefaultTimestampStep
	}
	return &PacketGenerator{opts: opts}
}

func (g *PacketGenerator) newRand() *rand.Rand {
	if g.opts.Seed != nil {
		return rand.New(rand.NewPCG(*g.opts.Seed, *g.opts.Seed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Generate 生成合成数据包
// suspicious 为 false 时不做随机升级，只按关键字判定威胁等级
// 输入没有非空行时返回空列表
func (g *PacketGenerator) Generate(text string, suspicious bool) []types.SyntheticPacket {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return []types.SyntheticPacket{}
	}

	sources, destinations := addressPools(text)
	baseLevel := keywordThreatLevel(text)
	rng := g.newRand()

	count := min(max(len(lines), MinSyntheticPackets), MaxSyntheticPackets)
	packets := make([]types.SyntheticPacket, 0, count)
	for i := 0; i < count; i++ {
		// 每条记录固定消耗两次随机数，保证同一种子下序列一致
		length := minPacketLength + rng.IntN(packetLengthRange)
		draw := rng.Float64()

		level := baseLevel
		if level == types.ThreatSafe && suspicious && draw < g.opts.WarningChance {
			level = types.ThreatWarning
		}

		src := sources[i%len(sources)]
		dst := destinations[i%len(destinations)]
		if src == dst {
			dst = destinations[(i+1)%len(destinations)]
		}

		info := DefaultInfo
		if i < len(lines) {
			info = truncateRunes(lines[i], infoMaxRunes)
		}

		packets = append(packets, types.SyntheticPacket{
			Number:      i + 1,
			Timestamp:   formatRelativeTimestamp(time.Duration(i) * g.opts.TimestampStep),
			SrcAddr:     src,
			DstAddr:     dst,
			Protocol:    protocols[i%len(protocols)],
			Length:      length,
			Info:        info,
			ThreatLevel: level,
		})
	}
	return packets
}

// CountNonSafe 统计非SAFE的记录数
func CountNonSafe(packets []types.SyntheticPacket) int {
	n := 0
	for _, p := range packets {
		if p.ThreatLevel != types.ThreatSafe {
			n++
		}
	}
	return n
}

// DirectConnectionLabel 非SAFE记录汇总后的检测标签
func DirectConnectionLabel(n int) string {
	return fmt.Sprintf("%d Direct Connection(s) Detected", n)
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ExtractIPv4 按首次出现顺序提取去重后的IPv4地址
func ExtractIPv4(text string) []string {
	seen := make(map[string]bool)
	var ips []string
	for _, ip := range ipv4Pattern.FindAllString(text, -1) {
		if !seen[ip] {
			seen[ip] = true
			ips = append(ips, ip)
		}
	}
	return ips
}

// addressPools 返回源地址池和目的地址池
func addressPools(text string) ([]string, []string) {
	ips := ExtractIPv4(text)
	if len(ips) < 2 {
		return fallbackSources, fallbackDestinations
	}

	reversed := make([]string, len(ips))
	for i, ip := range ips {
		reversed[len(ips)-1-i] = ip
	}
	return ips, reversed
}

func keywordThreatLevel(text string) types.ThreatLevel {
	lower := strings.ToLower(text)
	if containsAny(lower, criticalKeywords) {
		return types.ThreatCritical
	}
	if containsAny(lower, warningKeywords) {
		return types.ThreatWarning
	}
	return types.ThreatSafe
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// formatRelativeTimestamp 以抓包起点为零点的相对时间，秒，6位小数
func formatRelativeTimestamp(offset time.Duration) string {
	return fmt.Sprintf("%.6f", offset.Seconds())
}
