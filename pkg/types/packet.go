package types

import "time"

// Domain 分析领域
type Domain string

const (
	DomainEmail  Domain = "email"
	DomainPacket Domain = "packet"
)

// Valid 判断领域是否受支持
func (d Domain) Valid() bool {
	return d == DomainEmail || d == DomainPacket
}

// EmailVerdict 邮件分析结论
type EmailVerdict string

const (
	EmailSafe       EmailVerdict = "SAFE"
	EmailSuspicious EmailVerdict = "SUSPICIOUS"
	EmailPhishing   EmailVerdict = "PHISHING"
)

// PacketVerdict 流量分析结论
type PacketVerdict string

const (
	PacketNormal     PacketVerdict = "NORMAL"
	PacketSuspicious PacketVerdict = "SUSPICIOUS"
	PacketIntrusion  PacketVerdict = "INTRUSION"
)

// ThreatLevel 合成数据包的威胁等级
type ThreatLevel string

const (
	ThreatSafe     ThreatLevel = "SAFE"
	ThreatWarning  ThreatLevel = "WARNING"
	ThreatCritical ThreatLevel = "CRITICAL"
)

// SyntheticPacket 展示用的伪造数据包记录，不对应任何真实报文
type SyntheticPacket struct {
	Number      int         `json:"number"`
	Timestamp   string      `json:"timestamp"`
	SrcAddr     string      `json:"srcAddr"`
	DstAddr     string      `json:"dstAddr"`
	Protocol    string      `json:"protocol"`
	Length      int         `json:"length"`
	Info        string      `json:"info"`
	ThreatLevel ThreatLevel `json:"threatLevel"`
}

// ScoreContribution 拆分总分来源，规则得分与合成数据包加分分开记录
type ScoreContribution struct {
	RuleScore      int `json:"ruleScore"`      // 规则命中的原始得分
	SyntheticBonus int `json:"syntheticBonus"` // 非SAFE合成数据包带来的加分
	NonSafePackets int `json:"nonSafePackets"` // 非SAFE合成数据包数量
}

// EmailResult 邮件分析结果
type EmailResult struct {
	AnalysisID    string       `json:"analysisId"`
	TotalScore    int          `json:"totalScore"`
	Verdict       EmailVerdict `json:"verdict"`
	MatchedLabels []string     `json:"matchedLabels"`
	AnalyzedAt    time.Time    `json:"analyzedAt"`
}

// PacketResult 流量分析结果
type PacketResult struct {
	AnalysisID     string            `json:"analysisId"`
	TotalScore     int               `json:"totalScore"`
	Verdict        PacketVerdict     `json:"verdict"`
	MatchedLabels  []string          `json:"matchedLabels"`
	TrafficPattern string            `json:"trafficPattern"`
	Packets        []SyntheticPacket `json:"packets"`
	Contribution   ScoreContribution `json:"contribution"`
	AnalyzedAt     time.Time         `json:"analyzedAt"`
}

// Sample 批量回放中的一条训练样本
type Sample struct {
	ID     string `json:"id" yaml:"id"`
	Domain Domain `json:"domain" yaml:"domain"`
	Text   string `json:"text" yaml:"text"`
}

// Report 批量回放中单条样本的分析报告
type Report struct {
	SampleID string        `json:"sampleId"`
	Domain   Domain        `json:"domain"`
	Email    *EmailResult  `json:"email,omitempty"`
	Packet   *PacketResult `json:"packet,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Stage 表示分析流水线的处理阶段
type Stage int

const (
	StageSampleDecoding Stage = iota + 1 //样本解码
	StageAnalysis                        //规则评分与结论
	StageReportWriting                   //报告输出
)
