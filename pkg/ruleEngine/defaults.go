package ruleEngine

import "github.com/rshravankumar10-design/threat_training_engine/pkg/types"

// DefaultEmailTable 内置的钓鱼邮件规则表
func DefaultEmailTable() *RuleTable {
	return &RuleTable{
		TableID: "email_default",
		Domain:  types.DomainEmail,
		Rules: []*Rule{
			{RuleID: "email_urgency", State: StateEnable, Weight: 15,
				Pattern:     `urgent|verify|confirm|update.*account|click.*link|act.*now`,
				Label:       "Contains urgency language",
				Description: "紧迫性措辞"},
			{RuleID: "email_short_url", State: StateEnable, Weight: 20,
				Pattern:     `bit\.ly|tinyurl|short\.link`,
				Label:       "Uses suspicious shortened URLs",
				Description: "短链接"},
			{RuleID: "email_foreign_domain", State: StateEnable, Weight: 25,
				Pattern:     `from:.*@.*\.ru|\.cn|\.tk`,
				Label:       "Foreign domain origin detected",
				Description: "境外域名发件人"},
			{RuleID: "email_credential", State: StateEnable, Weight: 30,
				Pattern:     `verify.*password|confirm.*identity`,
				Label:       "Requests account verification",
				Description: "索要凭证或身份验证"},
			{RuleID: "email_prize", State: StateEnable, Weight: 35,
				Pattern:     `congratulations.*won|claim.*prize|free.*money`,
				Label:       "Prize/reward claim detected",
				Description: "中奖或奖励诱导"},
		},
	}
}

// DefaultPacketTable 内置的入侵特征规则表
func DefaultPacketTable() *RuleTable {
	return &RuleTable{
		TableID: "packet_default",
		Domain:  types.DomainPacket,
		Rules: []*Rule{
			{RuleID: "packet_dos", State: StateEnable, Weight: 40,
				Pattern:     `syn flood|dos|ddos`,
				Label:       "DoS/DDoS Attack Signature",
				Description: "拒绝服务攻击特征"},
			{RuleID: "packet_port_scan", State: StateEnable, Weight: 35,
				Pattern:     `port scan|nmap|masscan`,
				Label:       "Port Scanning Activity",
				Description: "端口扫描工具"},
			{RuleID: "packet_malware", State: StateEnable, Weight: 50,
				Pattern:     `malware|trojan|backdoor`,
				Label:       "Malware Signature Detected",
				Description: "恶意软件或后门"},
			{RuleID: "packet_web_exploit", State: StateEnable, Weight: 45,
				Pattern:     `sql injection|xss|rce`,
				Label:       "Web Exploit Detected",
				Description: "Web漏洞利用"},
			{RuleID: "packet_brute_force", State: StateEnable, Weight: 30,
				Pattern:     `brute force|password attack|failed.*auth`,
				Label:       "Brute Force Attempt",
				Description: "暴力破解或认证失败"},
			{RuleID: "packet_dns_tunnel", State: StateEnable, Weight: 40,
				Pattern:     `dns exfiltration|dns tunneling`,
				Label:       "DNS Tunneling Detected",
				Description: "DNS隧道"},
			{RuleID: "packet_anomaly", State: StateEnable, Weight: 25,
				Pattern:     `unusual.*traffic|anomaly|suspicious.*protocol`,
				Label:       "Anomalous Traffic Pattern",
				Description: "通用异常流量"},
		},
	}
}
