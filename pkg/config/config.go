package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine struct {
		EmailDelay     time.Duration `yaml:"email_delay"`      // 邮件分析模拟耗时
		PacketDelay    time.Duration `yaml:"packet_delay"`     // 流量分析模拟耗时
		MatchTimeout   time.Duration `yaml:"match_timeout"`    // 单条规则求值超时，只在CEL推导式中生效；正则走RE2线性匹配，开销由max_input_length限制
		MaxInputLength int           `yaml:"max_input_length"` // 参与匹配的最大字节数
	} `yaml:"engine"`

	Generator struct {
		Seed          *uint64       `yaml:"seed"`           // 固定随机种子，为空时每次随机
		WarningChance float64       `yaml:"warning_chance"` // 随机升级为WARNING的概率
		TimestampStep time.Duration `yaml:"timestamp_step"` // 相邻合成数据包的时间间隔
	} `yaml:"generator"`

	RuleEngine struct {
		RuleDirectory string `yaml:"rule_directory"` // 为空时使用内置规则表
	} `yaml:"rule_engine"`

	API struct {
		Host          string `yaml:"host"`
		Port          string `yaml:"port"`
		ShareBaseURL  string `yaml:"share_base_url"` // 分享链接前缀，默认指向本服务的 GET /packet-analysis
		MaxBodyLength int    `yaml:"max_body_length"`
		Debug         bool   `yaml:"debug"` // 错误响应是否带原始错误
	} `yaml:"api"`

	Pipeline struct {
		WorkerCount   int    `yaml:"worker_count"`
		BufferSize    int    `yaml:"buffer_size"`
		AlertEndpoint string `yaml:"alert_endpoint"` // 高危报告的告警上报地址，为空不上报
	} `yaml:"pipeline"`

	Log struct {
		Level      string `yaml:"level"`
		Dir        string `yaml:"dir"`
		Filename   string `yaml:"filename"`
		MaxAge     int    `yaml:"max_age"`     // 小时
		RotateTime int    `yaml:"rotate_time"` // 小时
	} `yaml:"log"`
}

// Default 返回带默认值的配置，LoadConfig 在其基础上覆盖文件中出现的字段
func Default() *Config {
	cfg := &Config{}
	cfg.Engine.EmailDelay = 1000 * time.Millisecond
	cfg.Engine.PacketDelay = 1200 * time.Millisecond
	cfg.Engine.MatchTimeout = 50 * time.Millisecond
	cfg.Engine.MaxInputLength = 64 * 1024
	cfg.Generator.WarningChance = 0.2
	cfg.Generator.TimestampStep = 10 * time.Millisecond
	cfg.API.Host = "0.0.0.0"
	cfg.API.Port = "8080"
	cfg.API.ShareBaseURL = "http://localhost:8080/packet-analysis"
	cfg.API.MaxBodyLength = 1 << 20
	cfg.Pipeline.WorkerCount = 4
	cfg.Pipeline.BufferSize = 100
	cfg.Log.Level = "INFO"
	cfg.Log.Dir = "logs"
	cfg.Log.Filename = "threat_training_engine.log"
	cfg.Log.MaxAge = 24
	cfg.Log.RotateTime = 1
	return cfg
}

func (c *Config) Validate() error {
	if c.Engine.EmailDelay < 0 || c.Engine.PacketDelay < 0 {
		return fmt.Errorf("analysis delay must not be negative")
	}
	if c.Engine.MatchTimeout <= 0 {
		return fmt.Errorf("match timeout must be positive")
	}
	if c.Engine.MaxInputLength <= 0 {
		return fmt.Errorf("max input length must be positive")
	}
	if c.Generator.WarningChance < 0 || c.Generator.WarningChance > 1 {
		return fmt.Errorf("warning chance must be within [0, 1]")
	}
	if c.Generator.TimestampStep <= 0 {
		return fmt.Errorf("timestamp step must be positive")
	}
	if c.Pipeline.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.Pipeline.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive")
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 文件中显式写出的零值保留，未出现的字段沿用默认值
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
