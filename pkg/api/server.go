package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/config"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
)

// Response 统一响应结构体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Server HTTP 服务器
type Server struct {
	echo *echo.Echo
	addr string
}

// NewServer 创建一个新的 HTTP 服务器
func NewServer(cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.API.MaxBodyLength > 0 {
		e.Use(middleware.BodyLimit(strconv.Itoa(cfg.API.MaxBodyLength)))
	}

	SetDebugMode(cfg.API.Debug)

	// 构建地址
	addr := fmt.Sprintf("%s:%s", cfg.API.Host, cfg.API.Port)

	return &Server{
		echo: e,
		addr: addr,
	}
}

// Start 启动 HTTP 服务器
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Stop 停止 HTTP 服务器
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// GetEcho 获取Echo实例
func (s *Server) GetEcho() *echo.Echo {
	return s.echo
}

// Addr 返回监听地址
func (s *Server) Addr() string {
	return s.addr
}

// RegisterAnalysisService 注册分析服务
func (s *Server) RegisterAnalysisService(as *AnalysisService) {
	g := s.echo.Group("/api/v1")
	g.POST("/analyze/email", as.AnalyzeEmail)     // 邮件分析
	g.POST("/analyze/packets", as.AnalyzePackets) // 流量分析
	g.GET("/analyze/packets", as.ReplayShared)    // 分享链接回放
	g.POST("/share", as.CreateShareLink)          // 生成分享链接
	g.POST("/capture", as.ExportCapture)          // 导出合成数据包pcap
	s.echo.GET("/stats", as.GetStats)             // 分析计数
	s.echo.GET(as.SharePath(), as.ReplayShared)   // 分享链接直接在本服务打开
}

// RegisterRuleService 注册规则服务
func (s *Server) RegisterRuleService(rs *RuleService) {
	s.echo.GET("/ruleEngine/configs", rs.GetRuleConfigs)         // 获取所有规则配置
	s.echo.GET("/ruleEngine/configs/:rule_id", rs.GetRuleConfig) // 获取指定规则配置
	s.echo.POST("/ruleEngine/validate", rs.ValidateRule)         // 验证规则有效性
}

// RegisterMetrics 注册Prometheus指标
func (s *Server) RegisterMetrics(m *metrics.AnalyzerMetrics) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(metrics.NewCollector(m)); err != nil {
		return fmt.Errorf("register metrics collector: %w", err)
	}
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	return nil
}
