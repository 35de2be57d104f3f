package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/processor"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/share"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/sink"
	"github.com/sirupsen/logrus"
)

const (
	captureContentType = "application/vnd.tcpdump.pcap"

	// DefaultSharePath 分享链接前缀未带路径时的回放路径
	DefaultSharePath = "/packet-analysis"
)

// AnalyzeRequest 分析请求
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// ShareResponse 分享链接响应
type ShareResponse struct {
	Link string `json:"link"`
}

// AnalysisService 分析服务
type AnalysisService struct {
	analyzer     *processor.Analyzer
	shareBaseURL string
}

// NewAnalysisService 创建一个新的分析服务
func NewAnalysisService(analyzer *processor.Analyzer, shareBaseURL string) *AnalysisService {
	return &AnalysisService{
		analyzer:     analyzer,
		shareBaseURL: shareBaseURL,
	}
}

// SharePath 分享链接前缀中的路径，本服务在该路径上回放分享链接
func (as *AnalysisService) SharePath() string {
	u, err := url.Parse(as.shareBaseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return DefaultSharePath
	}
	return strings.TrimSuffix(u.Path, "/")
}

// bindText 解析请求体，空文本在调用引擎前拒绝
func bindText(c echo.Context) (string, error) {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return "", NewInvalidRequestError(err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", NewEmptyInputError()
	}
	return req.Text, nil
}

func analysisError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewAnalysisCanceledError(err)
	}
	return NewInternalServerError(err)
}

// AnalyzeEmail 分析邮件文本
func (as *AnalysisService) AnalyzeEmail(c echo.Context) error {
	text, err := bindText(c)
	if err != nil {
		return HandleError(c, err)
	}

	result, err := as.analyzer.AnalyzeEmail(c.Request().Context(), text)
	if err != nil {
		return HandleError(c, analysisError(err))
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "邮件分析完成",
		Data:    result,
	})
}

// AnalyzePackets 分析流量文本
func (as *AnalysisService) AnalyzePackets(c echo.Context) error {
	text, err := bindText(c)
	if err != nil {
		return HandleError(c, err)
	}
	return as.analyzePackets(c, text)
}

// ReplayShared 从分享链接的查询参数中取出流量文本并自动分析
func (as *AnalysisService) ReplayShared(c echo.Context) error {
	text, ok := share.DecodeQuery(c.QueryParams())
	if !ok || strings.TrimSpace(text) == "" {
		return HandleError(c, NewEmptyInputError())
	}

	logrus.WithFields(logrus.Fields{
		"length":    len(text),
		"operation": "replay_shared",
	}).Debug("分享链接回放")

	return as.analyzePackets(c, text)
}

func (as *AnalysisService) analyzePackets(c echo.Context, text string) error {
	result, err := as.analyzer.AnalyzePackets(c.Request().Context(), text)
	if err != nil {
		return HandleError(c, analysisError(err))
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "流量分析完成",
		Data:    result,
	})
}

// CreateShareLink 生成流量分析的分享链接
func (as *AnalysisService) CreateShareLink(c echo.Context) error {
	text, err := bindText(c)
	if err != nil {
		return HandleError(c, err)
	}

	link, err := share.BuildLink(as.shareBaseURL, text)
	if err != nil {
		return HandleError(c, NewInternalServerError(err))
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "分享链接生成成功",
		Data:    ShareResponse{Link: link},
	})
}

// ExportCapture 分析流量文本并把合成数据包导出为pcap
func (as *AnalysisService) ExportCapture(c echo.Context) error {
	text, err := bindText(c)
	if err != nil {
		return HandleError(c, err)
	}

	result, err := as.analyzer.AnalyzePackets(c.Request().Context(), text)
	if err != nil {
		return HandleError(c, analysisError(err))
	}

	var buf bytes.Buffer
	if err := sink.WriteCapture(&buf, result.Packets, result.AnalyzedAt); err != nil {
		return HandleError(c, NewInternalServerError(err))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "capture-"+result.AnalysisID+".pcap"))
	c.Response().Header().Set("X-Analysis-Id", result.AnalysisID)
	c.Response().Header().Set("X-Verdict", string(result.Verdict))
	return c.Blob(http.StatusOK, captureContentType, buf.Bytes())
}

// GetStats 获取分析计数
func (as *AnalysisService) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "获取统计信息成功",
		Data:    as.analyzer.Metrics().GetStats(),
	})
}
