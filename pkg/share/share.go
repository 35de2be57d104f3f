// Package share 生成和解析流量分析的分享链接
package share

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
)

const (
	ParamData    = "data"
	ParamPackets = "packets" // 兼容旧链接
)

// EncodeQuery 把流量文本编码为查询串 data=<百分号编码>
func EncodeQuery(text string) string {
	return url.Values{ParamData: []string{text}}.Encode()
}

// BuildLink 基于基础地址生成分享链接
func BuildLink(baseURL, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", types.ErrEmptyInput
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse share base url %q: %w", baseURL, err)
	}
	u.RawQuery = EncodeQuery(text)
	return u.String(), nil
}

// DecodeQuery 按 data、packets 的顺序读取分享的流量文本
func DecodeQuery(values url.Values) (string, bool) {
	for _, key := range []string{ParamData, ParamPackets} {
		if text := values.Get(key); text != "" {
			return text, true
		}
	}
	return "", false
}

// ParseLink 从完整的分享链接中取出流量文本
func ParseLink(link string) (string, bool, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false, fmt.Errorf("parse share link: %w", err)
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", false, fmt.Errorf("parse share query: %w", err)
	}
	text, ok := DecodeQuery(values)
	return text, ok, nil
}
