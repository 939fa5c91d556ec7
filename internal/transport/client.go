package transport

import (
	"net"
	"net/http"
	"time"
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewDownloadClient 返回共享 http.Client，用于所有资源下载请求。
// Client 本身不设置 Timeout：首次尝试的时间上限由调用方通过 context
// deadline 控制，重试阶段则保持无界直到传输层自行放弃。
func NewDownloadClient() *http.Client {
	return &http.Client{
		Transport: defaultTransport.Clone(),
	}
}
