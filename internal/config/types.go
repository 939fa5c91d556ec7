package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "300s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述全局运行时行为，所有资源条目共享同一份参数。
type GlobalConfig struct {
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	InstallRoot     string   `mapstructure:"InstallRoot"`
	DownloadTimeout Duration `mapstructure:"DownloadTimeout"`
}

// ResourceConfig 描述单个待安装资源：远端 URL、落盘目录与解压行为。
type ResourceConfig struct {
	Name       string `mapstructure:"Name"`
	URL        string `mapstructure:"URL"`
	Dir        string `mapstructure:"Dir"`
	LocalName  string `mapstructure:"LocalName"`
	Archive    bool   `mapstructure:"Archive"`
	ExtractDir string `mapstructure:"ExtractDir"`
}

// Config 是 TOML 清单文件映射的整体结构。
type Config struct {
	Global    GlobalConfig     `mapstructure:",squash"`
	Resources []ResourceConfig `mapstructure:"Resource"`
}

// ResourceNames 返回清单中所有资源名，供日志与 CLI 摘要使用。
func ResourceNames(resources []ResourceConfig) []string {
	if len(resources) == 0 {
		return nil
	}
	result := make([]string, len(resources))
	for i, res := range resources {
		result[i] = res.Name
	}
	return result
}
