package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法清单进入安装流程。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("清单为空")
	}

	g := c.Global
	if g.InstallRoot == "" {
		return newFieldError("Global.InstallRoot", "不能为空")
	}
	if g.DownloadTimeout.DurationValue() <= 0 {
		return newFieldError("Global.DownloadTimeout", "必须大于 0")
	}

	if len(c.Resources) == 0 {
		return errors.New("至少需要配置一个 Resource")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Resources {
		res := &c.Resources[i]
		if res.Name == "" {
			return newFieldError("Resource[].Name", "不能为空")
		}
		if _, exists := seenNames[res.Name]; exists {
			return newFieldError(resourceField(res.Name, "Name"), "重复")
		}
		seenNames[res.Name] = struct{}{}

		if err := validateResourceURL(res.URL); err != nil {
			return fmt.Errorf("%s: %w", resourceField(res.Name, "URL"), err)
		}
		if res.Dir == "" {
			return newFieldError(resourceField(res.Name, "Dir"), "不能为空")
		}
		if res.LocalName != "" && strings.ContainsAny(res.LocalName, "/\\") {
			return newFieldError(resourceField(res.Name, "LocalName"), "不允许包含路径分隔符")
		}
		if !res.Archive && res.ExtractDir != "" {
			return newFieldError(resourceField(res.Name, "ExtractDir"), "仅 Archive 资源可设置")
		}
	}

	return nil
}

func validateResourceURL(raw string) error {
	if raw == "" {
		return errors.New("URL 不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("URL 非法: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("仅支持 http/https")
	}
	if parsed.Host == "" {
		return errors.New("URL 缺少主机名")
	}
	return nil
}
