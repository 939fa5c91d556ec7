package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 清单路径等基础字段，便于不同入口复用。
func BaseFields(action, manifestPath string) logrus.Fields {
	return logrus.Fields{
		"action":       action,
		"manifestPath": manifestPath,
	}
}

// FetchFields 提供资源名/URL/命中状态字段，供安装流程日志复用。
func FetchFields(resource, url string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"resource":  resource,
		"url":       url,
		"cache_hit": cacheHit,
	}
}
