package installer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/toolsync/toolsync/internal/config"
	"github.com/toolsync/toolsync/internal/fetcher"
	"github.com/toolsync/toolsync/internal/logging"
)

// Installer 按清单顺序逐个安装资源：严格串行，单个资源成功或致命失败
// 后才进入下一个，首个致命错误立即中止整轮安装。
type Installer struct {
	fetcher *fetcher.Fetcher
	logger  *logrus.Logger
}

// New 构造 Installer，fetcher 与 logger 均为必填。
func New(f *fetcher.Fetcher, logger *logrus.Logger) *Installer {
	return &Installer{
		fetcher: f,
		logger:  logger,
	}
}

// Run 执行整份清单。返回的错误始终包含失败资源的 URL，方便操作者定位。
func (i *Installer) Run(ctx context.Context, cfg *config.Config) error {
	runID := uuid.NewString()

	for _, res := range cfg.Resources {
		started := time.Now()

		if err := os.MkdirAll(res.Dir, 0o755); err != nil {
			i.logFailure(res, runID, started, err)
			return fmt.Errorf("创建目录 %s 失败: %w", res.Dir, err)
		}

		req := fetcher.Request{
			URL:        res.URL,
			Dir:        res.Dir,
			LocalName:  res.LocalName,
			Archive:    res.Archive,
			ExtractDir: res.ExtractDir,
		}

		var result *fetcher.Result
		var err error
		if res.Archive {
			result, err = i.fetcher.FetchAndExtract(ctx, req)
		} else {
			result, err = i.fetcher.Fetch(ctx, req)
		}
		if err != nil {
			i.logFailure(res, runID, started, err)
			return fmt.Errorf("安装 %s 失败 (%s): %w", res.Name, res.URL, err)
		}

		i.logSuccess(res, runID, started, result)
	}

	i.logger.WithFields(logrus.Fields{
		"action":    "install_complete",
		"run_id":    runID,
		"resources": len(cfg.Resources),
	}).Info("清单安装完成")
	return nil
}

func (i *Installer) logSuccess(res config.ResourceConfig, runID string, started time.Time, result *fetcher.Result) {
	fields := logging.FetchFields(res.Name, res.URL, result.FromCache)
	fields["action"] = "fetch"
	fields["run_id"] = runID
	fields["path"] = result.Path
	fields["extracted"] = result.Extracted
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	i.logger.WithFields(fields).Info("fetch_complete")
}

func (i *Installer) logFailure(res config.ResourceConfig, runID string, started time.Time, err error) {
	fields := logging.FetchFields(res.Name, res.URL, false)
	fields["action"] = "fetch"
	fields["run_id"] = runID
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	fields["error"] = err.Error()
	i.logger.WithFields(fields).Error("fetch_failed")
}
