package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/toolsync/toolsync/internal/config"
	"github.com/toolsync/toolsync/internal/fetcher"
	"github.com/toolsync/toolsync/internal/installer"
	"github.com/toolsync/toolsync/internal/logging"
	"github.com/toolsync/toolsync/internal/transport"
	"github.com/toolsync/toolsync/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	manifestPath string
	checkOnly    bool
	dryRun       bool
	showVersion  bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.manifestPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载清单失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_manifest", opts.manifestPath)
		fields["resources"] = len(cfg.Resources)
		fields["names"] = config.ResourceNames(cfg.Resources)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("清单校验通过")
		return 0
	}

	if opts.dryRun {
		for _, res := range cfg.Resources {
			fmt.Fprintf(stdOut, "%s\t%s\t-> %s\n", res.Name, res.URL, res.Dir)
		}
		return 0
	}

	fields := logging.BaseFields("startup", opts.manifestPath)
	fields["resources"] = len(cfg.Resources)
	fields["install_root"] = cfg.Global.InstallRoot
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("清单加载完成")

	client := transport.NewDownloadClient()
	f := fetcher.New(client, logger, cfg.Global.DownloadTimeout.DurationValue())
	inst := installer.New(f, logger)

	if err := inst.Run(context.Background(), cfg); err != nil {
		fmt.Fprintf(stdErr, "安装中止: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的清单路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("toolsync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		manifestFlag string
		checkOnly    bool
		dryRun       bool
		showVer      bool
	)

	fs.StringVar(&manifestFlag, "manifest", "", "清单文件路径（默认 ./manifest.toml，可被 TOOLSYNC_MANIFEST 覆盖）")
	fs.BoolVar(&checkOnly, "check-manifest", false, "仅校验清单后退出")
	fs.BoolVar(&dryRun, "dry-run", false, "仅打印安装计划，不执行下载")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("TOOLSYNC_MANIFEST")
	if manifestFlag != "" {
		path = manifestFlag
	}
	if path == "" {
		path = "manifest.toml"
	}

	return cliOptions{
		manifestPath: path,
		checkOnly:    checkOnly,
		dryRun:       dryRun,
		showVersion:  showVer,
	}, nil
}
