package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("TOOLSYNC_MANIFEST", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.manifestPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.manifestPath)
	}

	opts, err = parseCLIFlags([]string{"--manifest", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.manifestPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.manifestPath)
	}
}

func TestRunCheckManifestSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{manifestPath: manifestFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckManifestFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{manifestPath: manifestFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效清单应返回非零退出码")
	}
}

func TestRunDryRunListsResources(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{manifestPath: manifestFixture(t, "valid.toml"), dryRun: true})
	if code != 0 {
		t.Fatalf("dry-run 应成功退出，得到 %d", code)
	}
	out := stdOutBuffer().String()
	if !strings.Contains(out, "pitest") || !strings.Contains(out, "junit") {
		t.Fatalf("dry-run 输出应包含所有资源名，得到: %s", out)
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOut.(*bytes.Buffer).String(), "toolsync") {
		t.Fatalf("version 输出应包含 toolsync 标识")
	}
}
