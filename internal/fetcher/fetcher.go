package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toolsync/toolsync/internal/archive"
	"github.com/toolsync/toolsync/internal/logging"
)

// Request 描述一次下载：远端 URL、落盘目录与可选的本地文件名/解包目录。
// 每次调用独立构造，不可变。
type Request struct {
	URL        string
	Dir        string
	LocalName  string
	Archive    bool
	ExtractDir string
}

// Result 返回本地文件路径、是否命中缓存以及是否完成解包。
type Result struct {
	Path      string
	FromCache bool
	Extracted bool
}

// Fetcher 负责把远端资源可靠地落到本地磁盘：命中缓存时跳过传输，
// 失败时清理半成品并按固定策略重试一次。
type Fetcher struct {
	client  *http.Client
	logger  *logrus.Logger
	timeout time.Duration
	now     func() time.Time
}

// New 构造 Fetcher。timeout 仅约束首次尝试；重试阶段无界。
func New(client *http.Client, logger *logrus.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:  client,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// LocalPath 计算请求的落盘路径，文件名缺省取 URL 路径的 basename。
func (r Request) LocalPath() (string, error) {
	name := r.LocalName
	if name == "" {
		parsed, err := url.Parse(r.URL)
		if err != nil {
			return "", fmt.Errorf("解析 URL 失败: %w", err)
		}
		name = path.Base(parsed.Path)
		if name == "" || name == "/" || name == "." {
			return "", fmt.Errorf("无法从 URL 推导文件名: %s", r.URL)
		}
	}
	return filepath.Join(r.Dir, name), nil
}

// Fetch 确保本地存在一份新鲜副本。已有文件时发起条件请求，仅在远端
// 更新后才真正传输；超时或传输失败清理半成品后无条件重试一次，第二次
// 失败即为致命并携带 URL/路径/尝试序号返回。
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	localPath, err := req.LocalPath()
	if err != nil {
		return nil, err
	}

	conditional := false
	var localMod time.Time
	if info, statErr := os.Stat(localPath); statErr == nil && !info.IsDir() && info.Size() > 0 {
		conditional = true
		localMod = info.ModTime()
	}

	result, err := f.attempt(ctx, req, localPath, 1, conditional, localMod, true)
	if err == nil {
		return result, nil
	}
	if IsKind(err, KindIO) {
		// 磁盘错误重试无益，立即上抛。
		return nil, err
	}

	f.logRetry(req, err)

	// 重试：不限时、不带条件头，强制完整重新下载。
	result, retryErr := f.attempt(ctx, req, localPath, 2, false, time.Time{}, false)
	if retryErr != nil {
		return nil, retryErr
	}
	return result, nil
}

// FetchAndExtract 下载并解包归档。解包失败视为下载损坏：删除归档、
// 绕过缓存重新下载后再解包一次，第二次失败即为致命。
func (f *Fetcher) FetchAndExtract(ctx context.Context, req Request) (*Result, error) {
	result, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	extractDir := req.ExtractDir
	if extractDir == "" {
		extractDir = req.Dir
	}

	extractErr := archive.ExtractZip(result.Path, extractDir)
	if extractErr == nil {
		result.Extracted = true
		return result, nil
	}

	f.logCorrupt(req, result.Path, extractErr)

	// 损坏副本不可信：先删除再重新走完整下载。
	if err := os.Remove(result.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &Error{Kind: KindIO, URL: req.URL, Path: result.Path, Attempt: 1, Err: err}
	}

	result, err = f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	if extractErr = archive.ExtractZip(result.Path, extractDir); extractErr != nil {
		_ = os.Remove(result.Path)
		return nil, &Error{Kind: KindCorruptArchive, URL: req.URL, Path: result.Path, Attempt: 2, Err: extractErr}
	}
	result.Extracted = true
	return result, nil
}

// IsStale 比较本地文件修改时间与远端时间戳，判断下游解包/链接步骤是否
// 需要重跑。保留 1 秒余量，避免文件系统时间精度造成的抖动。
func IsStale(localPath string, remote time.Time) bool {
	info, err := os.Stat(localPath)
	if err != nil {
		return true
	}
	return remote.After(info.ModTime().Add(time.Second))
}

func (f *Fetcher) attempt(
	ctx context.Context,
	req Request,
	localPath string,
	attempt int,
	conditional bool,
	localMod time.Time,
	bounded bool,
) (*Result, error) {
	attemptCtx := ctx
	if bounded && f.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	if conditional {
		httpReq.Header.Set("If-Modified-Since", localMod.UTC().Format(http.TimeFormat))
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: classify(err), URL: req.URL, Path: localPath, Attempt: attempt, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return &Result{Path: localPath, FromCache: true}, nil
	case http.StatusOK:
		if err := f.writeLocal(attemptCtx, localPath, resp); err != nil {
			return nil, &Error{Kind: classify(err), URL: req.URL, Path: localPath, Attempt: attempt, Err: err}
		}
		return &Result{Path: localPath}, nil
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		return nil, &Error{Kind: KindNetwork, URL: req.URL, Path: localPath, Attempt: attempt, Err: statusErr}
	}
}

// writeLocal 先写临时文件、确认完整后 rename 到目标名，保证旧副本不会
// 被截断内容覆盖；同时把远端 Last-Modified 落到文件时间戳上，供下次
// 条件请求使用。
func (f *Fetcher) writeLocal(ctx context.Context, localPath string, resp *http.Response) error {
	tempFile, err := os.CreateTemp(filepath.Dir(localPath), ".toolsync-*")
	if err != nil {
		return &writeError{err: err}
	}
	tempName := tempFile.Name()

	written, err := copyBody(ctx, tempFile, resp.Body)
	closeErr := tempFile.Close()
	if err == nil && closeErr != nil {
		err = &writeError{err: closeErr}
	}
	if err == nil && written == 0 {
		err = errors.New("empty response body")
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, localPath); err != nil {
		os.Remove(tempName)
		return &writeError{err: err}
	}

	modTime := remoteModTime(resp.Header, f.now)
	if err := os.Chtimes(localPath, modTime, modTime); err != nil {
		return &writeError{err: err}
	}
	return nil
}

// copyBody 在拷贝循环中区分读写两侧的失败：写盘错误包装为 writeError，
// 读取错误按传输失败处理。
func copyBody(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, &writeError{err: wErr}
			}
			if w < n {
				return copied, &writeError{err: io.ErrShortWrite}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}

// remoteModTime 优先取响应的 Last-Modified，缺失时退回当前时间。
func remoteModTime(header http.Header, now func() time.Time) time.Time {
	if last := header.Get("Last-Modified"); last != "" {
		if parsed, err := http.ParseTime(last); err == nil {
			return parsed.UTC()
		}
	}
	return now().UTC()
}

func (f *Fetcher) logRetry(req Request, err error) {
	if f.logger == nil {
		return
	}
	fields := logging.FetchFields("", req.URL, false)
	fields["action"] = "fetch_retry"
	fields["attempt"] = 1
	fields["error"] = err.Error()
	f.logger.WithFields(fields).Warn("fetch_retry")
}

func (f *Fetcher) logCorrupt(req Request, path string, err error) {
	if f.logger == nil {
		return
	}
	fields := logging.FetchFields("", req.URL, false)
	fields["action"] = "extract_retry"
	fields["path"] = path
	fields["error"] = err.Error()
	f.logger.WithFields(fields).Warn("archive_corrupt_redownload")
}
