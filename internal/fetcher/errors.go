package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind 划分下载失败的类别，决定是否进入重试路径。
type Kind string

const (
	// KindNetwork 表示无法建立连接或传输中断，允许一次重试。
	KindNetwork Kind = "network"
	// KindTimeout 表示首次尝试超出时间上限，允许一次重试。
	KindTimeout Kind = "timeout"
	// KindCorruptArchive 表示解包失败，触发强制重新下载。
	KindCorruptArchive Kind = "corrupt_archive"
	// KindIO 表示本地磁盘写入/权限失败，立即致命且不重试。
	KindIO Kind = "io"
)

// Error 携带 URL、本地路径与尝试序号，保证失败信息足够人工排查。
type Error struct {
	Kind    Kind
	URL     string
	Path    string
	Attempt int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s (attempt %d, %s): %v", e.URL, e.Attempt, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind 判断 err 链上是否存在指定类别的下载错误。
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// writeError 标记本地写入阶段的失败，供 classify 与网络读错误区分。
type writeError struct {
	err error
}

func (e *writeError) Error() string {
	return e.err.Error()
}

func (e *writeError) Unwrap() error {
	return e.err
}

// classify 将底层错误折叠为 Kind：写盘失败 → io，超时 → timeout，其余 → network。
func classify(err error) Kind {
	var we *writeError
	if errors.As(err, &we) {
		return KindIO
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
