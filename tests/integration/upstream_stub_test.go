package integration

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fileServerStub 模拟带 If-Modified-Since 支持的上游文件服务，
// 可按路径注册正文并统计传输次数。
type fileServerStub struct {
	server *httptest.Server

	mu      sync.Mutex
	files   map[string]stubFile
	fails   map[string]int
	gets    map[string]int
	bodies  map[string]int
	modTime time.Time
}

type stubFile struct {
	body    []byte
	modTime time.Time
}

func newFileServerStub(t *testing.T) *fileServerStub {
	t.Helper()
	stub := &fileServerStub{
		files:   make(map[string]stubFile),
		fails:   make(map[string]int),
		gets:    make(map[string]int),
		bodies:  make(map[string]int),
		modTime: time.Now().Add(-time.Hour).UTC().Truncate(time.Second),
	}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *fileServerStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.gets[r.URL.Path]++
	if s.fails[r.URL.Path] > 0 {
		s.fails[r.URL.Path]--
		s.mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	file, ok := s.files[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		if since, err := http.ParseTime(ims); err == nil && !file.modTime.After(since) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("Last-Modified", file.modTime.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(file.body))

	s.mu.Lock()
	s.bodies[r.URL.Path]++
	s.mu.Unlock()
}

func (s *fileServerStub) URL() string { return s.server.URL }

// SetFile 注册/更新路径对应的正文，时间戳递增以触发条件请求重新下载。
func (s *fileServerStub) SetFile(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mod := s.modTime
	if existing, ok := s.files[path]; ok {
		mod = existing.modTime.Add(2 * time.Second)
	}
	s.files[path] = stubFile{body: body, modTime: mod}
}

// FailNext 让指定路径接下来的 n 次请求返回 500。
func (s *fileServerStub) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[path] = n
}

func (s *fileServerStub) bodyCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[path]
}

func (s *fileServerStub) requestCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[path]
}

func buildZipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("创建 zip 条目失败: %v", err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("写入 zip 条目失败: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("关闭 zip 失败: %v", err)
	}
	return buf.Bytes()
}
