package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 壓縮等級
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// encoder gzip.Writer 與 zstd.Encoder 共同的方法
type encoder interface {
	io.Writer
	Reset(w io.Writer)
	Flush() error
	Close() error
}

// coder 一種 Content-Encoding 與其 encoder pool
type coder struct {
	name string
	pool sync.Pool
}

func (c *coder) get(w io.Writer) encoder {
	enc := c.pool.Get().(encoder)
	enc.Reset(w)
	return enc
}

// put 關閉 encoder 後放回；discard 時 footer 寫進 io.Discard
func (c *coder) put(enc encoder, discard bool) {
	if discard {
		enc.Reset(io.Discard)
	}
	_ = enc.Close()
	c.pool.Put(enc)
}

func newCoders(cfg CompressConfig) ([]*coder, error) {
	// 先各建一個，等級不合法時在啟動階段就回錯
	if _, err := gzip.NewWriterLevel(io.Discard, cfg.GzipLevel); err != nil {
		return nil, err
	}
	zopts := []zstd.EOption{zstd.WithEncoderLevel(cfg.ZstdLevel), zstd.WithEncoderConcurrency(1)}
	if _, err := zstd.NewWriter(io.Discard, zopts...); err != nil {
		return nil, err
	}

	zc := &coder{name: "zstd"}
	zc.pool.New = func() any {
		zw, _ := zstd.NewWriter(nil, zopts...)
		return zw
	}
	gc := &coder{name: "gzip"}
	gc.pool.New = func() any {
		gw, _ := gzip.NewWriterLevel(nil, cfg.GzipLevel)
		return gw
	}
	// 順序即偏好
	return []*coder{zc, gc}, nil
}

// pick 依偏好順序挑第一個 client 接受的編碼
func pick(coders []*coder, accept string) *coder {
	if accept == "" {
		return nil
	}
	for _, c := range coders {
		if acceptsEncoding(accept, c.name) {
			return c
		}
	}
	return nil
}

// acceptsEncoding 解析 Accept-Encoding；q=0 視為拒絕
func acceptsEncoding(accept, name string) bool {
	for part := range strings.SplitSeq(accept, ",") {
		token, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(token), name) {
			continue
		}
		q := strings.ReplaceAll(params, " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

func skipCompression(r *http.Request) bool {
	if r.Method == http.MethodHead {
		return true
	}
	// WebSocket
	return r.Header.Get("Upgrade") != "" ||
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// 1xx, 204, 304 沒有 body
func bodyless(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

type compressWriter struct {
	http.ResponseWriter
	enc      encoder
	bypass   bool
	wroteHdr bool
}

func (cw *compressWriter) WriteHeader(code int) {
	if cw.wroteHdr {
		return
	}
	cw.wroteHdr = true
	h := cw.Header()
	h.Del("Content-Length")
	if bodyless(code) {
		cw.bypass = true
		h.Del("Content-Encoding")
		h.Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if !cw.wroteHdr {
		if cw.Header().Get("Content-Type") == "" {
			cw.Header().Set("Content-Type", http.DetectContentType(b))
		}
		cw.WriteHeader(http.StatusOK)
	}
	if cw.bypass {
		return cw.ResponseWriter.Write(b)
	}
	return cw.enc.Write(b)
}

func (cw *compressWriter) Flush() {
	if !cw.bypass {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := cw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("compress: response writer does not support hijack")
}

// NewCompression 依 Accept-Encoding 以 zstd（優先）或 gzip 壓縮回應
func NewCompression(cfg CompressConfig) (func(http.Handler) http.Handler, error) {
	coders, err := newCoders(cfg)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipCompression(r) || w.Header().Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}
			c := pick(coders, r.Header.Get("Accept-Encoding"))
			if c == nil {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Encoding", c.name)
			w.Header().Add("Vary", "Accept-Encoding")

			cw := &compressWriter{ResponseWriter: w, enc: c.get(w)}
			defer func() { c.put(cw.enc, cw.bypass) }()
			next.ServeHTTP(cw, r)
		})
	}, nil
}

var defaultCompression = sync.OnceValue(func() func(http.Handler) http.Handler {
	mw, err := NewCompression(DefaultCompressConfig)
	if err != nil {
		panic(err)
	}
	return mw
})

// Compression 使用 DefaultCompressConfig
func Compression(next http.Handler) http.Handler {
	return defaultCompression()(next)
}
