package gateway

import (
	"net/http"
	"sync"
	"time"
)

// CacheEntry 缓存条目
type CacheEntry struct {
	Data        []byte
	ContentType string
	Status      int
	ExpiresAt   time.Time
}

// CacheMiddleware 响应缓存中间件，用于变化缓慢的只读端点
type CacheMiddleware struct {
	entries map[string]*CacheEntry
	mutex   sync.RWMutex
}

// NewCacheMiddleware 创建缓存中间件
func NewCacheMiddleware() *CacheMiddleware {
	c := &CacheMiddleware{
		entries: make(map[string]*CacheEntry),
	}

	// 启动清理协程
	go c.cleanup()

	return c
}

// Wrap 为处理器套上指定TTL的响应缓存
func (c *CacheMiddleware) Wrap(next http.Handler, ttl time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.String()

		c.mutex.RLock()
		entry, ok := c.entries[key]
		c.mutex.RUnlock()

		if ok && time.Now().Before(entry.ExpiresAt) {
			w.Header().Set("Content-Type", entry.ContentType)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(entry.Status)
			w.Write(entry.Data)
			return
		}

		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		// 只缓存成功响应
		if recorder.status == http.StatusOK {
			c.mutex.Lock()
			c.entries[key] = &CacheEntry{
				Data:        recorder.body,
				ContentType: w.Header().Get("Content-Type"),
				Status:      recorder.status,
				ExpiresAt:   time.Now().Add(ttl),
			}
			c.mutex.Unlock()
		}
	})
}

// cleanup 定期清理过期条目
func (c *CacheMiddleware) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mutex.Lock()
		for key, entry := range c.entries {
			if now.After(entry.ExpiresAt) {
				delete(c.entries, key)
			}
		}
		c.mutex.Unlock()
	}
}

// responseRecorder 记录响应内容以便写入缓存
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	r.body = append(r.body, data...)
	return r.ResponseWriter.Write(data)
}
