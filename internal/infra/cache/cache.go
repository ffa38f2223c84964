package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/John-Robertt/iagallery/internal/archive"
)

const (
	DefaultSize = 512
	DefaultTTL  = 10 * time.Minute
)

// Store 是进程内的 metadata 缓存（按 identifier 索引，LRU + TTL）。
//
// 约束：
// - 只存在于内存：不落盘，进程退出即失效
// - 只缓存成功结果；失败永远走网络（可重试）
// - 并发安全
type Store struct {
	lru *expirable.LRU[string, archive.Metadata]
}

// New 构造缓存；size<=0 或 ttl<=0 时使用默认值。
func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{lru: expirable.NewLRU[string, archive.Metadata](size, nil, ttl)}
}

func (s *Store) Get(id string) (archive.Metadata, bool) {
	if s == nil {
		return archive.Metadata{}, false
	}
	return s.lru.Get(key(id))
}

func (s *Store) Put(id string, m archive.Metadata) {
	if s == nil {
		return
	}
	s.lru.Add(key(id), m)
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.lru.Len()
}

// IA 标识符大小写敏感：只做 trim，不做大小写折叠。
func key(id string) string { return strings.TrimSpace(id) }
