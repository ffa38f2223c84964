package cache

import (
	"testing"
	"time"

	"github.com/John-Robertt/iagallery/internal/archive"
)

func TestStore_PutGet(t *testing.T) {
	s := New(4, time.Minute)
	s.Put("foo", archive.Metadata{Identifier: "foo", Server: "ia1.us.archive.org"})

	m, ok := s.Get(" foo ")
	if !ok {
		t.Fatalf("期望命中缓存，但 ok=false")
	}
	if m.Server != "ia1.us.archive.org" {
		t.Fatalf("内容不一致：%+v", m)
	}
	if _, ok := s.Get("FOO"); ok {
		t.Fatalf("identifier 大小写敏感，不应命中")
	}
}

func TestStore_EvictsLRU(t *testing.T) {
	s := New(2, time.Minute)
	s.Put("a", archive.Metadata{Identifier: "a"})
	s.Put("b", archive.Metadata{Identifier: "b"})
	_, _ = s.Get("a") // a 变为最近使用
	s.Put("c", archive.Metadata{Identifier: "c"})

	if _, ok := s.Get("b"); ok {
		t.Fatalf("期望 b 被淘汰")
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatalf("期望 a 仍在缓存中")
	}
	if s.Len() != 2 {
		t.Fatalf("期望 Len=2，实际 %d", s.Len())
	}
}

func TestStore_Expires(t *testing.T) {
	s := New(2, 20*time.Millisecond)
	s.Put("a", archive.Metadata{Identifier: "a"})
	time.Sleep(60 * time.Millisecond)
	if _, ok := s.Get("a"); ok {
		t.Fatalf("期望条目过期")
	}
}

func TestStore_NilIsNoop(t *testing.T) {
	var s *Store
	s.Put("a", archive.Metadata{})
	if _, ok := s.Get("a"); ok {
		t.Fatalf("nil Store 不应命中")
	}
	if s.Len() != 0 {
		t.Fatalf("nil Store Len 应为 0")
	}
}
