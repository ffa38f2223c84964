// Package search 实现基于游标的分页搜索聚合：逐页拉取、按 identifier 去重、
// 在 query 变化时丢弃过期结果。
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/John-Robertt/iagallery/internal/archive"
	"github.com/John-Robertt/iagallery/internal/domain"
	"github.com/John-Robertt/iagallery/internal/metrics"
)

var (
	ErrEmptyQuery = errors.New("search: query 为空")
	ErrNoFetcher  = errors.New("search: fetcher 为空")
)

// PageFetcher 拉取一页结果；*archive.Client 满足该接口。
type PageFetcher interface {
	FetchPage(ctx context.Context, r archive.ScrapeRequest) (archive.Page, error)
}

type State int

const (
	StateIdle State = iota
	StateFetching
	StateError
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateError:
		return "error"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome 描述一次 FetchNextPage 调用的结果。
type Outcome struct {
	// Skipped：前置条件不满足（正在拉取或已耗尽），未发请求。
	Skipped bool
	// Stale：请求期间会话被 Reset，结果已丢弃。
	Stale bool
	// Received 是该页返回的记录数（去重前）。
	Received int
	// Added 是去重后实际追加的记录数。
	Added int
	// Exhausted 表示调用结束后会话已无更多结果。
	Exhausted bool
}

// Snapshot 是会话的只读快照。
type Snapshot struct {
	Query  string
	State  State
	Cursor string
	Pages  int
	Items  []domain.Record
	Err    error
}

// Session 是一次搜索的累积状态。
//
// 约束：
// - Items 按首次出现顺序排列，identifier 唯一（空 identifier 的记录丢弃）
// - 同一时刻至多一个在途请求；Fetching/Exhausted 下的 FetchNextPage 为空操作
// - Reset 之后，之前发起的请求结果一律丢弃
// - 失败不清空已加载结果，游标不前进，可重试
type Session struct {
	fetcher PageFetcher
	logger  *slog.Logger

	mu      sync.Mutex
	params  Params
	gen     uint64
	state   State
	cursor  string
	pages   int
	items   []domain.Record
	seen    map[string]struct{}
	lastErr error
}

// NewSession 构造会话；参数会先经过 NormalizeParams。
func NewSession(fetcher PageFetcher, p Params, logger *slog.Logger) (*Session, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	p = NormalizeParams(p)
	if p.Query == "" {
		return nil, ErrEmptyQuery
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		fetcher: fetcher,
		logger:  logger,
		params:  p,
		seen:    make(map[string]struct{}),
	}, nil
}

// FetchNextPage 拉取下一页并合并。
//
// 返回的 error 只在本次请求失败且结果未过期时非 nil；此时会话进入 StateError。
func (s *Session) FetchNextPage(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state == StateFetching || s.state == StateExhausted {
		out := Outcome{Skipped: true, Exhausted: s.state == StateExhausted}
		s.mu.Unlock()
		return out, nil
	}
	s.state = StateFetching
	gen := s.gen
	req := archive.ScrapeRequest{
		Query:  s.params.Query,
		Fields: s.params.Fields,
		Sorts:  s.params.Sorts,
		Count:  s.params.Count,
		Cursor: s.cursor,
	}
	s.mu.Unlock()

	page, err := s.fetcher.FetchPage(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		metrics.SearchPagesTotal.WithLabelValues("stale").Inc()
		s.logger.Debug("丢弃过期页", "query", req.Query, "cursor", req.Cursor)
		return Outcome{Stale: true}, nil
	}
	if err != nil {
		s.state = StateError
		s.lastErr = err
		metrics.SearchPagesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("拉取页失败", "query", req.Query, "cursor", req.Cursor, "error", err)
		return Outcome{}, err
	}

	added := s.merge(page.Items)
	s.cursor = page.Cursor
	s.pages++
	s.lastErr = nil
	exhausted := page.Cursor == "" || len(page.Items) == 0
	if exhausted {
		s.state = StateExhausted
	} else {
		s.state = StateIdle
	}
	metrics.SearchPagesTotal.WithLabelValues("ok").Inc()
	metrics.SearchItemsMerged.Add(float64(added))
	s.logger.Debug("合并页",
		"query", req.Query,
		"page", s.pages,
		"received", len(page.Items),
		"added", added,
		"total", len(s.items),
		"exhausted", exhausted,
	)
	return Outcome{Received: len(page.Items), Added: added, Exhausted: exhausted}, nil
}

func (s *Session) merge(items []domain.Record) int {
	added := 0
	for _, it := range items {
		id := it.Identifier()
		if id == "" {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.items = append(s.items, it)
		added++
	}
	return added
}

// Reset 切换到新 query：清空结果、游标与错误，使在途请求过期，然后拉取第一页。
// query 为空时返回 ErrEmptyQuery 且不改变会话。
func (s *Session) Reset(ctx context.Context, query string) (Outcome, error) {
	p := NormalizeParams(Params{Query: query})
	if p.Query == "" {
		return Outcome{}, ErrEmptyQuery
	}
	s.mu.Lock()
	s.gen++
	s.params.Query = p.Query
	s.state = StateIdle
	s.cursor = ""
	s.pages = 0
	s.items = nil
	s.seen = make(map[string]struct{})
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("重置搜索", "query", p.Query)
	return s.FetchNextPage(ctx)
}

// PageFunc 在每次 FetchNextPage 返回后调用（含失败的那一次）。
type PageFunc func(out Outcome, err error)

// FetchAll 连续拉取直到耗尽、出错或达到 maxPages（<=0 表示不限）。
// onPage 可为 nil。返回本次调用实际合并的页数。
func (s *Session) FetchAll(ctx context.Context, maxPages int, onPage PageFunc) (int, error) {
	n := 0
	for maxPages <= 0 || n < maxPages {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		out, err := s.FetchNextPage(ctx)
		if onPage != nil {
			onPage(out, err)
		}
		if err != nil {
			return n, err
		}
		if out.Skipped || out.Stale {
			return n, nil
		}
		n++
		if out.Exhausted {
			return n, nil
		}
	}
	return n, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items 返回已加载记录的副本（切片副本，记录本身共享）。
func (s *Session) Items() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Record(nil), s.items...)
}

// Visible 返回经过本地过滤后的记录。
func (s *Session) Visible(f Filter) []domain.Record {
	return Apply(s.Items(), f)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Query:  s.params.Query,
		State:  s.state,
		Cursor: s.cursor,
		Pages:  s.pages,
		Items:  append([]domain.Record(nil), s.items...),
		Err:    s.lastErr,
	}
}

// Status 返回面向用户的一行状态描述。
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	switch s.state {
	case StateFetching:
		if s.pages == 0 {
			return "Loading…"
		}
		return fmt.Sprintf("Loading more… (%d loaded)", n)
	case StateError:
		return fmt.Sprintf("Error: %v", s.lastErr)
	case StateExhausted:
		if n == 0 {
			return "0 items. The query may not match any uploads."
		}
		return fmt.Sprintf("Loaded all available results (%d).", n)
	default:
		if s.pages == 0 {
			return "Idle."
		}
		return fmt.Sprintf("Loaded %d. More available.", n)
	}
}
