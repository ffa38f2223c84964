package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/iagallery/internal/domain"
	"github.com/John-Robertt/iagallery/internal/normalize"
)

var _ normalize.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的简洁进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：normalize 只发事件，CLI 决定如何展示
// - keepalive：长时间无条目完成时也会定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	ok      int
	empty   int
	fail    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(total, workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.startedAt = now
	p.total = total
	p.workers = workers
	fmt.Fprintf(p.w, "[%s] iagallery resolve: items=%d workers=%d\n", now.Format("15:04:05"), total, workers)
	p.lastPrinted = now
	if total > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnItemDone(done, total, index int, it domain.ResolvedItem, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if done > p.done {
		p.done = done
	}
	p.total = total

	key := truncate(itemKey(it), 60)
	switch {
	case it.Failed():
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] #%d %s FAIL %s: %s (%s)\n",
			done, total, index+1, key, it.ErrorCode, truncate(it.Error, 160), formatShortDuration(dur),
		)
	case it.DirectURL == "":
		p.empty++
		fmt.Fprintf(p.w, "[%d/%d] #%d %s EMPTY (无可用文件) (%s)\n",
			done, total, index+1, key, formatShortDuration(dur),
		)
	default:
		p.ok++
		fmt.Fprintf(p.w, "[%d/%d] #%d %s OK type=%s file=%s (%s)\n",
			done, total, index+1, key, it.FileType, truncate(it.FileName, 80), formatShortDuration(dur),
		)
	}
	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stop := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if time.Since(p.lastPrinted) > threshold {
					p.printProgressLocked()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (p *progressUI) printProgressLocked() {
	active := p.workers
	if remain := p.total - p.done; remain < active {
		active = remain
	}
	fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d empty=%d fail=%d active=%d elapsed=%s\n",
		p.done, p.total, p.ok, p.empty, p.fail, active, formatElapsed(time.Since(p.startedAt)),
	)
	p.lastPrinted = time.Now()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
