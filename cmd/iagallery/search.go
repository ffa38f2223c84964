package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/iagallery/internal/domain"
	"github.com/John-Robertt/iagallery/internal/search"
)

// searchOutput 是 search 命令的 stdout JSON 契约（非 TTY）。
type searchOutput struct {
	Query   string          `json:"query"`
	State   string          `json:"state"`
	Pages   int             `json:"pages"`
	Loaded  int             `json:"loaded"`
	Visible int             `json:"visible"`
	Error   string          `json:"error,omitempty"`
	Items   []domain.Record `json:"items"`
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		maxPages int
		filter   search.Filter
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "分页拉取搜索结果（按 identifier 去重）",
		Long: `按游标逐页拉取 scrape 接口，按 identifier 去重并累积结果。

stdout 非 TTY 时只输出一个 JSON；进度与日志写 stderr。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return fail(err)
			}
			if err := eff.RequireQuery(); err != nil {
				return fail(err)
			}
			d, err := newDeps(eff)
			if err != nil {
				return fail(err)
			}
			sess, err := search.NewSession(d.archive, eff.Search, a.logger)
			if err != nil {
				return fail(err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fetchErr := a.fetchPages(ctx, sess, maxPages)
			visible := sess.Visible(filter)
			a.emitSearch(sess, visible)
			if fetchErr != nil {
				return fail(fetchErr)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("query", "", "搜索语句（优先于 --user）")
	f.String("user", "", "上传者（生成 uploader:(<user>)）")
	f.StringSlice("fields", nil, "返回字段（逗号分隔；总会包含 identifier）")
	f.StringSlice("sorts", nil, `排序（逗号分隔，如 "date desc"；末尾自动补 identifier asc）`)
	f.Int("count", 0, fmt.Sprintf("每页数量（最少 %d）", search.MinPageSize))
	f.String("proxy", "", "HTTP 代理 URL")
	f.IntVar(&maxPages, "max-pages", 0, "最多拉取的页数（0 表示直到耗尽）")
	f.StringVar(&filter.Text, "filter", "", "本地文本过滤（title/description/identifier）")
	f.StringVar(&filter.MediaType, "mediatype", "", "本地 mediatype 过滤（如 movies/audio）")
	return cmd
}

// fetchPages 逐页拉取；交互终端下每页打印一行状态。
func (a *app) fetchPages(ctx context.Context, sess *search.Session, maxPages int) error {
	var onPage search.PageFunc
	if w, interactive := a.progressWriter(); interactive {
		onPage = func(search.Outcome, error) { fmt.Fprintln(w, sess.Status()) }
	}
	_, err := sess.FetchAll(ctx, maxPages, onPage)
	return err
}

func (a *app) emitSearch(sess *search.Session, visible []domain.Record) {
	snap := sess.Snapshot()
	if a.isTTY(a.stdout) {
		for _, r := range visible {
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%s\n", r.Identifier(), r.MediaType(), r.Date(), truncate(r.Title(), 80))
		}
		fmt.Fprintf(a.stdout, "%s 显示 %d/%d\n", sess.Status(), len(visible), len(snap.Items))
		return
	}

	out := searchOutput{
		Query:   snap.Query,
		State:   snap.State.String(),
		Pages:   snap.Pages,
		Loaded:  len(snap.Items),
		Visible: len(visible),
		Items:   visible,
	}
	if snap.Err != nil {
		out.Error = snap.Err.Error()
	}
	if out.Items == nil {
		out.Items = []domain.Record{}
	}
	// stdout 非 TTY：stdout 必须且仅输出一个 JSON（摘要走 stderr）。
	enc := json.NewEncoder(a.stdout)
	_ = enc.Encode(out)
	fmt.Fprintln(a.stderr, sess.Status())
}
