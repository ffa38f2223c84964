package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/iagallery/internal/domain"
	"github.com/John-Robertt/iagallery/internal/identifier"
	"github.com/John-Robertt/iagallery/internal/infra/fsx"
	"github.com/John-Robertt/iagallery/internal/normalize"
	"github.com/John-Robertt/iagallery/internal/resolver"
)

type resolveOpts struct {
	input   string
	typ     string
	output  string
	force   bool
	local   bool
	explain bool
	avOnly  bool
}

func newResolveCmd(a *app) *cobra.Command {
	var o resolveOpts
	cmd := &cobra.Command{
		Use:   "resolve [identifier|details-url|direct-url ...]",
		Short: "把条目规范化为带直链的记录",
		Long: `逐条解析来源条目：identifier / archive.org details URL / 文件直链。

来源既可以是位置参数，也可以是 --input 指定的 JSON 数组（"-" 表示 stdin），
数组元素形如 {"identifier":"...","title":"...","type":"video"} 或 {"directUrl":"..."}。

输出顺序与输入一致；单条失败不影响其它条目。
stdout 非 TTY 时只输出一个 JSON 报告；进度与日志写 stderr。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.explain {
				return a.runExplain(cmd, args, o)
			}
			return a.runResolve(cmd, args, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", `来源条目 JSON 文件（"-" 表示 stdin）`)
	f.StringVar(&o.typ, "type", "", "类型覆盖/提示：video|audio|image|other（作用于位置参数）")
	f.StringVar(&o.output, "output", "", "把 JSON 报告原子写入该文件")
	f.BoolVar(&o.force, "force", false, "允许覆盖 --output 已存在的文件")
	f.BoolVar(&o.local, "local", false, "忽略 resolver_url，在本地解析")
	f.BoolVar(&o.explain, "explain", false, "打印每个 identifier 全部候选文件的评分（本地解析）")
	f.BoolVar(&o.avOnly, "av-only", false, "只接受音视频文件（本地解析）")
	f.Int("concurrency", 0, "并发数（1 表示严格按输入顺序逐条处理）")
	f.String("resolver-url", "", "resolver 服务地址（如 https://host/resolve）")
	f.String("proxy", "", "HTTP 代理 URL")
	return cmd
}

func (a *app) runResolve(cmd *cobra.Command, args []string, o resolveOpts) error {
	items, err := a.readSources(args, o)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	eff, err := a.loadConfig(cmd.Flags())
	if err != nil {
		return fail(err)
	}
	d, err := newDeps(eff)
	if err != nil {
		return fail(err)
	}

	r := d.identifierResolver(eff, o.local, a.logger)
	if lr, ok := r.(*normalize.LocalResolver); ok {
		lr.AVOnly = o.avOnly
	}
	n := normalize.New(r, a.logger)

	var obs normalize.Observer
	if w, interactive := a.progressWriter(); interactive {
		obs = newProgressUI(w)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := n.NormalizeAll(ctx, items, eff.Concurrency, obs)
	if err != nil {
		return fail(err)
	}

	if o.output != "" {
		if err := writeReport(a.abs(o.output), rep, o.force); err != nil {
			a.emitReport(rep)
			return fail(fmt.Errorf("写入 %s 失败：%w", o.output, err))
		}
	}
	a.emitReport(rep)
	if w, interactive := a.progressWriter(); interactive && o.output != "" {
		fmt.Fprintf(w, "report: %s\n", a.abs(o.output))
	}

	if rep.Summary.Failed > 0 || rep.Summary.Invalid > 0 {
		return silent(1)
	}
	return nil
}

// readSources 汇总位置参数与 --input；位置参数中 http(s) 且不是 details URL 的视为直链。
func (a *app) readSources(args []string, o resolveOpts) ([]domain.SourceItem, error) {
	var items []domain.SourceItem
	if o.input != "" {
		var (
			b   []byte
			err error
		)
		if o.input == "-" {
			b, err = io.ReadAll(a.stdin)
		} else {
			b, err = os.ReadFile(a.abs(o.input))
		}
		if err != nil {
			return nil, fmt.Errorf("读取 --input 失败：%w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("--input 不是合法的条目数组：%w", err)
		}
	}

	typ, ok := domain.ParseMediaType(o.typ)
	if !ok {
		return nil, fmt.Errorf("--type 只能是 video|audio|image|other，实际是 %q", o.typ)
	}
	for _, arg := range args {
		src := domain.SourceItem{Overrides: domain.Overrides{Type: typ}}
		if isDirectURL(arg) {
			src.DirectURL = strings.TrimSpace(arg)
		} else {
			src.Identifier = arg
		}
		items = append(items, src)
	}
	if len(items) == 0 {
		return nil, errors.New("至少需要一个来源条目（位置参数或 --input）")
	}
	return items, nil
}

func isDirectURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	return !strings.Contains(s, "/details/")
}

func (a *app) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(a.cwd, p)
}

func writeReport(path string, rep domain.BatchReport, overwrite bool) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFile(path, b, overwrite)
}

func (a *app) emitReport(rep domain.BatchReport) {
	summary := fmt.Sprintf("完成：resolved=%d empty=%d failed=%d invalid=%d",
		rep.Summary.Resolved, rep.Summary.Empty, rep.Summary.Failed, rep.Summary.Invalid,
	)
	if a.isTTY(a.stdout) {
		for _, it := range rep.Items {
			switch {
			case it.Failed():
				continue
			case it.DirectURL == "":
				fmt.Fprintf(a.stdout, "%s\t(无可用文件)\n", itemKey(it))
			default:
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", itemKey(it), it.FileType, it.DirectURL)
			}
		}
		fmt.Fprintln(a.stdout, summary)
		for _, it := range rep.Items {
			if it.Failed() {
				fmt.Fprintf(a.stderr, "%s %s: %s\n", itemKey(it), it.ErrorCode, it.Error)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 BatchReport JSON（摘要走 stderr）。
	enc := json.NewEncoder(a.stdout)
	_ = enc.Encode(rep)
	fmt.Fprintln(a.stderr, summary)
}

func itemKey(it domain.ResolvedItem) string {
	switch {
	case it.Identifier != "":
		return it.Identifier
	case it.DirectURL != "":
		return it.DirectURL
	case it.Title != "":
		return it.Title
	default:
		return "<unknown>"
	}
}

// explainFile 是 --explain 的单个候选输出。
type explainFile struct {
	Name   string           `json:"name"`
	Ext    string           `json:"ext"`
	Type   domain.MediaType `json:"type"`
	Size   int64            `json:"size"`
	Source string           `json:"source"`
	Score  float64          `json:"score"`
}

type explainItem struct {
	Identifier string        `json:"identifier"`
	Error      string        `json:"error,omitempty"`
	Candidates []explainFile `json:"candidates"`
}

// runExplain 打印候选文件的完整排名（第一名即 resolve 的选择）。
func (a *app) runExplain(cmd *cobra.Command, args []string, o resolveOpts) error {
	if len(args) == 0 {
		return &exitError{code: 2, err: errors.New("--explain 需要至少一个 identifier")}
	}
	hint, ok := domain.ParseMediaType(o.typ)
	if !ok {
		return &exitError{code: 2, err: fmt.Errorf("--type 只能是 video|audio|image|other，实际是 %q", o.typ)}
	}
	eff, err := a.loadConfig(cmd.Flags())
	if err != nil {
		return fail(err)
	}
	d, err := newDeps(eff)
	if err != nil {
		return fail(err)
	}

	out := make([]explainItem, 0, len(args))
	failed := false
	for _, arg := range args {
		ei := explainItem{Identifier: arg, Candidates: []explainFile{}}
		id, err := identifier.Extract(arg)
		if err != nil {
			ei.Error = err.Error()
			failed = true
			out = append(out, ei)
			continue
		}
		ei.Identifier = id
		meta, err := d.archive.Metadata(cmd.Context(), id)
		if err != nil {
			ei.Error = err.Error()
			failed = true
			out = append(out, ei)
			continue
		}
		for _, c := range resolver.Rank(meta.Files, resolver.Options{Hint: hint, AVOnly: o.avOnly}) {
			ei.Candidates = append(ei.Candidates, explainFile{
				Name:   c.File.Name,
				Ext:    c.File.Extension,
				Type:   c.Type,
				Size:   c.File.Size,
				Source: c.File.Source,
				Score:  c.Score,
			})
		}
		out = append(out, ei)
	}

	if a.isTTY(a.stdout) {
		for _, ei := range out {
			fmt.Fprintf(a.stdout, "%s\n", ei.Identifier)
			if ei.Error != "" {
				fmt.Fprintf(a.stdout, "  错误：%s\n", ei.Error)
				continue
			}
			if len(ei.Candidates) == 0 {
				fmt.Fprintln(a.stdout, "  (无候选文件)")
			}
			for i, c := range ei.Candidates {
				fmt.Fprintf(a.stdout, "  %2d. %8.2f  %-6s %-5s %12d  %s\n", i+1, c.Score, c.Type, c.Ext, c.Size, c.Name)
			}
		}
	} else {
		enc := json.NewEncoder(a.stdout)
		_ = enc.Encode(out)
	}
	if failed {
		return silent(1)
	}
	return nil
}
