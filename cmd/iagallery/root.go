package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/John-Robertt/iagallery/internal/archive"
	"github.com/John-Robertt/iagallery/internal/config"
	"github.com/John-Robertt/iagallery/internal/infra/cache"
	"github.com/John-Robertt/iagallery/internal/infra/httpx"
	"github.com/John-Robertt/iagallery/internal/normalize"
)

// app 持有一次 CLI 调用的 I/O 与全局选项（不使用包级变量，便于测试）。
type app struct {
	cwd    string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	verbose    bool
	logger     *slog.Logger

	// isTTY 可在测试中替换。
	isTTY func(w io.Writer) bool
}

func newApp(cwd string, stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		cwd:    cwd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.DiscardHandler),
		isTTY:  isTTY,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "iagallery",
		Short: "Internet Archive gallery toolkit",
		Long: `iagallery 浏览 Internet Archive 的条目并解析“最佳”可播放文件。

示例：
  iagallery search --user someone@example.org     # 拉取某上传者的全部条目
  iagallery resolve night_of_the_living_dead       # 解析条目的最佳直链
  iagallery resolve --explain <identifier>         # 查看全部候选文件的评分
  iagallery serve --listen :8787                   # 启动 resolver 服务`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.initLogger()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "配置文件（默认 ./"+config.FileName+"，可选）")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "输出 debug 日志到 stderr")

	root.AddCommand(newSearchCmd(a), newResolveCmd(a), newServeCmd(a))
	return root
}

func (a *app) initLogger() {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
}

// loadConfig 合并配置文件与 CLI 显式指定的 flag（flag 是否 Changed 即“是否显式指定”）。
func (a *app) loadConfig(fs *pflag.FlagSet) (config.EffectiveConfig, error) {
	cli := config.CLIArgs{ConfigPath: a.configPath}

	str := func(name string, dst *string, set *bool) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst, _ = fs.GetString(name)
			*set = true
		}
	}
	str("query", &cli.Query, &cli.QuerySet)
	str("user", &cli.User, &cli.UserSet)
	str("proxy", &cli.ProxyURL, &cli.ProxyURLSet)
	str("resolver-url", &cli.ResolverURL, &cli.ResolverURLSet)
	str("listen", &cli.Listen, &cli.ListenSet)

	if f := fs.Lookup("fields"); f != nil && f.Changed {
		cli.Fields, _ = fs.GetStringSlice("fields")
		cli.FieldsSet = true
	}
	if f := fs.Lookup("sorts"); f != nil && f.Changed {
		cli.Sorts, _ = fs.GetStringSlice("sorts")
		cli.SortsSet = true
	}
	if f := fs.Lookup("count"); f != nil && f.Changed {
		cli.Count, _ = fs.GetInt("count")
		cli.CountSet = true
	}
	if f := fs.Lookup("concurrency"); f != nil && f.Changed {
		cli.Concurrency, _ = fs.GetInt("concurrency")
		cli.ConcurrencySet = true
	}

	eff, err := config.LoadEffective(a.cwd, cli)
	if err != nil {
		return config.EffectiveConfig{}, err
	}
	a.logger.Debug("配置已加载",
		"config", eff.ConfigPath,
		"query", eff.Search.Query,
		"concurrency", eff.Concurrency,
		"resolver_url", eff.ResolverURL,
		"rate_per_sec", eff.RatePerSec,
	)
	return eff, nil
}

// deps 是按 EffectiveConfig 组装好的运行时依赖。
type deps struct {
	http    *http.Client
	archive *archive.Client
	cache   *cache.Store
}

func newDeps(eff config.EffectiveConfig) (deps, error) {
	hc, err := httpx.NewClient(httpx.Options{
		ProxyURL:   eff.ProxyURL,
		RatePerSec: eff.RatePerSec,
	})
	if err != nil {
		return deps{}, err
	}
	return deps{
		http:    hc,
		archive: archive.New(hc, eff.MetadataBaseURL, eff.SearchEndpoint),
		cache:   cache.New(eff.CacheSize, eff.CacheTTL),
	}, nil
}

// identifierResolver 选择解析方式：配置了 resolver_url 且未强制本地时走远端服务。
func (d deps) identifierResolver(eff config.EffectiveConfig, local bool, logger *slog.Logger) normalize.IdentifierResolver {
	if eff.ResolverURL != "" && !local {
		return &normalize.RemoteResolver{Endpoint: eff.ResolverURL, HTTP: d.http}
	}
	return &normalize.LocalResolver{Fetcher: d.archive, Cache: d.cache, Logger: logger}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// progressWriter 选择进度输出位置：只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
func (a *app) progressWriter() (io.Writer, bool) {
	if a.isTTY(a.stderr) {
		return a.stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if a.isTTY(a.stdout) {
		return a.stdout, true
	}
	return nil, false
}
