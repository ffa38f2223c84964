package archive

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultBaseURL        = "https://archive.org"
	DefaultScrapeEndpoint = DefaultBaseURL + "/services/search/v1/scrape"
	DefaultMetadataBase   = DefaultBaseURL + "/metadata"
)

func DetailsURL(id string) string { return DefaultBaseURL + "/details/" + url.PathEscape(id) }

// ThumbURL 是条目级缩略图服务（对任何条目都可用，无需 metadata）。
func ThumbURL(id string) string { return DefaultBaseURL + "/services/img/" + url.PathEscape(id) }

func EmbedURL(id string) string { return DefaultBaseURL + "/embed/" + url.PathEscape(id) }

// EmbedHTML 生成可直接粘贴的 iframe 嵌入代码。
func EmbedHTML(id string) string {
	return fmt.Sprintf(`<iframe src="%s" width="560" height="384" frameborder="0" webkitallowfullscreen="true" mozallowfullscreen="true" allowfullscreen></iframe>`, EmbedURL(id))
}

// DirectURL 拼接文件直链：https://{server}{dir}/{name}。
// name 可能含子目录：逐段转义，保留 '/'。
func DirectURL(server, dir, name string) string {
	server = strings.TrimSpace(server)
	dir = strings.TrimRight(strings.TrimSpace(dir), "/")
	if dir != "" && !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}
	segs := strings.Split(name, "/")
	for i := range segs {
		segs[i] = url.PathEscape(segs[i])
	}
	return "https://" + server + dir + "/" + strings.Join(segs, "/")
}
