package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/iagallery/internal/domain"
)

// Metadata 是 metadata 接口中与解析直链相关的最小字段集。
type Metadata struct {
	Identifier  string
	Server      string
	Dir         string
	Title       string
	Description string // 已转换为纯文本
	Files       []domain.FileDescriptor
}

type rawMetadata struct {
	Server   string        `json:"server"`
	Dir      string        `json:"dir"`
	Files    []rawFile     `json:"files"`
	Metadata domain.Record `json:"metadata"`
}

type rawFile struct {
	Name   string  `json:"name"`
	Size   flexInt `json:"size"`
	Source string  `json:"source"`
}

// flexInt 兼容 IA 把数字编码成字符串（"12345"）的习惯；无法解析时为 0。
type flexInt int64

func (n *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		*n = flexInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*n = flexInt(int64(f))
		return nil
	}
	*n = 0
	return nil
}

// Metadata 获取条目的 metadata。
// 缺少 server/dir/files 时返回包装了 ErrMissingFields 的错误。
func (c *Client) Metadata(ctx context.Context, id string) (Metadata, error) {
	if strings.TrimSpace(id) == "" {
		return Metadata{}, fmt.Errorf("identifier 不能为空")
	}

	u := c.metadataBase() + "/" + url.PathEscape(id)

	var raw rawMetadata
	if err := getJSON(ctx, c.HTTP, u, &raw); err != nil {
		return Metadata{}, err
	}
	return parseMetadata(id, raw)
}

// ParseMetadata 解析 metadata 接口的原始 JSON（便于测试/离线回放）。
func ParseMetadata(id string, b []byte) (Metadata, error) {
	var raw rawMetadata
	if err := json.Unmarshal(b, &raw); err != nil {
		return Metadata{}, err
	}
	return parseMetadata(id, raw)
}

func parseMetadata(id string, raw rawMetadata) (Metadata, error) {
	files := make([]domain.FileDescriptor, 0, len(raw.Files))
	for _, f := range raw.Files {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}
		files = append(files, domain.NewFileDescriptor(f.Name, int64(f.Size), f.Source))
	}

	server := strings.TrimSpace(raw.Server)
	dir := strings.TrimSpace(raw.Dir)
	if server == "" || dir == "" || len(files) == 0 {
		return Metadata{}, fmt.Errorf("%w（identifier=%s）", ErrMissingFields, id)
	}

	title := strings.TrimSpace(raw.Metadata.Field("title"))
	if title == "" {
		title = id
	}

	return Metadata{
		Identifier:  id,
		Server:      server,
		Dir:         dir,
		Title:       title,
		Description: DescriptionText(raw.Metadata.Field("description")),
		Files:       files,
	}, nil
}
