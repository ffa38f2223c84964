package domain

const (
	ErrCodeInvalidIdentifier = "invalid_identifier"
	ErrCodeInvalidURL        = "invalid_url"
	ErrCodeFetchFailed       = "fetch_failed"
	ErrCodeMissingFields     = "metadata_missing_fields"
	ErrCodeResolveFailed     = "resolve_failed"
)

// ResolvedItem 是一次规范化的最终输出（渲染层直接消费）。
//
// 约束：
// - 创建后不可变；同一来源只产出一次
// - 失败不抛出：Invalid/ErrorCode/Error 在条目内携带失败信息
// - DirectURL 为空表示“未找到可用文件”（ResolutionEmpty），本身不是错误
type ResolvedItem struct {
	Identifier  string    `json:"identifier"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DetailsURL  string    `json:"detailsUrl"`
	ThumbURL    string    `json:"thumbUrl"`
	EmbedURL    string    `json:"embedUrl,omitempty"`
	DirectURL   string    `json:"directUrl"`
	FileName    string    `json:"fileName"`
	FileExt     string    `json:"fileExt"`
	FileType    MediaType `json:"fileType"`
	SizeBytes   int64     `json:"size"`

	Invalid   bool   `json:"invalid,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Failed 表示该条目在解析/抓取阶段失败（不含“未找到文件”）。
func (it ResolvedItem) Failed() bool { return it.Invalid || it.Error != "" }

// Overrides 是来源条目上的显式字段；非空即覆盖派生值（逐字段）。
type Overrides struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Type        MediaType `json:"type,omitempty"`
	ThumbURL    string    `json:"thumbUrl,omitempty"`
	DetailsURL  string    `json:"detailsUrl,omitempty"`
}

// SourceItem 是待规范化的来源条目：Identifier 与 DirectURL 二选一。
// Identifier 既可以是裸标识符，也可以是 archive.org 的 details URL。
type SourceItem struct {
	Identifier string `json:"identifier,omitempty"`
	DirectURL  string `json:"directUrl,omitempty"`
	Overrides
}

// IsDirect 表示这是直链来源（DirectURL 优先于 Identifier）。
func (s SourceItem) IsDirect() bool { return s.DirectURL != "" }
