package domain

import "strings"

// MediaType 是文件的媒体分类（由扩展名表唯一决定）。
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaImage MediaType = "image"
	MediaOther MediaType = "other"
)

// ParseMediaType 解析外部输入的类型提示；空串返回 ("", true) 表示“无提示”。
func ParseMediaType(s string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "video", "movies", "movie":
		return MediaVideo, true
	case "audio", "etree":
		return MediaAudio, true
	case "image", "images":
		return MediaImage, true
	case "other":
		return MediaOther, true
	default:
		return "", false
	}
}

// FileDescriptor 描述 IA 条目中的一个文件（只读，来自 metadata 的 files 列表）。
//
// 不变量：Extension 由 Name 派生（最后一个 '.' 之后的小写后缀；无 '.' 则为空）。
type FileDescriptor struct {
	Name      string
	Size      int64
	Source    string // "original" / "derivative" / "metadata"
	Extension string
}

// NewFileDescriptor 构造 FileDescriptor 并派生 Extension。
func NewFileDescriptor(name string, size int64, source string) FileDescriptor {
	if size < 0 {
		size = 0
	}
	return FileDescriptor{
		Name:      name,
		Size:      size,
		Source:    source,
		Extension: ExtOf(name),
	}
}

// ExtOf 返回 name 最后一个 '.' 之后的小写后缀。
// 以 '.' 结尾或不含 '.' 时返回空串；路径分隔符之后才开始计算。
func ExtOf(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
