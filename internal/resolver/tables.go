package resolver

import "github.com/John-Robertt/iagallery/internal/domain"

// 扩展名表：顺序即优先级（越靠前越优先）。
var (
	playableVideo = []string{"mp4", "webm", "m4v", "mov", "ogv"}
	downloadVideo = []string{"mkv", "avi"}
	audioExts     = []string{"mp3", "m4a", "ogg", "flac", "wav"}
	// jpg 与 jpeg 同级。
	imageExts = [][]string{{"jpg", "jpeg"}, {"png"}, {"webp"}, {"gif"}}
)

// documentExts 是字幕/元数据/文档类扩展名：任何情况下都不是候选。
var documentExts = set("srt", "vtt", "nfo", "txt", "json", "xml", "md", "log")

// imageOnlyExts 只在显式提示 image 时才允许进入候选池。
// 包含 avif/svg：它们不在 image 表里，但也不应作为“其他文件”被选中。
var imageOnlyExts = set("jpg", "jpeg", "png", "gif", "webp", "avif", "svg")

// 分数带：相邻扩展名（同层或跨层）间隔 bandStep，且 bandStep 大于
// maxBonus+namePenalty，因此排在前面的扩展名永远胜出：带惩罚的前者也高于拿满加分的后者。
// 体积、来源与名称只在同扩展名内部起作用。最低档（gif）减去惩罚后仍高于 other 的加分上限。
const (
	bandStep = 110

	playableBase = 1810
	downloadBase = 1260
	audioBase    = 1040
	imageBase    = 490

	originalBonus = 20
	maxSizeBonus  = 30
	maxBonus      = originalBonus + maxSizeBonus

	namePenalty     = 50
	documentPenalty = 100
)

// tierBase 是扩展名 -> 基础分的查找表（启动时由上面的表生成）。
var tierBase = buildTierBase()

// mediaOf 是扩展名 -> MediaType 的查找表。
var mediaOf = buildMediaOf()

func buildTierBase() map[string]float64 {
	m := make(map[string]float64, 16)
	for i, ext := range playableVideo {
		m[ext] = float64(playableBase - i*bandStep)
	}
	for i, ext := range downloadVideo {
		m[ext] = float64(downloadBase - i*bandStep)
	}
	for i, ext := range audioExts {
		m[ext] = float64(audioBase - i*bandStep)
	}
	for i, group := range imageExts {
		for _, ext := range group {
			m[ext] = float64(imageBase - i*bandStep)
		}
	}
	return m
}

func buildMediaOf() map[string]domain.MediaType {
	m := make(map[string]domain.MediaType, 16)
	for _, ext := range playableVideo {
		m[ext] = domain.MediaVideo
	}
	for _, ext := range downloadVideo {
		m[ext] = domain.MediaVideo
	}
	for _, ext := range audioExts {
		m[ext] = domain.MediaAudio
	}
	for _, group := range imageExts {
		for _, ext := range group {
			m[ext] = domain.MediaImage
		}
	}
	return m
}

func set(xs ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

// Classify 按扩展名（大小写不敏感，可带前导 '.'）返回媒体类型；未知扩展名为 other。
func Classify(ext string) domain.MediaType {
	ext = normExt(ext)
	if mt, ok := mediaOf[ext]; ok {
		return mt
	}
	return domain.MediaOther
}

// IsPlayableInBrowser 表示该扩展名属于“浏览器可直接播放”的视频层级。
func IsPlayableInBrowser(ext string) bool {
	ext = normExt(ext)
	for _, e := range playableVideo {
		if e == ext {
			return true
		}
	}
	return false
}

// IsDocument 表示该扩展名属于字幕/元数据/文档排除集。
func IsDocument(ext string) bool {
	_, ok := documentExts[normExt(ext)]
	return ok
}
