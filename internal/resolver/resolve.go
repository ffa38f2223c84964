// Package resolver 从一个 IA 条目的文件列表中挑出唯一的“最佳”可播放/直链文件。
//
// 约束：
// - 纯函数：相同输入 => 相同输出，不做 I/O
// - 客户端（CLI）与服务端（resolver service）共用同一实现
package resolver

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/John-Robertt/iagallery/internal/domain"
)

// Candidate 是一次打分后的候选（只在单次调用内存在，不持久化）。
type Candidate struct {
	File  domain.FileDescriptor
	Type  domain.MediaType
	Score float64
}

// Options 控制候选池。
type Options struct {
	// Hint 非空时优先收窄到该类型；池中没有该类型则回退到全池。
	Hint domain.MediaType
	// AVOnly 为 true 时丢弃 other 类型（只接受音视频/显式提示的图片）。
	AVOnly bool
}

var coverNameRE = regexp.MustCompile(`(?i)thumb|thumbnail|poster|cover`)

// Resolve 返回最佳候选；候选池为空时 ok=false。
func Resolve(files []domain.FileDescriptor, hint domain.MediaType) (Candidate, bool) {
	return ResolveWith(files, Options{Hint: hint})
}

// ResolveWith 与 Resolve 相同，但允许指定完整 Options。
func ResolveWith(files []domain.FileDescriptor, opt Options) (Candidate, bool) {
	ranked := Rank(files, opt)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

// Rank 返回过滤、收窄、打分后的全部候选（按分数降序；同分保持原列表顺序）。
func Rank(files []domain.FileDescriptor, opt Options) []Candidate {
	pool := make([]Candidate, 0, len(files))
	for _, f := range files {
		f.Extension = extOf(f)
		if !admissible(f.Extension, opt) {
			continue
		}
		pool = append(pool, Candidate{File: f, Type: Classify(f.Extension)})
	}

	pool = narrow(pool, opt.Hint)

	for i := range pool {
		pool[i].Score = Score(pool[i].File)
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Score > pool[j].Score })
	return pool
}

func admissible(ext string, opt Options) bool {
	if ext == "" {
		return false
	}
	if _, bad := documentExts[ext]; bad {
		return false
	}
	if _, img := imageOnlyExts[ext]; img && opt.Hint != domain.MediaImage {
		return false
	}
	if opt.AVOnly && Classify(ext) == domain.MediaOther {
		return false
	}
	return true
}

// narrow 在提示类型存在时收窄；否则原样返回（不因提示不匹配而返回空）。
func narrow(pool []Candidate, hint domain.MediaType) []Candidate {
	if hint == "" {
		return pool
	}
	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Type == hint {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return pool
	}
	return out
}

// Score 计算单个文件的分数：层级基础分 + 来源加分 + 体积加分 - 名称/文档惩罚。
func Score(f domain.FileDescriptor) float64 {
	ext := extOf(f)
	s := tierBase[ext] // 不在表中 => 0（other）

	if strings.EqualFold(strings.TrimSpace(f.Source), "original") {
		s += originalBonus
	}
	s += sizeBonus(f.Size)

	if coverNameRE.MatchString(f.Name) {
		s -= namePenalty
	}
	if _, bad := documentExts[ext]; bad {
		s -= documentPenalty
	}
	return s
}

// sizeBonus 是递减收益的体积加分：min(30, log10(size)*4)；size<=0 不加分。
func sizeBonus(size int64) float64 {
	if size <= 0 {
		return 0
	}
	b := math.Log10(float64(size)) * 4
	if b > maxSizeBonus {
		return maxSizeBonus
	}
	return b
}

// extOf 返回规范化的扩展名：调用方给出的 Extension 优先，为空时从 Name 推导。
func extOf(f domain.FileDescriptor) string {
	if ext := normExt(f.Extension); ext != "" {
		return ext
	}
	return domain.ExtOf(f.Name)
}

func normExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
