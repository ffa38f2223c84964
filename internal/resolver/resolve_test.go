package resolver

import (
	"reflect"
	"testing"

	"github.com/John-Robertt/iagallery/internal/domain"
)

func fd(name string, size int64, source string) domain.FileDescriptor {
	return domain.NewFileDescriptor(name, size, source)
}

func TestResolve_ScoringExample(t *testing.T) {
	files := []domain.FileDescriptor{
		fd("movie.mp4", 5_000_000_000, "original"),
		fd("movie_thumb.jpg", 12_000, ""),
		fd("movie.mkv", 6_000_000_000, "original"),
	}

	c, ok := Resolve(files, "")
	if !ok {
		t.Fatalf("期望找到候选，但 ok=false")
	}
	if c.File.Name != "movie.mp4" {
		t.Fatalf("期望 movie.mp4，实际 %q", c.File.Name)
	}
	if c.Type != domain.MediaVideo {
		t.Fatalf("期望 video，实际 %q", c.Type)
	}
}

func TestResolve_PlayableBeatsMKVAndCaptionsRegardlessOfSize(t *testing.T) {
	files := []domain.FileDescriptor{
		fd("big.mkv", 90_000_000_000, "original"),
		fd("big.avi", 80_000_000_000, "original"),
		fd("subs.srt", 100, "original"),
		fd("subs.vtt", 100, "original"),
		fd("item_meta.xml", 3_000, "metadata"),
		fd("tiny.ogv", 1, "derivative"),
	}
	c, ok := Resolve(files, "")
	if !ok || c.File.Name != "tiny.ogv" {
		t.Fatalf("期望 tiny.ogv，实际 %+v ok=%v", c, ok)
	}
}

func TestResolve_EarlierExtensionAlwaysOutranksLaterInTier(t *testing.T) {
	// 靠后的扩展名拿满加分，靠前的扩展名零加分：前者依然不能胜出。
	for i := 1; i < len(playableVideo); i++ {
		prev, cur := playableVideo[i-1], playableVideo[i]
		files := []domain.FileDescriptor{
			fd("b."+cur, 1<<40, "original"),
			fd("a."+prev, 0, "derivative"),
		}
		c, _ := Resolve(files, "")
		if c.File.Extension != prev {
			t.Fatalf("%s 应优先于 %s，实际选中 %q", prev, cur, c.File.Name)
		}
	}
}

func TestResolve_TierBandsDoNotOverlap(t *testing.T) {
	// 按优先级展开的全部扩展名（jpg/jpeg 同级，只取 jpg）。
	order := append(append(append([]string{}, playableVideo...), downloadVideo...), audioExts...)
	order = append(order, "jpg", "png", "webp", "gif")

	for i := 1; i < len(order); i++ {
		hi, lo := order[i-1], order[i]
		worst := tierBase[hi] - namePenalty
		best := tierBase[lo] + maxBonus
		if best >= worst {
			t.Fatalf("%s 拿满加分（%.1f）不应达到带惩罚的 %s（%.1f）", lo, best, hi, worst)
		}
	}
	// 最低档图片减去惩罚后仍高于 other 的加分上限。
	if tierBase["gif"]-namePenalty <= maxBonus {
		t.Fatalf("gif 带惩罚的分数 %.1f 不应低于 other 的最高分 %d", tierBase["gif"]-namePenalty, maxBonus)
	}
}

func TestResolve_PenalizedPlayableStillBeatsBonusedDownload(t *testing.T) {
	cases := []struct {
		name  string
		files []domain.FileDescriptor
		want  string
	}{
		{
			name:  "ogv 带 cover 惩罚 vs 大体积 mkv",
			files: []domain.FileDescriptor{fd("cover_story.ogv", 0, "derivative"), fd("film.mkv", 6_000_000_000, "original")},
			want:  "cover_story.ogv",
		},
		{
			name:  "discover 命中 cover 惩罚",
			files: []domain.FileDescriptor{fd("film.avi", 1<<40, "original"), fd("discover.ogv", 1, "")},
			want:  "discover.ogv",
		},
		{
			name:  "avi 带惩罚 vs mp3 满加分",
			files: []domain.FileDescriptor{fd("song.mp3", 1<<40, "original"), fd("poster.avi", 0, "")},
			want:  "poster.avi",
		},
		{
			name:  "mp4 带惩罚 vs webm 满加分",
			files: []domain.FileDescriptor{fd("b.webm", 1<<40, "original"), fd("thumb.mp4", 0, "")},
			want:  "thumb.mp4",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, ok := Resolve(tc.files, "")
			if !ok || c.File.Name != tc.want {
				t.Fatalf("期望 %s，实际 %q（score=%.1f）", tc.want, c.File.Name, c.Score)
			}
		})
	}
}

func TestResolve_NormalizesCallerSuppliedExtension(t *testing.T) {
	files := []domain.FileDescriptor{
		{Name: "movie.SRT", Extension: "SRT", Size: 10_000_000},
		{Name: "movie.MP4", Extension: ".MP4", Size: 1_000},
	}
	ranked := Rank(files, Options{})
	if len(ranked) != 1 {
		t.Fatalf("字幕不应进入候选池，实际 %+v", ranked)
	}
	if ranked[0].File.Name != "movie.MP4" || ranked[0].File.Extension != "mp4" || ranked[0].Type != domain.MediaVideo {
		t.Fatalf("扩展名应规范化为 mp4：%+v", ranked[0])
	}
	if got, want := Score(files[1]), Score(fd("movie.mp4", 1_000, "")); got != want {
		t.Fatalf("大写扩展名分数=%.1f，期望 %.1f", got, want)
	}
	if got := Score(files[0]); got >= 0 {
		t.Fatalf("大写字幕扩展名仍应扣分，实际 %.1f", got)
	}
}

func TestResolve_ZeroSizeIsSameAsNoSizeBonus(t *testing.T) {
	files := []domain.FileDescriptor{
		fd("a.mp3", 0, ""),
		fd("b.flac", 0, "original"),
		fd("c.webm", 0, ""),
		fd("cover.mp4", 0, ""),
		fd("d.zip", 0, "original"),
	}
	for _, f := range files {
		withoutSize := tierBase[f.Extension]
		if f.Source == "original" {
			withoutSize += originalBonus
		}
		if coverNameRE.MatchString(f.Name) {
			withoutSize -= namePenalty
		}
		if got := Score(f); got != withoutSize {
			t.Fatalf("%s：size=0 时分数应为 %.1f，实际 %.1f", f.Name, withoutSize, got)
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	files := []domain.FileDescriptor{
		fd("x.mp3", 10_000, ""),
		fd("y.mp3", 10_000, ""),
		fd("z.m4a", 10_000_000, "original"),
	}
	a := Rank(files, Options{})
	b := Rank(files, Options{})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("两次结果不一致：%+v vs %+v", a, b)
	}
	// 同分：保持原列表顺序。
	if a[0].File.Name != "x.mp3" || a[1].File.Name != "y.mp3" {
		t.Fatalf("同分应保持原顺序，实际 %q, %q", a[0].File.Name, a[1].File.Name)
	}
}

func TestResolve_HintNarrowsAndFallsBack(t *testing.T) {
	files := []domain.FileDescriptor{
		fd("film.mp4", 1_000_000, "original"),
		fd("track.mp3", 1_000, ""),
	}

	c, _ := Resolve(files, domain.MediaAudio)
	if c.File.Name != "track.mp3" {
		t.Fatalf("audio 提示应收窄到 mp3，实际 %q", c.File.Name)
	}

	// 提示不匹配：回退到全池，而不是返回空。
	c, ok := Resolve(files, domain.MediaImage)
	if !ok || c.File.Name != "film.mp4" {
		t.Fatalf("提示不匹配时应回退，实际 %+v ok=%v", c, ok)
	}
}

func TestResolve_ImagesOnlyWhenHinted(t *testing.T) {
	files := []domain.FileDescriptor{
		fd("photo.png", 2_000_000, "original"),
		fd("photo_thumb.jpg", 5_000, "derivative"),
		fd("scan.JPEG", 3_000_000, "original"),
	}

	if c, ok := Resolve(files, ""); ok {
		t.Fatalf("无提示时不应选中图片：%+v", c)
	}

	c, ok := Resolve(files, domain.MediaImage)
	if !ok || c.File.Name != "scan.JPEG" {
		t.Fatalf("image 提示下期望 scan.JPEG，实际 %+v ok=%v", c, ok)
	}
	if c.Type != domain.MediaImage {
		t.Fatalf("期望 image，实际 %q", c.Type)
	}
}

func TestResolve_OtherIsLastResort(t *testing.T) {
	files := []domain.FileDescriptor{
		fd("book.pdf", 1_000_000, "original"),
		fd("book_djvu.txt", 10_000, "derivative"),
		fd("noext", 10, "original"),
	}
	c, ok := Resolve(files, "")
	if !ok || c.File.Name != "book.pdf" || c.Type != domain.MediaOther {
		t.Fatalf("期望 book.pdf/other，实际 %+v ok=%v", c, ok)
	}

	if _, ok := ResolveWith(files, Options{AVOnly: true}); ok {
		t.Fatalf("AVOnly 时不应返回 other 文件")
	}

	files = append(files, fd("reading.ogg", 5, ""))
	c, _ = Resolve(files, "")
	if c.File.Name != "reading.ogg" {
		t.Fatalf("存在音频时 other 不应胜出，实际 %q", c.File.Name)
	}
}

func TestResolve_EmptyAndAllExcluded(t *testing.T) {
	if _, ok := Resolve(nil, ""); ok {
		t.Fatalf("空列表应返回 ok=false")
	}
	files := []domain.FileDescriptor{fd("a.srt", 1, ""), fd("b.json", 1, ""), fd("README", 1, "")}
	if _, ok := Resolve(files, ""); ok {
		t.Fatalf("全部被排除时应返回 ok=false")
	}
}

func TestScore_PenaltiesAndBonuses(t *testing.T) {
	base := Score(fd("a.mp4", 0, ""))
	if got := Score(fd("a.mp4", 0, "ORIGINAL")); got != base+originalBonus {
		t.Fatalf("original 加分不区分大小写：期望 %.1f，实际 %.1f", base+originalBonus, got)
	}
	if got := Score(fd("Poster.mp4", 0, "")); got != base-namePenalty {
		t.Fatalf("poster 惩罚：期望 %.1f，实际 %.1f", base-namePenalty, got)
	}
	if got := Score(fd("a.mp4", 1_000_000_000_000, "")); got != base+maxSizeBonus {
		t.Fatalf("体积加分上限：期望 %.1f，实际 %.1f", base+maxSizeBonus, got)
	}
	if got := Score(fd("a.srt", 0, "")); got != -documentPenalty {
		t.Fatalf("文档惩罚：期望 %d，实际 %.1f", -documentPenalty, got)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]domain.MediaType{
		"MP4":  domain.MediaVideo,
		".mkv": domain.MediaVideo,
		"flac": domain.MediaAudio,
		"jpeg": domain.MediaImage,
		"gif":  domain.MediaImage,
		"pdf":  domain.MediaOther,
		"":     domain.MediaOther,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Fatalf("Classify(%q)=%q，期望 %q", in, got, want)
		}
	}
	if !IsPlayableInBrowser(".WebM") || IsPlayableInBrowser("mkv") {
		t.Fatalf("IsPlayableInBrowser 判定不正确")
	}
}
