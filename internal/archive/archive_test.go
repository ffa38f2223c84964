package archive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleMetadata = `{
  "server": "ia800300.us.archive.org",
  "dir": "/12/items/night_of_the_living_dead",
  "metadata": {
    "identifier": "night_of_the_living_dead",
    "title": "Night of the Living Dead",
    "description": ["<p>George A. Romero's classic.<br>Public domain.</p>", "Second &amp; part"]
  },
  "files": [
    {"name": "night_of_the_living_dead.mp4", "size": "512345678", "source": "derivative"},
    {"name": "night_of_the_living_dead.avi", "size": 734003200, "source": "original"},
    {"name": "", "size": "1"},
    {"name": "night_of_the_living_dead_meta.xml", "source": "metadata"}
  ]
}`

func TestParseMetadata(t *testing.T) {
	m, err := ParseMetadata("night_of_the_living_dead", []byte(sampleMetadata))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if m.Server != "ia800300.us.archive.org" || m.Dir != "/12/items/night_of_the_living_dead" {
		t.Fatalf("server/dir 不符合预期：%+v", m)
	}
	if m.Title != "Night of the Living Dead" {
		t.Fatalf("title 不符合预期：%q", m.Title)
	}
	if len(m.Files) != 3 {
		t.Fatalf("空 name 的文件应被丢弃，实际 %d 个", len(m.Files))
	}
	if m.Files[0].Size != 512345678 || m.Files[1].Size != 734003200 || m.Files[2].Size != 0 {
		t.Fatalf("size 解析不符合预期：%+v", m.Files)
	}
	if m.Files[0].Extension != "mp4" {
		t.Fatalf("extension 未派生：%+v", m.Files[0])
	}
	want := "George A. Romero's classic.\nPublic domain.\n\nSecond & part"
	if m.Description != want {
		t.Fatalf("description 不符合预期：%q", m.Description)
	}
}

func TestParseMetadata_MissingFields(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"server":"s","dir":"/d","files":[]}`,
		`{"server":"","dir":"/d","files":[{"name":"a.mp4"}]}`,
	} {
		_, err := ParseMetadata("x", []byte(body))
		if !errors.Is(err, ErrMissingFields) {
			t.Fatalf("body=%s 期望 ErrMissingFields，实际 %v", body, err)
		}
	}
}

func TestClient_Metadata_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata/some_item" {
			t.Errorf("请求路径不符合预期：%s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("缺少 Accept: application/json")
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL+"/metadata", "")
	_, err := c.Metadata(context.Background(), "some_item")
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("期望 HTTP 503，实际 %v", err)
	}
}

func TestClient_FetchPage_EncodesParamsAndParses(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"identifier":"a"},"junk",{"identifier":"b","title":"B"}],"count":2,"cursor":"NEXT"}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), "", srv.URL+"/scrape")
	p, err := c.FetchPage(context.Background(), ScrapeRequest{
		Query:  "uploader:(someone)",
		Fields: []string{"identifier", "title"},
		Sorts:  []string{"date desc", "identifier asc"},
		Count:  100,
		Cursor: "PREV",
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	checks := map[string]string{
		"q":      "uploader:(someone)",
		"fields": "identifier,title",
		"sorts":  "date desc,identifier asc",
		"count":  "100",
		"cursor": "PREV",
	}
	for k, v := range checks {
		if got := strings.Join(gotQuery[k], ","); got != v {
			t.Fatalf("参数 %s=%q，期望 %q", k, got, v)
		}
	}

	if len(p.Items) != 2 || p.Items[1].Title() != "B" {
		t.Fatalf("items 解析不符合预期：%+v", p.Items)
	}
	if p.Cursor != "NEXT" {
		t.Fatalf("cursor 不符合预期：%q", p.Cursor)
	}
}

func TestClient_FetchPage_FirstPageOmitsCursorAndToleratesBadItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["cursor"]; ok {
			t.Errorf("首页不应携带 cursor")
		}
		_, _ = w.Write([]byte(`{"items":{"oops":true},"cursor":null}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), "", srv.URL)
	p, err := c.FetchPage(context.Background(), ScrapeRequest{Query: "x", Count: 100})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(p.Items) != 0 || p.Cursor != "" {
		t.Fatalf("非数组 items 应视为空页，实际 %+v", p)
	}
}

func TestDirectURLAndLinks(t *testing.T) {
	got := DirectURL("ia800300.us.archive.org", "/12/items/foo/", "disc 1/track #1.mp3")
	want := "https://ia800300.us.archive.org/12/items/foo/disc%201/track%20%231.mp3"
	if got != want {
		t.Fatalf("DirectURL=%q，期望 %q", got, want)
	}
	// 段内的 & = + : 是合法路径字符，保持原样；? 必须转义。
	got = DirectURL("ia800300.us.archive.org", "/12/items/foo", "sub/a&b=c+d:e?.mp4")
	want = "https://ia800300.us.archive.org/12/items/foo/sub/a&b=c+d:e%3F.mp4"
	if got != want {
		t.Fatalf("DirectURL=%q，期望 %q", got, want)
	}
	if DetailsURL("foo") != "https://archive.org/details/foo" {
		t.Fatalf("DetailsURL 不符合预期：%q", DetailsURL("foo"))
	}
	if ThumbURL("foo") != "https://archive.org/services/img/foo" {
		t.Fatalf("ThumbURL 不符合预期：%q", ThumbURL("foo"))
	}
	if !strings.Contains(EmbedHTML("foo"), `src="https://archive.org/embed/foo"`) {
		t.Fatalf("EmbedHTML 不符合预期：%q", EmbedHTML("foo"))
	}
}

func TestDescriptionText(t *testing.T) {
	cases := map[string]string{
		"":                                "",
		"  plain   text \n\n\n more ":     "plain text\n\nmore",
		"<div>a</div><div>b</div>":        "a\nb",
		"x<script>alert(1)</script>y":     "xy",
		"<b>bold</b> &lt;tag&gt; &amp; ok": "bold <tag> & ok",
	}
	for in, want := range cases {
		if got := DescriptionText(in); got != want {
			t.Fatalf("DescriptionText(%q)=%q，期望 %q", in, got, want)
		}
	}
}
