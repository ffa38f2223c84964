package search

import (
	"reflect"
	"testing"
)

func TestNormalizeSorts(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{nil, []string{"date desc", "identifier asc"}},
		{[]string{"downloads desc"}, []string{"downloads desc", "identifier asc"}},
		{[]string{"title"}, []string{"title asc", "identifier asc"}},
		{[]string{"date DESC", "identifier desc"}, []string{"date desc", "identifier desc"}},
		{[]string{"identifier asc", "date desc"}, []string{"identifier asc", "date desc", "identifier asc"}},
		{[]string{"  ", ""}, []string{"identifier asc"}},
	}
	for _, c := range cases {
		if got := NormalizeSorts(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("NormalizeSorts(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeFields(t *testing.T) {
	got := NormalizeFields([]string{"title", " title ", "", "date"})
	want := []string{"identifier", "title", "date"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeFields=%q，期望 %q", got, want)
	}
	if got := NormalizeFields(nil); !reflect.DeepEqual(got, DefaultFields) {
		t.Fatalf("空 fields 应使用默认值，实际 %q", got)
	}
}

func TestNormalizeParams_CountFloor(t *testing.T) {
	if p := NormalizeParams(Params{Query: " q ", Count: 10}); p.Count != MinPageSize || p.Query != "q" {
		t.Fatalf("count/query 规范化不符：%+v", p)
	}
	if p := NormalizeParams(Params{Query: "q", Count: 500}); p.Count != 500 {
		t.Fatalf("count=500 不应被修改，实际 %d", p.Count)
	}
}

func TestQueryForUserAndSplitList(t *testing.T) {
	if got := QueryForUser(" someone@example.org "); got != "uploader:(someone@example.org)" {
		t.Fatalf("QueryForUser=%q", got)
	}
	if got := QueryForUser(""); got != "" {
		t.Fatalf("空 user 应返回空 query，实际 %q", got)
	}
	if got := SplitList(" a, b ,,c "); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("SplitList=%q", got)
	}
}
