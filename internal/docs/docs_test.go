package docs

import (
	"strings"
	"testing"
)

func TestTopics_ListsEmbeddedContent(t *testing.T) {
	got := strings.Join(Topics(), ",")
	if got != "api,intro,keys" {
		t.Fatalf("unexpected topics: %q", got)
	}
}

func TestGet_IsCaseInsensitiveAndRejectsPaths(t *testing.T) {
	if _, ok := Get(" Intro "); !ok {
		t.Fatalf("expected intro topic")
	}
	for _, bad := range []string{"", "../docs", "content/intro", "missing"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
	if !strings.Contains(Intro(), "reactive store") {
		t.Fatalf("unexpected intro: %q", Intro())
	}
}
