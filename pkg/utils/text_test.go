package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("héllo", 2); got != "hé..." {
		t.Errorf("multi-byte: got %s", got)
	}
}

func TestClip(t *testing.T) {
	if got := Clip("question text", 8); got != "question" {
		t.Errorf("got %q", got)
	}
	if got := Clip("日本語です", 3); got != "日本語" {
		t.Errorf("got %q", got)
	}
	if got := Clip("abc", -1); got != "abc" {
		t.Errorf("got %q", got)
	}
}
