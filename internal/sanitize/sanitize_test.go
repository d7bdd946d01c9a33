package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestText_StripsScriptTags(t *testing.T) {
	got := Text(nil, `hello <script>alert("xss")</script> world`, 0)
	if strings.Contains(got, "alert") {
		t.Errorf("script content survived: %q", got)
	}
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Errorf("surrounding text lost: %q", got)
	}
}

func TestText_StripsScriptTagsCaseInsensitive(t *testing.T) {
	got := Text(nil, `<SCRIPT src="evil.js">payload</SCRIPT>ok`, 0)
	if strings.Contains(got, "payload") {
		t.Errorf("script content survived: %q", got)
	}
	if !strings.Contains(got, "ok") {
		t.Errorf("text lost: %q", got)
	}
}

func TestText_StripsHTMLTags(t *testing.T) {
	got := Text(nil, `<b>bold</b> and <a href="x">link</a>`, 0)
	if strings.Contains(got, "<b>") || strings.Contains(got, "<a") {
		t.Errorf("tags survived: %q", got)
	}
	if !strings.Contains(got, "bold") || !strings.Contains(got, "link") {
		t.Errorf("inner text lost: %q", got)
	}
}

func TestText_EscapesEntities(t *testing.T) {
	got := Text(nil, `a & b`, 0)
	if got != "a &amp; b" {
		t.Errorf("got %q, want %q", got, "a &amp; b")
	}
}

func TestText_TrimsWhitespace(t *testing.T) {
	got := Text(nil, "  padded  ", 0)
	if got != "padded" {
		t.Errorf("got %q, want %q", got, "padded")
	}
}

func TestText_Truncates(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := Text(nil, long, 10)
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
}

func TestText_TruncatesOnRuneBoundary(t *testing.T) {
	got := Text(nil, strings.Repeat("é", 10), 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated output is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 5); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestText_MultibyteUnderCapUntouched(t *testing.T) {
	// 3 characters, 6 bytes; cap of 5 counts characters.
	got := Text(nil, "ééé", 5)
	if got != "ééé" {
		t.Errorf("got %q, want %q", got, "ééé")
	}
}

func TestText_Empty(t *testing.T) {
	if got := Text(nil, "", 10); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestChatMessage_Cap(t *testing.T) {
	long := strings.Repeat("m", MaxChatMessageLen+100)
	got := ChatMessage(nil, long)
	if len(got) != MaxChatMessageLen {
		t.Errorf("len = %d, want %d", len(got), MaxChatMessageLen)
	}
}

func TestTaskTitle_Cap(t *testing.T) {
	long := strings.Repeat("t", MaxTitleLen+50)
	got := TaskTitle(nil, long)
	if len(got) != MaxTitleLen {
		t.Errorf("len = %d, want %d", len(got), MaxTitleLen)
	}
}

func TestTaskDescription_EmptyStaysEmpty(t *testing.T) {
	if got := TaskDescription(nil, ""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestTaskDescription_Cap(t *testing.T) {
	long := strings.Repeat("d", MaxDescriptionLen+1)
	got := TaskDescription(nil, long)
	if len(got) != MaxDescriptionLen {
		t.Errorf("len = %d, want %d", len(got), MaxDescriptionLen)
	}
}
