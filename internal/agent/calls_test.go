package agent

import (
	"testing"
)

func TestHasInlineCalls(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"empty", "", false},
		{"plain text", "I added the task for you.", false},
		{"marker present", `<function=add_task={"title": "x"}</function>`, true},
		{"marker mid-text", `Sure! <function=list_tasks={"is_complete": false}</function>`, true},
		{"bare marker", "something <function= odd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasInlineCalls(tt.content); got != tt.want {
				t.Errorf("HasInlineCalls(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestParseInlineCalls_Single(t *testing.T) {
	calls := ParseInlineCalls(nil, `<function=add_task={"title": "Buy milk"}</function>`)
	if len(calls) != 1 {
		t.Fatalf("len = %d, want 1", len(calls))
	}
	if calls[0].Name != "add_task" {
		t.Errorf("name = %q", calls[0].Name)
	}
	if calls[0].Arguments["title"] != "Buy milk" {
		t.Errorf("title = %v", calls[0].Arguments["title"])
	}
}

func TestParseInlineCalls_MultipleInDocumentOrder(t *testing.T) {
	content := `First <function=list_tasks={"is_complete": false}</function> then ` +
		`<function=add_task={"title": "second"}</function>`

	calls := ParseInlineCalls(nil, content)
	if len(calls) != 2 {
		t.Fatalf("len = %d, want 2", len(calls))
	}
	if calls[0].Name != "list_tasks" || calls[1].Name != "add_task" {
		t.Errorf("order = [%s %s], want [list_tasks add_task]", calls[0].Name, calls[1].Name)
	}
}

func TestParseInlineCalls_MalformedJSONSkipped(t *testing.T) {
	content := `<function=add_task={"title": broken}</function>` +
		`<function=list_tasks={"is_complete": true}</function>`

	calls := ParseInlineCalls(nil, content)
	if len(calls) != 1 {
		t.Fatalf("len = %d, want 1 (malformed sibling skipped)", len(calls))
	}
	if calls[0].Name != "list_tasks" {
		t.Errorf("name = %q", calls[0].Name)
	}
}

func TestParseInlineCalls_TrimsName(t *testing.T) {
	calls := ParseInlineCalls(nil, `<function= add_task ={"title": "x"}</function>`)
	if len(calls) != 1 {
		t.Fatalf("len = %d, want 1", len(calls))
	}
	if calls[0].Name != "add_task" {
		t.Errorf("name = %q, want trimmed", calls[0].Name)
	}
}

func TestParseInlineCalls_NoMatches(t *testing.T) {
	if calls := ParseInlineCalls(nil, "just chatting"); calls != nil {
		t.Errorf("expected nil, got %v", calls)
	}
	if calls := ParseInlineCalls(nil, ""); calls != nil {
		t.Errorf("expected nil for empty content, got %v", calls)
	}
}

func TestParseInlineCalls_RequiresAsymmetricClosing(t *testing.T) {
	// A "well-formed" variant with a closed opening tag does not match.
	calls := ParseInlineCalls(nil, `<function=add_task={"title": "x"}></function>`)
	if len(calls) != 0 {
		t.Errorf("len = %d, want 0", len(calls))
	}
}

func TestStripInlineCalls(t *testing.T) {
	content := `I'll add that. <function=add_task={"title": "x"}</function> Done!`
	got := StripInlineCalls(content)
	if got != "I'll add that.  Done!" {
		t.Errorf("got %q", got)
	}
	if HasInlineCalls(got) {
		t.Errorf("marker survived strip: %q", got)
	}
}

func TestStripInlineCalls_OnlyCalls(t *testing.T) {
	got := StripInlineCalls(`<function=add_task={"title": "x"}</function>`)
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestStripInlineCalls_Empty(t *testing.T) {
	if got := StripInlineCalls(""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
