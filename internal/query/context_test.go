package query

import (
	"strings"
	"testing"

	"workitems-ai/internal/index"
)

func scoredDocs() []*index.Document {
	return []*index.Document{
		{ItemID: "57", Title: "Mid", Type: "Bug", State: "Active", URL: "https://t/57", Content: "Title: Mid"},
		{ItemID: "12", Title: "Low", Type: "Task", State: "Closed", URL: "https://t/12", Content: "Title: Low"},
		{ItemID: "200", Title: "High", Type: "Bug", State: "New", URL: "https://t/200", Content: "Title: High"},
	}
}

func TestBuildContextOrdering(t *testing.T) {
	ctx := buildContext(scoredDocs())

	i12 := strings.Index(ctx, "Work Item #12:")
	i57 := strings.Index(ctx, "Work Item #57:")
	i200 := strings.Index(ctx, "Work Item #200:")
	if i12 < 0 || i57 < 0 || i200 < 0 {
		t.Fatalf("expected all items in context, got:\n%s", ctx)
	}
	if !(i12 < i57 && i57 < i200) {
		t.Errorf("expected ascending numeric ID order, got positions %d, %d, %d", i12, i57, i200)
	}
}

func TestBuildContextTemplate(t *testing.T) {
	docs := []*index.Document{{
		ItemID:     "123",
		Title:      "Login fails",
		Type:       "Bug",
		State:      "Active",
		AssignedTo: "Dana Scully",
		Tags:       "auth",
		Content:    "Title: Login fails",
	}}

	ctx := buildContext(docs)
	if !strings.Contains(ctx, "Work Item #123: Login fails") {
		t.Errorf("expected header line, got:\n%s", ctx)
	}
	if !strings.Contains(ctx, "Type: Bug | State: Active | Assigned To: Dana Scully") {
		t.Errorf("expected metadata line, got:\n%s", ctx)
	}
	if !strings.Contains(ctx, "Tags: auth") {
		t.Errorf("expected tags line, got:\n%s", ctx)
	}
	if strings.Contains(ctx, "Created:") {
		t.Errorf("expected no created line for zero timestamp, got:\n%s", ctx)
	}
}

func TestBuildContextUnassigned(t *testing.T) {
	docs := []*index.Document{{ItemID: "1", Title: "T", Type: "Bug", State: "New", Content: "c"}}
	if ctx := buildContext(docs); !strings.Contains(ctx, "Assigned To: Unassigned") {
		t.Errorf("expected unassigned placeholder, got:\n%s", ctx)
	}
}

func TestCountOnlyContext(t *testing.T) {
	ctx := countOnlyContext(42)
	if !strings.HasPrefix(ctx, "===== ANSWER: 42 =====") {
		t.Errorf("expected answer block prefix, got:\n%s", ctx)
	}
	if !strings.Contains(ctx, "Do not list individual items") {
		t.Errorf("expected count-only directive, got:\n%s", ctx)
	}
	if strings.Contains(ctx, "Work Item #") {
		t.Errorf("expected no item bodies, got:\n%s", ctx)
	}
}

func TestCountedContext(t *testing.T) {
	ctx := countedContext(42, scoredDocs())
	if !strings.HasPrefix(ctx, "===== ANSWER: 42 =====") {
		t.Errorf("expected answer block prefix, got:\n%s", ctx)
	}
	if !strings.Contains(ctx, "Below are 3 sample items") {
		t.Errorf("expected sample item note, got:\n%s", ctx)
	}
	if !strings.Contains(ctx, "Work Item #12:") {
		t.Errorf("expected item bodies after count block, got:\n%s", ctx)
	}
}

func TestBuildReferencesOrdering(t *testing.T) {
	refs := buildReferences(scoredDocs())
	lines := strings.Split(refs, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 reference lines, got %d:\n%s", len(lines), refs)
	}
	if !strings.HasPrefix(lines[0], "- [#12](https://t/12) - **Low** (Task - Closed)") {
		t.Errorf("unexpected first reference: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "- [#57]") || !strings.HasPrefix(lines[2], "- [#200]") {
		t.Errorf("expected ascending ID order, got:\n%s", refs)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := truncate(long, 200)
	if len([]rune(got)) != 203 {
		t.Errorf("expected 200 runes plus ellipsis, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got[len(got)-10:])
	}
	if short := truncate("short", 200); short != "short" {
		t.Errorf("expected short string unchanged, got %q", short)
	}
}
