package stats

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTableAlignsColumnsUnderRule(t *testing.T) {
	tbl := newTable(column{title: "Trait"}, column{title: "Score", right: true}, column{title: "Level"})
	tbl.add("openness", "72.5", "high")
	tbl.add("neuroticism", "8.0", "low")

	want := []string{
		"Trait       Score Level",
		"----------- ----- -----",
		"openness     72.5 high",
		"neuroticism   8.0 low",
	}
	if diff := cmp.Diff(want, tbl.lines()); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestTableCountsCellWidth(t *testing.T) {
	tbl := newTable(column{title: "Bar"}, column{title: "N"})
	tbl.add("abc", "1")
	tbl.add("日本", "2")
	lines := tbl.lines()
	if lines[2] != "abc  1" {
		t.Fatalf("unexpected ascii row: %q", lines[2])
	}
	if lines[3] != "日本 2" {
		t.Fatalf("unexpected wide row: %q", lines[3])
	}
}

func TestTableKeepsTrendTail(t *testing.T) {
	tbl := newTable(column{title: "Trait"}, column{}, column{title: "Trend", tail: 5})
	tbl.add("openness", "##", "▁▂▃▄▅▆▇█")
	tbl.add("agreeableness", "", "▁▂")

	want := []string{
		"Trait            Trend",
		"-------------    -----",
		"openness      ## …▅▆▇█",
		"agreeableness    ▁▂",
	}
	if diff := cmp.Diff(want, tbl.lines()); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestTableWriteAndEmpty(t *testing.T) {
	if lines := newTable().lines(); lines != nil {
		t.Fatalf("expected no lines for a table without columns, got %q", lines)
	}
	var buf bytes.Buffer
	tbl := newTable(column{title: "Session"})
	tbl.add("s-1")
	if err := tbl.write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "Session\n-------\ns-1\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
