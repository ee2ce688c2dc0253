package inspector

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func deployExport() *ProcessExport {
	return &ProcessExport{
		ID:      "proc-1",
		Goal:    "shipped",
		Status:  "COMPLETED",
		Reason:  "goal shipped satisfied",
		Cost:    1.5,
		Actions: 2,
		Steps: []StepExport{
			{Number: 1, Plan: []string{"build", "ship"}, Action: "build", Cost: 1, Duration: time.Millisecond, Progress: true},
			{Number: 2, Plan: []string{"ship"}, Action: "ship", Cost: 0.5, Duration: time.Millisecond, Progress: true},
		},
	}
}

func TestInspector_Formats(t *testing.T) {
	t.Parallel()

	got := New().Formats()
	want := []Format{FormatDOT, FormatJSON, FormatMermaid}
	if len(got) != len(want) {
		t.Fatalf("Formats() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Formats()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestInspector_Export(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatDOT, []string{
			"digraph proc_1 {",
			`start [label="goal: shipped", shape=circle];`,
			`step1 [label="1. build"];`,
			`start -> step1 [label="1"];`,
			`step1 -> step2 [label="0.5"];`,
			"fillcolor=lightgreen",
			"step2 -> finish;",
		}},
		{FormatMermaid, []string{
			"flowchart LR",
			`start(("goal: shipped"))`,
			`start -- 1 --> step1["1. build"]`,
			`step1 -- 0.5 --> step2["2. ship"]`,
			"step2 --> finish(((COMPLETED)))",
			"style finish fill:#90ee90",
		}},
		{FormatJSON, []string{`"goal": "shipped"`, `"action": "ship"`}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			out, err := New().Export(deployExport(), tt.format)
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(out), w) {
					t.Errorf("Export() missing %q, got:\n%s", w, out)
				}
			}
		})
	}
}

func TestInspector_ExportUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := New().Export(deployExport(), "html"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Export() error = %v, want %v", err, ErrUnknownFormat)
	}
}

func TestFormatters_MarkFailures(t *testing.T) {
	t.Parallel()

	p := deployExport()
	p.Status = "FAILED"
	p.Steps = []StepExport{
		{Number: 1, Action: "build", Cost: 1},
		{Number: 2, Action: "ship", Cost: 0.5, Error: "boom"},
		{Number: 3, Plan: nil},
	}

	dot, err := NewDOTFormatter().Format(p)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	for _, w := range []string{"fillcolor=lightyellow", "fillcolor=lightcoral", "step2 -> finish;"} {
		if !strings.Contains(string(dot), w) {
			t.Errorf("DOT missing %q, got:\n%s", w, dot)
		}
	}
	if strings.Contains(string(dot), "step3") {
		t.Errorf("DOT rendered a step without an action:\n%s", dot)
	}

	mermaid, err := NewMermaidFormatter().Format(p)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	for _, w := range []string{"class step2 failed", "class step1 idle", "finish(((FAILED)))"} {
		if !strings.Contains(string(mermaid), w) {
			t.Errorf("Mermaid missing %q, got:\n%s", w, mermaid)
		}
	}
}

func TestJSONFormatter_Compact(t *testing.T) {
	t.Parallel()

	out, err := NewJSONFormatter().Format(deployExport())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Contains(string(out), "\n") {
		t.Errorf("Format() = %s, want a single line", out)
	}
	var back ProcessExport
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(back.Steps) != 2 || back.Steps[1].Action != "ship" {
		t.Errorf("Steps = %+v, want build then ship", back.Steps)
	}
}
