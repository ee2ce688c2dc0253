package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	domainconfig "github.com/felixgeelhaar/goap/domain/config"
	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/process"
	"github.com/felixgeelhaar/goap/infrastructure/inspector"
	"github.com/felixgeelhaar/goap/infrastructure/logging"
)

const deployConfig = `
name: deploy
version: "1.0"
description: Build and ship an artifact
process:
  goal: shipped
domain:
  conditions:
    approved: true
  actions:
    - name: build
      effects: {built: true}
      cost: 1
      bindings: {artifact: app.tar}
    - name: ship
      pre: {built: true, approved: true}
      effects: {shipped: true}
      cost: 0.5
    - name: announce
      effects: {announced: true}
      cost: 0.25
  goals:
    - name: shipped
      pre: {shipped: true}
      value: 10
    - name: announced
      pre: {announced: true}
      value: 1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "goap.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// withStorage appends sqlite process and event stores under dir.
func withStorage(content, dir string) string {
	return content + fmt.Sprintf(`storage:
  processes:
    type: sqlite
    dsn: %s
  events:
    type: sqlite
    dsn: %s
`, filepath.Join(dir, "processes.db"), filepath.Join(dir, "events.db"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	err := app.ExecuteWithArgs(context.Background(), args)
	return stdout.String(), err
}

func TestApp_Version(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "goap version "+Version) {
		t.Errorf("version output = %q, want goap version %s", out, Version)
	}
}

func TestApp_Help(t *testing.T) {
	out, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, cmd := range []string{"validate", "plan", "run", "list", "inspect"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help output missing %q, got: %s", cmd, out)
		}
	}
}

func TestApp_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{
			name:    "valid",
			content: deployConfig,
			want:    "Configuration is valid",
		},
		{
			name:    "missing name",
			content: "name: \"\"\nversion: \"\"\n",
			wantErr: domainconfig.ErrValidationFailed,
		},
		{
			name:    "unknown planner",
			content: "name: x\nversion: \"1\"\nprocess:\n  planner: dijkstra\n",
			wantErr: domainconfig.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", "-c", writeConfig(t, tt.content))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("validate error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate command failed: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("validate output missing %q, got: %s", tt.want, out)
			}
			if !strings.Contains(out, "Goals: announced, shipped") {
				t.Errorf("validate output missing goals, got: %s", out)
			}
		})
	}
}

func TestApp_ValidateMissingFile(t *testing.T) {
	_, err := execute(t, "validate", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, domainconfig.ErrConfigNotFound) {
		t.Errorf("validate error = %v, want %v", err, domainconfig.ErrConfigNotFound)
	}
}

func TestApp_Plan(t *testing.T) {
	path := writeConfig(t, deployConfig)

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "plan", "-c", path)
		if err != nil {
			t.Fatalf("plan command failed: %v", err)
		}
		if !strings.Contains(out, "1. build") || !strings.Contains(out, "2. ship") {
			t.Errorf("plan output = %s, want build then ship", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "plan", "-c", path, "--json", "announced")
		if err != nil {
			t.Fatalf("plan command failed: %v", err)
		}
		var got struct {
			Goal    string   `json:"goal"`
			Found   bool     `json:"found"`
			Actions []string `json:"actions"`
			Cost    float64  `json:"cost"`
		}
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("Unmarshal() error = %v, output: %s", err, out)
		}
		if got.Goal != "announced" || !got.Found || len(got.Actions) != 1 || got.Cost != 0.25 {
			t.Errorf("plan = %+v, want announce costing 0.25", got)
		}
	})

	t.Run("unknown goal", func(t *testing.T) {
		_, err := execute(t, "plan", "-c", path, "missing")
		if !errors.Is(err, domainconfig.ErrUnknownGoal) {
			t.Errorf("plan error = %v, want %v", err, domainconfig.ErrUnknownGoal)
		}
	})
}

func TestApp_Run(t *testing.T) {
	path := writeConfig(t, deployConfig)

	t.Run("default goal", func(t *testing.T) {
		out, err := execute(t, "run", "-c", path)
		if err != nil {
			t.Fatalf("run command failed: %v", err)
		}
		if !strings.Contains(out, "Status: COMPLETED") {
			t.Errorf("run output missing COMPLETED, got: %s", out)
		}
		if !strings.Contains(out, "1. build") || !strings.Contains(out, "2. ship") {
			t.Errorf("run output missing history, got: %s", out)
		}
	})

	t.Run("best goal as json", func(t *testing.T) {
		out, err := execute(t, "run", "-c", path, "--any", "--json", "--process-id", "proc-any")
		if err != nil {
			t.Fatalf("run command failed: %v", err)
		}
		var p process.Process
		if err := json.Unmarshal([]byte(out), &p); err != nil {
			t.Fatalf("Unmarshal() error = %v, output: %s", err, out)
		}
		if p.ID != "proc-any" || p.Goal != "shipped" || p.Status != process.StatusCompleted {
			t.Errorf("process = %s %s %s, want proc-any shipped COMPLETED", p.ID, p.Goal, p.Status)
		}
	})

	t.Run("step ceiling", func(t *testing.T) {
		out, err := execute(t, "run", "-c", path, "--max-steps", "1")
		if err != nil {
			t.Fatalf("run command failed: %v", err)
		}
		if !strings.Contains(out, "Status: TERMINATED_EARLY") || !strings.Contains(out, "Policy: max_steps") {
			t.Errorf("run output = %s, want max_steps termination", out)
		}
	})
}

func TestApp_LogLevel(t *testing.T) {
	path := writeConfig(t, deployConfig+`logging:
  level: error
  format: json
`)

	tests := []struct {
		name    string
		args    []string
		want    bool
		wantErr error
	}{
		{"document level", nil, false, nil},
		{"flag lowers level", []string{"--log-level", "info"}, true, nil},
		{"flag raises level", []string{"--log-level", "ERROR"}, false, nil},
		{"unknown flag level", []string{"--log-level", "loud"}, false, logging.ErrUnknownLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			app := New().WithOutput(&stdout, &stderr)
			err := app.ExecuteWithArgs(context.Background(), append([]string{"run", "-c", path}, tt.args...))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("run error = %v, want %v", err, tt.wantErr)
			}
			if got := strings.Contains(stderr.String(), `"process started"`); got != tt.want {
				t.Errorf("stderr has info entry = %v, want %v; stderr: %s", got, tt.want, stderr.String())
			}
		})
	}
}

func TestApp_RunWebhook(t *testing.T) {
	var (
		mu       sync.Mutex
		received []event.Event
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e event.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err == nil {
			mu.Lock()
			received = append(received, e)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	content := deployConfig + fmt.Sprintf(`messaging:
  webhooks:
    - name: ops
      url: %s
      secret: s3cret
`, server.URL)

	if _, err := execute(t, "run", "-c", writeConfig(t, content), "--process-id", "proc-hook"); err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("webhook deliveries = %d, want 1", len(received))
	}
	if received[0].Type != event.TypeProcessTerminated || received[0].ProcessID != "proc-hook" {
		t.Errorf("delivered %s for %s, want process.terminated for proc-hook", received[0].Type, received[0].ProcessID)
	}
}

func TestApp_RunListInspect(t *testing.T) {
	path := writeConfig(t, withStorage(deployConfig, t.TempDir()))

	if _, err := execute(t, "run", "-c", path, "--process-id", "proc-stored"); err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	out, err := execute(t, "list", "-c", path, "--status", "completed")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	if !strings.Contains(out, "proc-stored") || !strings.Contains(out, "COMPLETED") {
		t.Errorf("list output = %s, want proc-stored COMPLETED", out)
	}

	out, err = execute(t, "inspect", "-c", path, "proc-stored")
	if err != nil {
		t.Fatalf("inspect command failed: %v", err)
	}
	for _, want := range []string{"Status: COMPLETED", "plan build -> ship", "ran build", "ran ship"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q, got: %s", want, out)
		}
	}

	out, err = execute(t, "inspect", "-c", path, "--format", "mermaid", "proc-stored")
	if err != nil {
		t.Fatalf("inspect command failed: %v", err)
	}
	if !strings.Contains(out, "flowchart LR") || !strings.Contains(out, `step2["2. ship"]`) {
		t.Errorf("inspect mermaid output = %s", out)
	}

	_, err = execute(t, "inspect", "-c", path, "--format", "html", "proc-stored")
	if !errors.Is(err, inspector.ErrUnknownFormat) {
		t.Errorf("inspect error = %v, want %v", err, inspector.ErrUnknownFormat)
	}

	_, err = execute(t, "inspect", "-c", path, "proc-missing")
	if !errors.Is(err, process.ErrProcessNotFound) {
		t.Errorf("inspect error = %v, want %v", err, process.ErrProcessNotFound)
	}
}

func TestApp_ListWithoutStore(t *testing.T) {
	_, err := execute(t, "list", "-c", writeConfig(t, deployConfig))
	if err == nil {
		t.Fatal("list should fail without a process store")
	}
}

func TestApp_ListInvalidStatus(t *testing.T) {
	path := writeConfig(t, withStorage(deployConfig, t.TempDir()))

	_, err := execute(t, "list", "-c", path, "--status", "sleeping")
	if !errors.Is(err, process.ErrInvalidStatus) {
		t.Errorf("list error = %v, want %v", err, process.ErrInvalidStatus)
	}
}
