package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"planos/internal/events"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLayoutCommand(t *testing.T) {
	in := `[
		{"id":"a","title":"Lecture","day":1,"startTime":9,"startMinute":0,"endTime":11,"endMinute":0},
		{"id":"b","title":"Call","day":1,"startTime":10,"startMinute":0,"endTime":12,"endMinute":0},
		{"id":"c","title":"Lunch","day":0,"startTime":12,"startMinute":0,"endTime":13,"endMinute":0}
	]`
	out, err := run(t, in, "layout")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	var got []events.Positioned
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 3 || got[0].ID != "c" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Columns != 1 || got[1].Columns != 2 || got[2].Columns != 2 || got[1].Column == got[2].Column {
		t.Fatalf("columns = %+v", got)
	}
}

func TestLayoutRejectsBadInput(t *testing.T) {
	if _, err := run(t, "not json", "layout"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestWeekAndConfigShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planos.yaml")
	cfg := "data_dir: " + filepath.Join(dir, "data") + "\nlanguage: en\ntimezone: UTC\nllm:\n  provider: openai\n  api_key: sk-secret\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "week", "--config", path)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if strings.Count(out, "(free)") != 7 {
		t.Fatalf("week output:\n%s", out)
	}

	out, err = run(t, "", "config", "show", "-c", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-secret") || !strings.Contains(out, `"language": "en"`) {
		t.Fatalf("config show output:\n%s", out)
	}
}

func TestConfigInitPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planos.yaml")
	answers := strings.Repeat("\n", 12)
	if _, err := run(t, answers, "config", "init", "--plain", "-c", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "provider: openai") {
		t.Fatalf("saved config:\n%s", data)
	}
}
