package ui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newHumanOutput(buf *bytes.Buffer) *Output {
	o := NewOutput(buf)
	o.SetFormat(FormatHuman)
	o.SetColorEnabled(false)
	return o
}

func TestWorldLine_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	o := newHumanOutput(&buf)

	o.WorldLine("https://worldanvil.example/w", "synced", "last sync 2026-08-02 10:00:00")
	o.WorldLine("https://worldanvil.example/x", "error", "upstream down")
	o.WorldLine("https://worldanvil.example/y", "pending", "")

	out := buf.String()
	if !strings.Contains(out, "✓ https://worldanvil.example/w: synced (last sync 2026-08-02 10:00:00)") {
		t.Errorf("output = %q, want a success line for the synced world", out)
	}
	if !strings.Contains(out, "✗ https://worldanvil.example/x: error (upstream down)") {
		t.Errorf("output = %q, want an error line for the errored world", out)
	}
	if !strings.Contains(out, "https://worldanvil.example/y: pending\n") {
		t.Errorf("output = %q, want a plain line for the pending world", out)
	}
}

func TestCheckline_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	o := newHumanOutput(&buf)

	o.Checkline("ok", "Git installed")
	o.Checkline("warning", "hook missing")
	o.Checkline("error", "state unreadable")

	out := buf.String()
	for _, want := range []string{
		"✓   - Git installed",
		"⚠   ! hook missing",
		"✗   x state unreadable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, want it to contain %q", out, want)
		}
	}
}

func TestJSONFormat_WrapsMessagesInEnvelopes(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	o.SetFormat(FormatJSON)

	o.Success("published")

	var env map[string]string
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v, body=%s", err, buf.String())
	}
	if env["status"] != "success" || env["message"] != "published" {
		t.Errorf("envelope = %v, want status=success message=published", env)
	}
}

func TestHeaderAndSeparator_SuppressedInJSON(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	o.SetFormat(FormatJSON)

	o.Header("Diagnostics")
	o.Separator()

	if buf.Len() != 0 {
		t.Errorf("expected no output for Header/Separator in JSON format, got %q", buf.String())
	}
}

func TestNewOutput_NonFileWriterDefaultsToHuman(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	if o.IsJSON() {
		t.Error("expected human format for a non-file writer")
	}
}
