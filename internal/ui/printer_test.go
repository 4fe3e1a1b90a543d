package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPrinterBoxes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.PrintHeader("Gateway search", "knxgw search", []Field{{"Group", "224.0.23.12:3671"}, {"Window", "3s"}})
	p.PrintSuccess("2 gateways found", []Field{{"Window", "3s"}})
	p.PrintWarning("No gateways found", nil)
	p.PrintError("Describe failed", errors.New("timed out"), []string{"Check the cable"})

	out := buf.String()
	for _, want := range []string{
		"GATEWAY SEARCH", "knxgw search", "224.0.23.12:3671",
		"SUCCESS", "2 gateways found",
		"WARNING", "No gateways found",
		"FAILED", "Error: timed out", "Troubleshooting:", "Check the cable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q", want)
		}
	}

	// Parameters keep their order.
	if strings.Index(out, "Group:") > strings.Index(out, "Window:") {
		t.Error("header parameters out of order")
	}
}

func TestRunWindowWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	called := false
	err := RunWindow(context.Background(), &buf, "Searching", time.Second, func(context.Context) error {
		called = true
		return errors.New("boom")
	})
	if !called {
		t.Fatal("work not run")
	}
	if err == nil || err.Error() != "boom" {
		t.Errorf("RunWindow() error = %v, want boom", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %q to a non-terminal", buf.String())
	}
}

func TestWindowModel(t *testing.T) {
	m := newWindowModel("Searching for gateways", 300*time.Millisecond)

	for i := 0; i < 5; i++ {
		next, _ := m.Update(windowTickMsg{})
		m = next.(windowModel)
	}
	if m.elapsed != 300*time.Millisecond {
		t.Errorf("elapsed = %v, want capped at 300ms", m.elapsed)
	}
	if m.percent() != 1 {
		t.Errorf("percent() = %v, want 1", m.percent())
	}
	if !strings.Contains(m.View(), "Searching for gateways") {
		t.Errorf("View() = %q", m.View())
	}

	next, cmd := m.Update(windowDoneMsg{})
	m = next.(windowModel)
	if !m.done || cmd == nil {
		t.Error("windowDoneMsg did not quit")
	}
	if m.View() != "" {
		t.Errorf("View() after done = %q, want empty", m.View())
	}
}
