package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(Config{Level: InfoLevel, Writer: &buf, NoColor: true})

	log.Debug("hidden")
	log.WithPrefix("ensemble").WithFields(map[string]interface{}{"run": 3, "id": "abc"}).Warnf("aborted: %s", "out of bounds")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered:\n%s", out)
	}
	want := "WARN  [ensemble] id=abc run=3 aborted: out of bounds\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestChildLoggersShareLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithConfig(Config{Level: ErrorLevel, Writer: &buf, NoColor: true}).(*logger)
	child := parent.WithField("k", "v")

	parent.out.level = DebugLevel
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatal("child should follow the parent's level")
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("nothing")
	log.WithField("a", 1).Info("still nothing")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("Run", "Status")
	table.AddRow("1", "landed")
	table.AddRow("12", "aborted")
	table.Render(&buf)

	want := "Run  Status\n---  -------\n1    landed\n12   aborted\n"
	if buf.String() != want {
		t.Fatalf("got\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestProgressBarConcurrentIncrements(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBarTo(&buf, 100, "runs")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				bar.Increment()
			}
		}()
	}
	wg.Wait()

	if got := bar.Current(); got != 100 {
		t.Fatalf("current = %d, want 100", got)
	}
	bar.Finish()
	if !strings.Contains(buf.String(), "100%") {
		t.Fatalf("final draw should show 100%%: %q", buf.String())
	}
}
