package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPrinterPrefixAlignsIndex(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, LogInfo, false)
	prefix := p.Prefix(3, 12, "Song Title")
	if !strings.HasPrefix(prefix, "[ 3/12]") {
		t.Fatalf("unexpected prefix %q", prefix)
	}
	if !strings.Contains(prefix, "Song Title") {
		t.Fatalf("prefix must carry the title, got %q", prefix)
	}
}

func TestPrinterPrefixTruncatesLongTitles(t *testing.T) {
	t.Setenv("COLUMNS", "60")
	p := NewPrinter(&bytes.Buffer{}, LogInfo, false)
	long := strings.Repeat("x", 200)
	prefix := p.Prefix(1, 1, long)
	if !strings.Contains(prefix, "...") {
		t.Fatalf("expected truncated title, got %q", prefix)
	}
	if strings.Contains(prefix, long) {
		t.Fatal("title must not appear untruncated")
	}
}

func TestPrinterItemResultSuccess(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, LogInfo, false)
	p.ItemResult(p.Prefix(1, 2, "Song"), "downloads/dQw4w9WgXcQ.mp3", 2048, nil)

	out := buf.String()
	if !strings.Contains(out, "OK") {
		t.Fatalf("expected OK line, got %q", out)
	}
	if !strings.Contains(out, "downloads/dQw4w9WgXcQ.mp3") {
		t.Fatalf("expected location in line, got %q", out)
	}
	if !strings.Contains(out, "2.0KB") {
		t.Fatalf("expected human size, got %q", out)
	}
}

func TestPrinterItemResultFailure(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, LogInfo, false)
	p.ItemResult(p.Prefix(2, 2, "Song"), "", 0, errors.New("stream broke"))

	out := buf.String()
	if !strings.Contains(out, "FAIL") || !strings.Contains(out, "stream broke") {
		t.Fatalf("expected FAIL line with cause, got %q", out)
	}
}

func TestPrinterQuietSuppressesSuccessNotFailure(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, LogInfo, true)

	p.ItemResult("[1/2]", "downloads/a.mp3", 100, nil)
	if buf.Len() != 0 {
		t.Fatalf("quiet mode must drop OK lines, got %q", buf.String())
	}

	p.ItemResult("[2/2]", "", 0, errors.New("stream broke"))
	if !strings.Contains(buf.String(), "FAIL") {
		t.Fatalf("quiet mode must keep FAIL lines, got %q", buf.String())
	}

	p.Summary(2, 1, 1, 100)
	if strings.Contains(buf.String(), "Summary") {
		t.Fatal("quiet mode must drop the summary")
	}
}

func TestPrinterSummaryCounts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, LogInfo, false)
	p.Summary(5, 3, 2, 4096)

	out := buf.String()
	for _, want := range []string{"3", "2", "TOTAL 5", "4.0KB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q: %q", want, out)
		}
	}
}

func TestPrinterNilReceiverIsSafe(t *testing.T) {
	var p *Printer
	p.Log(LogError, "dropped")
	p.ItemResult(p.Prefix(1, 1, "Song"), "a.mp3", 1, nil)
	p.Summary(1, 1, 0, 1)
}

func TestPrinterLogLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, LogWarn, false)

	p.Log(LogInfo, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}
	p.Log(LogWarn, "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn must pass at warn level, got %q", buf.String())
	}
}
