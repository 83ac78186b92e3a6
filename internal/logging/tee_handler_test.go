package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerCollapsesTrivialInputs(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if TeeHandler(nil, inner) != inner {
		t.Fatal("expected single handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsEachLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(TeeHandler(info, debug)).With("component", "test").WithGroup("g")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled through debug handler")
	}
	logger.Debug("detail", "k", "v")
	logger.Info("summary", "k", "v")

	if strings.Contains(infoBuf.String(), "detail") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "summary") || !strings.Contains(debugBuf.String(), "detail") {
		t.Fatalf("records missing: info=%q debug=%q", infoBuf.String(), debugBuf.String())
	}
	if !strings.Contains(debugBuf.String(), `"component":"test"`) || !strings.Contains(debugBuf.String(), `"g":{"k":"v"}`) {
		t.Fatalf("attrs/groups not propagated: %s", debugBuf.String())
	}
}
