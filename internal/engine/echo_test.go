package engine

import (
	"image"
	"math"
	"strings"
	"testing"
)

func TestEcho_DecodesOneWordPerStep(t *testing.T) {
	e := NewEcho()
	if err := e.LoadModel("lib", "/m", ""); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if !e.Stopped() {
		t.Fatalf("expected stopped before prefill")
	}
	e.Prefill("hello there world")
	steps := 0
	for !e.Stopped() {
		e.DecodeStep()
		steps++
		if steps > 10 {
			t.Fatalf("decode did not stop")
		}
	}
	if steps != 3 {
		t.Fatalf("expected 3 steps, got %d", steps)
	}
	msg, ok := e.Message()
	if !ok || msg != "hello there world" {
		t.Fatalf("unexpected message %q ok=%v", msg, ok)
	}
	stats, ok := e.RuntimeStatsText(false)
	if !ok {
		t.Fatalf("expected stats")
	}
	if !strings.Contains(stats, `"total tokens":"3 tok"`) {
		t.Fatalf("stats missing token counts: %s", stats)
	}
	if strings.Contains(stats, SectionVision) {
		t.Fatalf("vision section must be omitted: %s", stats)
	}
}

func TestEcho_EmptyPromptStopsImmediately(t *testing.T) {
	e := NewEcho()
	e.Prefill("   ")
	if e.Stopped() {
		t.Fatalf("engine reports stop before first decode step")
	}
	e.DecodeStep()
	if !e.Stopped() {
		t.Fatalf("expected stop after draining empty prompt")
	}
	if _, ok := e.Message(); ok {
		t.Fatalf("expected no message")
	}
}

func TestEcho_VisionAdapterNeedsModel(t *testing.T) {
	e := NewEcho()
	if err := e.LoadVisionAdapter("v", "/v"); !IsNotLoaded(err) {
		t.Fatalf("expected not loaded error, got %v", err)
	}
	_ = e.LoadModel("m", "/m", "")
	if err := e.LoadVisionAdapter("v", "/v"); err != nil {
		t.Fatalf("LoadVisionAdapter: %v", err)
	}
	e.PrefillImage(image.NewRGBA(image.Rect(0, 0, 4, 4)), "<Img>", "</Img> ")
	stats, _ := e.RuntimeStatsText(true)
	if !strings.Contains(stats, `"vision":{`) || !strings.Contains(stats, `"16 tok"`) {
		t.Fatalf("unexpected vision stats: %s", stats)
	}
}

func TestEcho_AvailableBytes(t *testing.T) {
	e := NewEcho()
	if got := e.AvailableResourceBytes(); got != math.MaxInt64 {
		t.Fatalf("expected unlimited, got %d", got)
	}
	e.AvailableBytes = 10
	if got := e.AvailableResourceBytes(); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}
