package jobs

import (
	"testing"

	"fabla-transcriber/internal/domain"
)

// TestEventBusSince verifies incremental event reads by sequence.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(3)
	bus.Publish(Event{Type: EventTypeStatus, Message: "1"})
	bus.Publish(Event{Type: EventTypeStatus, Message: "2"})
	bus.Publish(Event{Type: EventTypeStatus, Message: "3"})

	events := bus.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
	if bus.LastSeq() != 3 {
		t.Fatalf("last seq = %d, want 3", bus.LastSeq())
	}
}

// TestEventBusCapsHistory verifies buffer limit trimming behavior.
func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})
	bus.Publish(Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// TestEventConstructors verifies progress and result payload mapping.
func TestEventConstructors(t *testing.T) {
	p := ProgressEvent("job-1", domain.Progress{Index: 2, Total: 4, Fraction: 0.25, Message: "Transcribing 2/4: b.wav"})
	if p.Type != EventTypeProgress || p.Index != 2 || p.Total != 4 || p.Fraction != 0.25 {
		t.Fatalf("progress event = %+v", p)
	}

	r := ResultEvent("job-1", domain.Summary{Status: domain.BatchStatusCompleted, Attempted: 3, Recorded: 2, OutputPath: "/x/transcripts.csv"})
	if r.Type != EventTypeResult || r.Status != domain.BatchStatusCompleted || r.Recorded != 2 || r.OutputPath != "/x/transcripts.csv" {
		t.Fatalf("result event = %+v", r)
	}
}
