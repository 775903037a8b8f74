package ingest

import (
	"strings"
	"testing"
)

func TestProcessDeterministicIDs(t *testing.T) {
	p := NewProcessor()
	text := "Some document content. It has a couple of sentences."

	first := p.Process(text, "doc.txt")
	second := p.Process(text, "doc.txt")

	if len(first) == 0 {
		t.Fatal("no chunks produced")
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d id changed across runs: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestProcessIDsDependOnSource(t *testing.T) {
	p := NewProcessor()
	text := "Identical content."

	a := p.Process(text, "a.txt")
	b := p.Process(text, "b.txt")
	if a[0].ID == b[0].ID {
		t.Error("chunks from different sources should have different ids")
	}
}

func TestProcessMetadata(t *testing.T) {
	p := NewProcessor(WithChunkSize(30), WithOverlap(0))
	text := strings.Repeat("A sentence goes here. ", 10)

	chunks := p.Process(text, "doc.txt")
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i, c := range chunks {
		if c.Source != "doc.txt" {
			t.Errorf("chunk %d Source = %q", i, c.Source)
		}
		if c.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex = %d", i, c.ChunkIndex)
		}
		if c.TotalChunks != len(chunks) {
			t.Errorf("chunk %d TotalChunks = %d, want %d", i, c.TotalChunks, len(chunks))
		}
	}
}

func TestChunkIDUsesPrefix(t *testing.T) {
	long := strings.Repeat("a", 50)
	// Same first 50 bytes at the same position yield the same id.
	if ChunkID("s", 0, long+"x") != ChunkID("s", 0, long+"y") {
		t.Error("ids should depend only on the 50-byte prefix")
	}
	if ChunkID("s", 0, "text") == ChunkID("s", 1, "text") {
		t.Error("ids should depend on position")
	}
}
