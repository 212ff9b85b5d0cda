package asr

import (
	"testing"

	"audioscribe/internal/domain"
)

// TestSplitSentencesKeepsTerminators verifies punctuation stays with
// its sentence.
func TestSplitSentencesKeepsTerminators(t *testing.T) {
	got := splitSentences("今天天气很好。我们出去走走吧！好吗？")
	want := []string{"今天天气很好。", "我们出去走走吧！", "好吗？"}
	if len(got) != len(want) {
		t.Fatalf("sentences = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestSplitSentencesTrailingFragment verifies an unterminated tail
// becomes its own sentence.
func TestSplitSentencesTrailingFragment(t *testing.T) {
	got := splitSentences("first sentence. and a trailing fragment")
	if len(got) != 2 {
		t.Fatalf("sentences = %v, want 2 entries", got)
	}
	if got[1] != "and a trailing fragment" {
		t.Fatalf("tail = %q", got[1])
	}
}

// TestSplitSentencesEmpty verifies empty input yields nothing.
func TestSplitSentencesEmpty(t *testing.T) {
	if got := splitSentences(""); got != nil {
		t.Fatalf("sentences = %v, want nil", got)
	}
	if got := splitSentences("   \n"); len(got) != 0 {
		t.Fatalf("sentences = %v, want none", got)
	}
}

// TestAllocateTimestampsProportional checks character-proportional end
// times with the last sentence pinned to the chunk end.
func TestAllocateTimestampsProportional(t *testing.T) {
	segments := allocateTimestamps([]string{"aaaa", "bbbb"}, 0, 1000, 0)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if segments[0].StartMillis != 0 || segments[0].EndMillis != 500 {
		t.Fatalf("first span = [%d,%d), want [0,500)", segments[0].StartMillis, segments[0].EndMillis)
	}
	if segments[1].StartMillis != 500 || segments[1].EndMillis != 1000 {
		t.Fatalf("second span = [%d,%d), want [500,1000)", segments[1].StartMillis, segments[1].EndMillis)
	}
}

// TestAllocateTimestampsMonotonicGuard checks that a degenerate span
// still yields strictly advancing end times capped at the chunk end.
func TestAllocateTimestampsMonotonicGuard(t *testing.T) {
	sentences := []string{"a", "b", "c"}
	segments := allocateTimestamps(sentences, 100, 102, 0)

	prev := int64(100)
	for i, segment := range segments {
		if segment.EndMillis <= prev && segment.EndMillis != 102 {
			t.Fatalf("segment %d end = %d, not advancing from %d", i, segment.EndMillis, prev)
		}
		if segment.EndMillis > 102 {
			t.Fatalf("segment %d end = %d beyond chunk end", i, segment.EndMillis)
		}
		prev = segment.EndMillis
	}
	if segments[len(segments)-1].EndMillis != 102 {
		t.Fatalf("last end = %d, want 102", segments[len(segments)-1].EndMillis)
	}
}

// TestAllocateTimestampsContinuesIndices checks global segment
// numbering across chunks.
func TestAllocateTimestampsContinuesIndices(t *testing.T) {
	segments := allocateTimestamps([]string{"x", "y"}, 15000, 30000, 7)
	if segments[0].Index != 7 || segments[1].Index != 8 {
		t.Fatalf("indices = %d,%d, want 7,8", segments[0].Index, segments[1].Index)
	}
}

// TestJoinSegmentText checks single-space joining.
func TestJoinSegmentText(t *testing.T) {
	text := joinSegmentText([]domain.Segment{
		{Text: "hello."},
		{Text: "world!"},
	})
	if text != "hello. world!" {
		t.Fatalf("joined = %q", text)
	}
}
