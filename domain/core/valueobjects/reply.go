package valueobjects

import "strings"

// ReplyKind tags the shape a completion came back in.
type ReplyKind int

const (
	ReplyUnknown ReplyKind = iota
	ReplyPlainText
	ReplyChunkList
)

// ChunkText is the chunk kind whose text is user visible.
const ChunkText = "text"

// ReplyChunk is one element of a chunked completion.
type ReplyChunk struct {
	Kind string
	Text string
}

// ReplyContent is the polymorphic completion payload.
type ReplyContent struct {
	Kind   ReplyKind
	Text   string
	Chunks []ReplyChunk
}

// PlainText builds a plain string reply.
func PlainText(s string) ReplyContent {
	return ReplyContent{Kind: ReplyPlainText, Text: s}
}

// ChunkList builds a chunked reply.
func ChunkList(chunks ...ReplyChunk) ReplyContent {
	return ReplyContent{Kind: ReplyChunkList, Chunks: chunks}
}

// Normalize collapses a reply into a single string. It is total: every input
// yields a string, and fallback replaces anything empty or unrecognised.
func (r ReplyContent) Normalize(fallback string) string {
	var out string
	switch r.Kind {
	case ReplyPlainText:
		out = r.Text
	case ReplyChunkList:
		var b strings.Builder
		for _, c := range r.Chunks {
			if c.Kind == ChunkText {
				b.WriteString(c.Text)
			}
		}
		out = b.String()
	}
	if strings.TrimSpace(out) == "" {
		return fallback
	}
	return out
}
