package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyContent_Normalize(t *testing.T) {
	const fallback = "I don't know how to respond."

	tests := []struct {
		name  string
		reply ReplyContent
		want  string
	}{
		{"plain text", PlainText("hello"), "hello"},
		{"chunks concatenate in order", ChunkList(ReplyChunk{Kind: ChunkText, Text: "a"}, ReplyChunk{Kind: ChunkText, Text: "b"}), "ab"},
		{"non text chunks skipped", ChunkList(ReplyChunk{Kind: "image_url"}, ReplyChunk{Kind: ChunkText, Text: "x"}), "x"},
		{"empty chunk list", ChunkList(), fallback},
		{"only non text chunks", ChunkList(ReplyChunk{Kind: "reference"}), fallback},
		{"blank plain text", PlainText("  "), fallback},
		{"unknown", ReplyContent{}, fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reply.Normalize(fallback))
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"user", "assistant", "system", "tool"} {
		r, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, s, r.String())
	}

	_, err := ParseRole("robot")
	assert.EqualError(t, err, "invalid message role: robot")
}

func TestNamespaceFor(t *testing.T) {
	ns, err := NamespaceFor("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", ns.UserID())
	assert.Equal(t, "user_u1", ns.Name())

	_, err = NamespaceFor("  ")
	assert.Error(t, err)
	assert.True(t, SemanticNamespace{}.IsZero())
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "rag"}, NormalizeTags([]string{" go", "rag", "", "go"}))
	assert.Equal(t, []string{"a", "b"}, SplitTagQuery("a, b,,a"))
	assert.Equal(t, []string{"vector", "db"}, SplitKeywords("vector  db"))
	assert.Empty(t, SplitTagQuery(" , "))
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID(NewID()))
	assert.False(t, IsValidID("nope"))
}
