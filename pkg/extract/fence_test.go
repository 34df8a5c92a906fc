package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFences(t *testing.T) {
	text := "intro\n```bash\nls -l\n```\nmid\n```\necho hi\n```\n```Python\nprint(1)\n```"
	fences := scanFences(text)
	require.Len(t, fences, 3)

	assert.Equal(t, "bash", fences[0].tag)
	assert.Equal(t, "ls -l", fences[0].content)
	assert.Equal(t, 6, fences[0].offset)

	assert.Equal(t, "", fences[1].tag)
	assert.Equal(t, "echo hi", fences[1].content)

	assert.Equal(t, "python", fences[2].tag)
	assert.Equal(t, "print(1)", fences[2].content)

	assert.Less(t, fences[0].offset, fences[1].offset)
	assert.Less(t, fences[1].offset, fences[2].offset)
}

func TestScanFencesUnclosed(t *testing.T) {
	assert.Empty(t, scanFences("```bash\nls"))
	assert.Empty(t, scanFences("no fences here"))
	assert.Len(t, scanFences("```\na\n```\n```\nb"), 1)
}

func TestSplitInfoString(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		tag     string
		content string
	}{
		{name: "tagged", body: "bash\nls\n", tag: "bash", content: "\nls\n"},
		{name: "shell tag inline", body: "bash ls -la", tag: "bash", content: " ls -la"},
		{name: "shell tag upper case inline", body: "SH\tuptime", tag: "sh", content: "\tuptime"},
		{name: "shell tag alone", body: "bash", tag: "bash", content: ""},
		{name: "shell tag prefix is not a tag", body: "bashrc", tag: "", content: "bashrc"},
		{name: "non-shell tag inline stays content", body: "python print(1)", tag: "", content: "python print(1)"},
		{name: "untagged", body: "\nls\n", tag: "", content: "ls\n"},
		{name: "inline", body: "ls -la", tag: "", content: "ls -la"},
		{name: "command on opening line", body: "ls -la\n", tag: "", content: "ls -la\n"},
		{name: "tag with symbols", body: "c++\nint x;\n", tag: "c++", content: "int x;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, content := splitInfoString(tt.body)
			assert.Equal(t, tt.tag, tag)
			assert.Equal(t, tt.content, content)
		})
	}
}

func TestPickFence(t *testing.T) {
	_, ok := pickFence(nil)
	assert.False(t, ok)

	got, ok := pickFence([]fence{
		{tag: "", content: "echo untagged", offset: 0},
		{tag: "zsh", content: "echo zsh", offset: 30},
	})
	assert.True(t, ok)
	assert.Equal(t, "echo zsh", got)

	got, ok = pickFence([]fence{
		{tag: "json", content: "{}", offset: 0},
		{tag: "bash", content: "", offset: 20},
		{tag: "sh", content: "echo later", offset: 40},
	})
	assert.True(t, ok)
	assert.Equal(t, "", got)

	got, ok = pickFence([]fence{
		{tag: "", content: "", offset: 0},
		{tag: "json", content: "{}", offset: 20},
	})
	assert.True(t, ok)
	assert.Equal(t, "", got)
}
