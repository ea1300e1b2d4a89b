package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownKeys(t *testing.T) {
	base, err := Get("subcontent.json", "base")
	require.NoError(t, err)
	assert.Contains(t, base, "{{.Posting}}")
	assert.Contains(t, base, "{{.Reference}}")
	assert.Contains(t, base, "{{.Section}}")

	for _, key := range []string{"contacts", "summary", "skills", "highlights", "experience", "education", "awards", "coverletter"} {
		prompt, err := Get("subcontent.json", key)
		require.NoError(t, err, "key %s", key)
		assert.NotEmpty(t, prompt)
	}
}

func TestGet_Missing(t *testing.T) {
	_, err := Get("subcontent.json", "nonexistent")
	assert.Error(t, err)

	_, err = Get("nonexistent.json", "base")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	out := Format("Job: {{.Posting}} / Ref: {{.Reference}}", map[string]string{
		"Posting":   "the posting",
		"Reference": "the reference",
	})
	assert.Equal(t, "Job: the posting / Ref: the reference", out)
}

func TestFormat_UnknownPlaceholderLeftIntact(t *testing.T) {
	out := Format("keep {{.Other}}", map[string]string{"Posting": "x"})
	assert.Equal(t, "keep {{.Other}}", out)
}
