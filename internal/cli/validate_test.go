package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeSchema(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateValidSchema(t *testing.T) {
	out, err := runValidateCmd(t, &RootOptions{Format: "text"}, blogSchema)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid: 4 model(s)")
}

func TestValidateDefaultsToSchemaFlag(t *testing.T) {
	out, err := runValidateCmd(t, &RootOptions{Format: "text", Schema: blogSchema})
	require.NoError(t, err)
	assert.Contains(t, out, "Schema valid")
}

func TestValidateValidSchemaJSON(t *testing.T) {
	out, err := runValidateCmd(t, &RootOptions{Format: "json"}, blogSchema)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"posts", "comments", "users", "post_tags"}, resp.Data.Models)
}

func TestValidateCUESchema(t *testing.T) {
	path := writeSchema(t, "schema.cue", `
models: [{
	name:   "users"
	key:    ["id"]
	fields: ["id", "name"]
}]
`)
	out, err := runValidateCmd(t, &RootOptions{Format: "text"}, path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 model(s)")
}

func TestValidateNonExistentFile(t *testing.T) {
	out, err := runValidateCmd(t, &RootOptions{Format: "text"}, "/nonexistent/schema.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "not found")
}

func TestValidateUnparsableSchema(t *testing.T) {
	path := writeSchema(t, "bad.yaml", "models: [\n")
	_, err := runValidateCmd(t, &RootOptions{Format: "text"}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E002")
}

func TestValidateUnsupportedExtension(t *testing.T) {
	path := writeSchema(t, "schema.json", "{}")
	_, err := runValidateCmd(t, &RootOptions{Format: "text"}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestValidateInvalidSchema(t *testing.T) {
	path := writeSchema(t, "invalid.yaml", `
models:
  - name: posts
    key: [id]
    fields: [id]
    relations:
      - name: comments
        type: hasMany
        model: missing
        foreign: post_id
  - name: users
    fields: [id]
`)
	out, err := runValidateCmd(t, &RootOptions{Format: "text"}, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E004")
	assert.Contains(t, out, "[E207] posts.relations[0].model")
	assert.Contains(t, out, "[E203] users.key")
	assert.Contains(t, out, "2 error(s)")
}

func TestValidateInvalidSchemaJSON(t *testing.T) {
	path := writeSchema(t, "invalid.yaml", `
models:
  - name: users
    key: [uid]
    fields: [id]
`)
	out, err := runValidateCmd(t, &RootOptions{Format: "json"}, path)
	require.Error(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "E203", resp.Data.Errors[0].Code)
}
