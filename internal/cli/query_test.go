package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runQueryCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewQueryCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestQueryRootsOnly(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts")
	require.NoError(t, err)

	assert.Equal(t, []string{
		`{"author_id":7,"id":1,"title":"Hello"}`,
		`{"author_id":null,"id":2,"title":"World"}`,
		`{"author_id":7,"id":3,"title":"Empty"}`,
	}, lines(out))
}

func TestQueryWithRelations(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts", "--with", "comments,author")
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], `"author":{"id":7,"name":"ann"}`)
	assert.Contains(t, got[0], `{"author_id":7,"body":"first","id":10,"post_id":1},{"author_id":null,"body":"second","id":11,"post_id":1}`)
	assert.Contains(t, got[1], `"author":null`)
	assert.Contains(t, got[2], `"comments":[]`)
}

func TestQueryKey(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts", "-w", "comments", "--key", "2")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"title":"World"`)
	assert.Contains(t, got[0], `"body":"third"`)
}

func TestQueryCompositeKey(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "post_tags", "--key", "{post_id: 1, tag: go}")
	require.NoError(t, err)
	assert.Equal(t, []string{`{"post_id":1,"tag":"go"}`}, lines(out))
}

func TestQueryKeyNotFound(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts", "--key", "99")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E005")
	assert.Contains(t, out, "posts 99 not found")
}

func TestQueryWhere(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts",
		"--with", "comments", "--with", "comments.author",
		"--where", "comments.author.name=ann")
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"title":"Hello"`)
	assert.Contains(t, got[0], `"first"`)
	assert.NotContains(t, got[0], `"second"`)
}

func TestQueryWhereNull(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts", "--where", "author_id=null")
	require.NoError(t, err)
	assert.Equal(t, []string{`{"author_id":null,"id":2,"title":"World"}`}, lines(out))
}

func TestQueryWhereAnded(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts", "--where", "author_id=7", "--where", "title=Empty")
	require.NoError(t, err)
	assert.Equal(t, []string{`{"author_id":7,"id":3,"title":"Empty"}`}, lines(out))
}

func TestQueryFilterExpression(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts",
		"--with", "comments",
		"--where", "author_id=7",
		"--filter", "comments.body = 'second' AND comments.author_id IS NULL")
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"comments":[{"author_id":null,"body":"second","id":11,"post_id":1}]`)
}

func TestQueryLimitCountsRoots(t *testing.T) {
	opts := createBlogDB(t, "text")

	out, err := runQueryCmd(t, opts, "posts", "--with", "comments", "--limit", "1")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"first"`)
	assert.Contains(t, got[0], `"second"`)
}

func TestQueryJSON(t *testing.T) {
	opts := createBlogDB(t, "json")

	out, err := runQueryCmd(t, opts, "posts", "--with", "author", "--key", "1")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Hello", resp.Data[0]["title"])
	assert.Equal(t, map[string]any{"id": float64(7), "name": "ann"}, resp.Data[0]["author"])
}

func TestQueryShowSQL(t *testing.T) {
	// --sql never opens the database.
	opts := &RootOptions{Format: "text", Schema: blogSchema, Database: filepath.Join(t.TempDir(), "none.db")}

	out, err := runQueryCmd(t, opts, "posts", "--with", "comments", "--where", "title=Hello", "--limit", "2", "--sql")
	require.NoError(t, err)
	assert.Contains(t, out, `LEFT JOIN "comments" AS "t1"`)
	assert.Contains(t, out, `COLLATE BINARY`)
	assert.Contains(t, out, "$1 = Hello")
	assert.Contains(t, out, "$3 = 2")
}

func TestQueryShowSQLJSON(t *testing.T) {
	opts := &RootOptions{Format: "json", Schema: blogSchema}

	out, err := runQueryCmd(t, opts, "posts", "--with", "author", "--sql")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			SQL     string              `json:"sql"`
			Columns map[string][]string `json:"columns"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Contains(t, resp.Data.SQL, `"t1"."name" AS "author.name"`)
	assert.Equal(t, []string{"id", "title", "author_id"}, resp.Data.Columns["."])
	assert.Equal(t, []string{"id", "name"}, resp.Data.Columns["author"])
}

func TestQueryErrors(t *testing.T) {
	t.Run("unknown model", func(t *testing.T) {
		opts := createBlogDB(t, "text")
		out, err := runQueryCmd(t, opts, "widgets")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "E006")
		assert.Contains(t, out, `unknown model "widgets"`)
	})

	t.Run("unknown path", func(t *testing.T) {
		opts := createBlogDB(t, "text")
		_, err := runQueryCmd(t, opts, "posts", "--with", "likes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "likes")
	})

	t.Run("bad filter", func(t *testing.T) {
		opts := createBlogDB(t, "text")
		_, err := runQueryCmd(t, opts, "posts", "--where", "title")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("bad filter expression", func(t *testing.T) {
		opts := createBlogDB(t, "text")
		_, err := runQueryCmd(t, opts, "posts", "--filter", "title ==")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "parse filter")
	})

	t.Run("missing database", func(t *testing.T) {
		opts := &RootOptions{Format: "text", Schema: blogSchema, Database: filepath.Join(t.TempDir(), "none.db")}
		_, err := runQueryCmd(t, opts, "posts")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "database not found")
	})

	t.Run("missing schema", func(t *testing.T) {
		opts := createBlogDB(t, "text")
		opts.Schema = "/nonexistent/schema.yaml"
		_, err := runQueryCmd(t, opts, "posts")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "E005")
	})
}
