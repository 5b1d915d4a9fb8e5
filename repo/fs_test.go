package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree lays out root/<family>/<version>/package.yaml files from a map
// of relative definition paths to yaml bodies.
func writeTree(t *testing.T, defs map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range defs {
		path := filepath.Join(root, rel, definitionFile)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func TestFSRepositoryLoadsFamilies(t *testing.T) {
	root := writeTree(t, map[string]string{
		"foo/1.0": "name: foo\nversion: \"1.0\"\n",
		"foo/2.0": "name: foo\nversion: \"2.0\"\nrequires:\n  - bar-1+\n",
		"bar/1.5": "name: bar\nversion: \"1.5\"\nvariants:\n  - [foo-1.0]\n  - [foo-2.0]\n",
	})
	r, err := NewFSRepository(root, nil)
	require.NoError(t, err)
	defer r.Close()

	foo, err := r.Family(context.Background(), "foo")
	require.NoError(t, err)
	require.Len(t, foo.Variants, 2)
	assert.Equal(t, "foo-2.0[0]", foo.Variants[0].ID())
	require.Len(t, foo.Variants[0].Requires, 1)
	assert.Equal(t, "bar-1+", foo.Variants[0].Requires[0].String())

	bar, err := r.Family(context.Background(), "bar")
	require.NoError(t, err)
	require.Len(t, bar.Variants, 2)
	assert.Equal(t, "bar-1.5[0]", bar.Variants[0].ID())
	assert.Equal(t, "bar-1.5[1]", bar.Variants[1].ID())
	assert.Equal(t, "foo-2.0", bar.Variants[1].Requires[0].String())

	// Cached on second lookup: same family value back.
	again, err := r.Family(context.Background(), "bar")
	require.NoError(t, err)
	assert.Same(t, bar, again)
}

func TestFSRepositoryNotFound(t *testing.T) {
	root := writeTree(t, map[string]string{
		"foo/1.0": "name: foo\nversion: \"1.0\"\n",
	})
	r, err := NewFSRepository(root, nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Family(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFSRepositoryBadDefinitions(t *testing.T) {
	cases := map[string]map[string]string{
		"mismatched name": {
			"foo/1.0": "name: bar\nversion: \"1.0\"\n",
		},
		"bad version": {
			"foo/1.0": "name: foo\nversion: \"1..0\"\n",
		},
		"bad requirement": {
			"foo/1.0": "name: foo\nversion: \"1.0\"\nrequires:\n  - \"-oops\"\n",
		},
		"not yaml": {
			"foo/1.0": "{{{\n",
		},
	}
	for label, defs := range cases {
		root := writeTree(t, defs)
		r, err := NewFSRepository(root, nil)
		require.NoError(t, err, label)
		_, err = r.Family(context.Background(), "foo")
		assert.Error(t, err, label)
		r.Close()
	}
}

func TestFSRepositorySearch(t *testing.T) {
	root := writeTree(t, map[string]string{
		"foo/1.0":    "name: foo\nversion: \"1.0\"\n",
		"foobar/1.0": "name: foobar\nversion: \"1.0\"\n",
		"baz/1.0":    "name: baz\nversion: \"1.0\"\n",
	})
	r, err := NewFSRepository(root, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"foo", "foobar"}, r.Search("foo"))
	assert.Equal(t, []string{"baz", "foo", "foobar"}, r.Search(""))
	assert.Empty(t, r.Search("zzz"))
}

func TestFSRepositoryCloseCancelsLookups(t *testing.T) {
	root := writeTree(t, map[string]string{
		"foo/1.0": "name: foo\nversion: \"1.0\"\n",
	})
	r, err := NewFSRepository(root, nil)
	require.NoError(t, err)
	r.Close()

	_, err = r.Family(context.Background(), "foo")
	assert.Error(t, err)
}
