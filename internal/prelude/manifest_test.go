package prelude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAllChunksAccountedFor is the spec §4.3 build-time self-check: every
// .jl file under chunks/ must be either loaded (named in manifest.yaml's
// chunks list) or explicitly excluded with a reason.
func TestAllChunksAccountedFor(t *testing.T) {
	m, err := Manifest()
	require.NoError(t, err)

	accounted := make(map[string]bool)
	for _, c := range m.Chunks {
		accounted[c.File] = true
	}
	for _, e := range m.Excluded {
		require.NotEmpty(t, e.Reason, "excluded chunk %s needs a justification", e.File)
		accounted[e.File] = true
	}

	files, err := allEmbeddedFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		assert.True(t, accounted[f], "chunk file %s is neither loaded nor excluded in manifest.yaml", f)
	}
}

func TestManifestOrderIsStable(t *testing.T) {
	m, err := Manifest()
	require.NoError(t, err)
	require.NotEmpty(t, m.Chunks)
	assert.Equal(t, "boot", m.Chunks[0].Name, "boot must load first: later chunks assume Core primitives exist")
	assert.Equal(t, "broadcast", m.Chunks[len(m.Chunks)-1].Name, "broadcast loads last per spec §4.3 order")
}

func TestSourceConcatenatesEveryChunk(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	assert.Contains(t, src, "primitive type Int64")
	assert.Contains(t, src, "promote_rule")
}
