package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactSetCoversCachesAndRawTables(t *testing.T) {
	paths := NewPaths("/data")
	set := artifactSet(paths, []string{"details", "prices"})

	// Two cache files per source plus every raw table.
	require.Len(t, set, 4+len(RawFiles()))

	assert.Equal(t, artifact{
		object: "cache/details_status.json",
		local:  filepath.Join("/data", "cache", "details_status.json"),
	}, set[0])
	assert.Equal(t, artifact{
		object: "cache/details_failed.csv",
		local:  filepath.Join("/data", "cache", "details_failed.csv"),
	}, set[1])
	assert.Equal(t, artifact{
		object: "raw/" + FileChartsTop,
		local:  filepath.Join("/data", "raw", FileChartsTop),
	}, set[4])
}
