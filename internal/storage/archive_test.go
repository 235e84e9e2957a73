package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveEntriesNamesImagesByAngle(t *testing.T) {
	task := newTask("t1", "u1", "Scarf", epoch, "A", "B")
	task.Plan[0].Angle = "Front view, eye level"
	task.Plan[1].Angle = ""

	entries, err := ArchiveEntries(task)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "01-front-view-eye-level.jpg", entries[0].Name)
	assert.Equal(t, []byte("A"), entries[0].Data)
	assert.Equal(t, "02.jpg", entries[1].Name)
	assert.Equal(t, "task.json", entries[2].Name)
	assert.Contains(t, string(entries[2].Data), `"file": "02.jpg"`)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "top-down-flat-lay", slugify("  Top-down (flat lay) "))
	assert.Equal(t, "", slugify("!!"))
}
