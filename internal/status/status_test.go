package status

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestBoard(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	b := NewBoard(&out)

	assert.Equal(t, Idle, b.Snapshot().State)

	b.SetState(Running, "syncing en/common.json")
	snap := b.Snapshot()
	assert.Equal(t, Running, snap.State)
	assert.Equal(t, "syncing en/common.json", snap.Message)
	assert.Equal(t, 1, snap.Syncs)

	b.SetState(Error, "provider down")
	b.SetIdle()

	snap = b.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Message)
	assert.Equal(t, "provider down", snap.LastError)

	// Idle transitions are not echoed
	assert.Equal(t, "running syncing en/common.json\nerror provider down\n", out.String())
}

func TestRender(t *testing.T) {
	color.NoColor = true
	assert.Equal(t, "idle", Render(Snapshot{State: Idle}))
	assert.Equal(t, "running fr", Render(Snapshot{State: Running, Message: "fr"}))
}
