package snapshot_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/forge/session"
	"github.com/blueberrycongee/forge/snapshot"
	"github.com/blueberrycongee/forge/tools"
)

func TestPushMessageSkipsEmptyContent(t *testing.T) {
	snap := snapshot.New()
	snap.PushMessage(session.Message{Role: session.RoleAssistant, Parts: []session.Part{{Kind: session.PartTokenUsage, Tokens: 5}}})
	assert.Empty(t, snap.Messages)

	snap.PushMessage(session.Message{Role: session.RoleAssistant, Parts: []session.Part{{Kind: session.PartTextFinal, Text: "hi"}}})
	require.Len(t, snap.Messages, 1)
}

func TestToMessagesIsDefensiveCopy(t *testing.T) {
	snap := snapshot.New()
	snap.PushMessage(session.Message{Role: session.RoleUser, Parts: []session.Part{{Kind: session.PartTextFinal, Text: "hi"}}})

	msgs := snap.ToMessages()
	msgs[0] = session.Message{}
	assert.Equal(t, "hi", snap.Messages[0].Parts[0].Text)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	snap := snapshot.New()
	snap.PushMessage(session.Message{Role: session.RoleUser, Parts: []session.Part{{Kind: session.PartTextFinal, Text: "hello"}}})
	snap.ToolCalls["c1"] = tools.CallRecord{CallID: "c1", ToolName: "search", Status: tools.StateCompleted, Output: &tools.Output{Content: "result"}}
	snap.RecordCompaction("summary", 42, time.Unix(1700000000, 0).UTC())
	snap.RunLogRefs = []string{"ref1"}

	data, err := snapshot.EncodeJSON(snap)
	require.NoError(t, err)

	decoded, err := snapshot.DecodeJSON(data)
	require.NoError(t, err)
	assert.Equal(t, snapshot.CurrentVersion, decoded.Version)
	require.Len(t, decoded.Messages, 1)
	assert.Equal(t, "hello", decoded.Messages[0].Parts[0].Text)
	require.Contains(t, decoded.ToolCalls, "c1")
	assert.Equal(t, "search", decoded.ToolCalls["c1"].ToolName)
	require.Len(t, decoded.Compactions, 1)
	assert.Equal(t, "summary", decoded.Compactions[0].Summary)
	assert.Equal(t, []string{"ref1"}, decoded.RunLogRefs)
}

func TestDecodeJSONRejectsUnsupportedVersion(t *testing.T) {
	_, err := snapshot.DecodeJSON([]byte(`{"version": 99, "messages": [], "tool_calls": [], "compactions": [], "trace": []}`))
	require.Error(t, err)
	var verErr *snapshot.ErrUnsupportedVersion
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, 99, verErr.Observed)
	assert.Equal(t, snapshot.CurrentVersion, verErr.Supported)
}

func TestMemStoreLoadSaveRoundTrip(t *testing.T) {
	store := snapshot.NewMemStore()
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "sess1")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := snapshot.New()
	snap.PushMessage(session.Message{Role: session.RoleUser, Parts: []session.Part{{Kind: session.PartTextFinal, Text: "hi"}}})
	require.NoError(t, store.Save(ctx, "sess1", snap))

	loaded, ok, err := store.Load(ctx, "sess1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, loaded.Messages, 1)
}

func TestFSStoreLoadSaveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	store, err := snapshot.NewFSStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "sess1")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := snapshot.New()
	snap.PushMessage(session.Message{Role: session.RoleUser, Parts: []session.Part{{Kind: session.PartTextFinal, Text: "hi"}}})
	require.NoError(t, store.Save(ctx, "sess1", snap))

	loaded, ok, err := store.Load(ctx, "sess1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "hi", loaded.Messages[0].Parts[0].Text)
}
