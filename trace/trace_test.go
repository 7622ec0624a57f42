package trace_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/trace"
)

func TestExecutionTraceAppendIsOrderedAndDefensive(t *testing.T) {
	tr := trace.New()
	now := time.Unix(0, 0)
	tr.Append(trace.NodeStart("inc", now))
	tr.Append(trace.NodeFinish("inc", 5*time.Millisecond, now))

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, trace.KindNodeStart, entries[0].Kind)
	assert.Equal(t, trace.KindNodeFinish, entries[1].Kind)
	assert.Equal(t, int64(5), entries[1].DurationMs)

	entries[0] = trace.Entry{}
	assert.Equal(t, trace.KindNodeStart, tr.Entries()[0].Kind)
}

func TestReplayIsIdentity(t *testing.T) {
	tr := trace.New()
	now := time.Unix(0, 0)
	tr.Append(trace.NodeStart("inc", now))
	tr.Append(trace.NodeFinish("inc", time.Millisecond, now))

	assert.Equal(t, tr.Entries(), trace.Replay(tr))
}

func TestReplayToSinkPreservesOrder(t *testing.T) {
	tr := trace.New()
	now := time.Unix(0, 0)
	tr.Append(trace.NodeStart("inc", now))
	tr.Append(trace.NodeFinish("inc", time.Millisecond, now))
	tr.Append(trace.Compacted("sess1", "summary-ref", now))

	var kinds []event.Kind
	sink := event.SinkFunc(func(e event.Event) { kinds = append(kinds, e.EventKind()) })
	trace.ReplayToSink(tr, sink)

	require.Len(t, kinds, 3)
	assert.Equal(t, event.KindSessionPhaseChanged, kinds[0])
	assert.Equal(t, event.KindStepFinish, kinds[1])
	assert.Equal(t, event.KindSessionCompacted, kinds[2])
}

func TestReplayToRecordSinkAssignsFreshSeq(t *testing.T) {
	tr := trace.New()
	now := time.Unix(0, 0)
	tr.Append(trace.NodeStart("inc", now))
	tr.Append(trace.Compacted("sess1", "ref", now))

	var records []event.Record
	sink := event.RecordSinkFunc(func(r event.Record) { records = append(records, r) })
	seq := event.NewSequencer()
	trace.ReplayToRecordSink(tr, sink, seq)

	require.Len(t, records, 2)
	assert.Equal(t, uint64(0), records[0].Meta.Seq)
	assert.Equal(t, uint64(1), records[1].Meta.Seq)
}

func TestReplayToJSONIsDeterministic(t *testing.T) {
	build := func() *trace.ExecutionTrace {
		tr := trace.New()
		now := time.Unix(1700000000, 0)
		tr.Append(trace.NodeStart("inc", now))
		tr.Append(trace.NodeFinish("inc", 2*time.Millisecond, now))
		return tr
	}

	a, err := trace.ReplayToJSON(build())
	require.NoError(t, err)
	b, err := trace.ReplayToJSON(build())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var decoded []trace.Entry
	require.NoError(t, json.Unmarshal(a, &decoded))
	require.Len(t, decoded, 2)
}

func TestWriteAuditLog(t *testing.T) {
	tr := trace.New()
	tr.Append(trace.NodeStart("inc", time.Unix(0, 0)))

	path := filepath.Join(t.TempDir(), "audit.json")
	require.NoError(t, trace.WriteAuditLog(tr, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []trace.Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 1)
}
