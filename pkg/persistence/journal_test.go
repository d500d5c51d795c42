package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func journalPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "edits.journal")
}

func TestJournalAppendReplay(t *testing.T) {
	path := journalPath(t)
	j, err := OpenJournal(path, nil)
	require.NoError(t, err)

	_, err = j.Append(OpApplyTool, "line tool, 3 nodes", "snap-1")
	require.NoError(t, err)
	_, err = j.Append(OpDeduplicate, "removed 2 duplicates", "")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	entries, err := ReplayJournal(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(1), entries[0].Seq)
	require.Equal(t, OpApplyTool, entries[0].Op)
	require.Equal(t, "snap-1", entries[0].SnapshotID)
	require.Equal(t, uint64(2), entries[1].Seq)
	require.Equal(t, OpDeduplicate, entries[1].Op)
	require.Equal(t, "removed 2 duplicates", entries[1].Detail)
}

func TestJournalSequenceContinues(t *testing.T) {
	path := journalPath(t)

	j, err := OpenJournal(path, nil)
	require.NoError(t, err)
	_, err = j.Append(OpConnect, "1 -> 2", "")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = OpenJournal(path, nil)
	require.NoError(t, err)
	e, err := j.Append(OpUndo, "", "")
	require.NoError(t, err)
	require.Equal(t, uint64(2), e.Seq)

	tail := j.Tail()
	require.Len(t, tail, 2)
	require.Equal(t, OpConnect, tail[0].Op)
	require.NoError(t, j.Close())
}

func TestJournalTruncatedTailTolerated(t *testing.T) {
	path := journalPath(t)
	j, err := OpenJournal(path, nil)
	require.NoError(t, err)
	_, err = j.Append(OpMoveNodes, "node 4", "")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// Simulate a crash mid-append: chop bytes off the last frame.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0o644))
	// And start a second, complete-looking file state by reopening.
	j, err = OpenJournal(path, nil)
	require.NoError(t, err)
	e, err := j.Append(OpSaveCourse, "course.xml", "")
	require.NoError(t, err)
	// The chopped frame is gone, so the sequence restarts at 1.
	require.Equal(t, uint64(1), e.Seq)
	require.NoError(t, j.Close())

	entries, err := ReplayJournal(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, OpSaveCourse, entries[0].Op)
}

func TestJournalCorruptFrame(t *testing.T) {
	path := journalPath(t)
	j, err := OpenJournal(path, nil)
	require.NoError(t, err)
	_, err = j.Append(OpRedo, "", "")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// Flip a payload byte; the checksum must catch it.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = ReplayJournal(path)
	require.ErrorIs(t, err, ErrCorruptFrame)
}

func TestJournalReset(t *testing.T) {
	path := journalPath(t)
	j, err := OpenJournal(path, nil)
	require.NoError(t, err)
	_, err = j.Append(OpDeleteNodes, "3 nodes", "")
	require.NoError(t, err)
	require.NoError(t, j.Reset())
	require.Empty(t, j.Tail())

	e, err := j.Append(OpApplyTool, "", "")
	require.NoError(t, err)
	require.Equal(t, uint64(1), e.Seq)
	require.NoError(t, j.Close())

	entries, err := ReplayJournal(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestReplayMissingFile(t *testing.T) {
	entries, err := ReplayJournal(filepath.Join(t.TempDir(), "nope.journal"))
	require.NoError(t, err)
	require.Empty(t, entries)
}
