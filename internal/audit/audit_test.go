package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := Open(path, 1, 1)

	require.NoError(t, l.Record(Entry{Target: "ignore", Verb: "dedupe", Outcome: "applied", BackupPath: "b/x.bak"}))
	require.NoError(t, l.Record(Entry{Target: "settings", Verb: "append-deny", Outcome: "declined"}))
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "dedupe", entries[0].Verb)
	assert.False(t, entries[0].Time.IsZero(), "time should be stamped automatically")
	assert.Equal(t, "declined", entries[1].Outcome)
}
