package testutil

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TimedBody returns a tool script body that sleeps for d and appends
// "<start_ns> <end_ns>" to timingFile.
func TimedBody(timingFile string, d time.Duration) string {
	secs := strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
	return "start=$(date +%s%N)\nsleep " + secs + "\nend=$(date +%s%N)\necho \"$start $end\" >> \"" + timingFile + "\"\n"
}

// ReadExecutionRecords parses a timing file written by TimedBody scripts.
func ReadExecutionRecords(t *testing.T, timingFile string) []ExecutionRecord {
	t.Helper()
	f, err := os.Open(timingFile)
	require.NoError(t, err)
	defer f.Close()

	var records []ExecutionRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		start, err := strconv.ParseInt(fields[0], 10, 64)
		require.NoError(t, err)
		end, err := strconv.ParseInt(fields[1], 10, 64)
		require.NoError(t, err)
		records = append(records, ExecutionRecord{Start: time.Unix(0, start), End: time.Unix(0, end)})
	}
	require.NoError(t, sc.Err())
	return records
}

// MaxOverlap returns the largest number of records running at the same
// instant.
func MaxOverlap(records []ExecutionRecord) int {
	type edge struct {
		at    time.Time
		delta int
	}
	edges := make([]edge, 0, 2*len(records))
	for _, r := range records {
		edges = append(edges, edge{r.Start, 1}, edge{r.End, -1})
	}
	// Ends sort before starts at the same instant so touching runs do not
	// count as overlapping.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at.Equal(edges[j].at) {
			return edges[i].delta < edges[j].delta
		}
		return edges[i].at.Before(edges[j].at)
	})

	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}
