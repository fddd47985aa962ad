package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCSV(t *testing.T) (*CSVJournal, string) {
	t.Helper()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)
	return j, dir
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)
	require.NoError(t, j.Close())

	assert.Equal(t, runsHeader, readRows(t, filepath.Join(dir, "runs.csv"))[0])
	assert.Equal(t, fillsHeader, readRows(t, filepath.Join(dir, "fills.csv"))[0])
	assert.Equal(t, equityHeader, readRows(t, filepath.Join(dir, "equity.csv"))[0])
	assert.Equal(t, rejectionsHeader, readRows(t, filepath.Join(dir, "rejections.csv"))[0])
}

func TestCSVJournalRecordRun(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)

	require.NoError(t, j.RecordRun(sampleRun("01RUNA000000000000000000A1")))
	require.NoError(t, j.Close())

	rows := readRows(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, rows, 2)

	want := []string{
		"01RUNA000000000000000000A1",
		"2024-07-01T12:00:00Z",
		"threshold",
		"2024-07-01T12:00:00Z",
		"2024-07-01T14:00:00Z",
		"3600.000000",
		"10000.000000",
		"10200.000000",
		"0.020000",
		"1.250000",
		"0.010000",
		"1",
		"1",
		"0",
		"1",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalNaNSharpe(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)

	res := sampleResult()
	require.NoError(t, j.RecordRun(NewRunRecord(res)))
	require.NoError(t, j.Close())

	rows := readRows(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "NaN", rows[1][9])
}

func TestCSVJournalRecordFill(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)

	res := sampleResult()
	require.NoError(t, j.RecordFill(res.RunID, res.TradeLog.Fills[1]))
	require.NoError(t, j.Close())

	rows := readRows(t, filepath.Join(dir, "fills.csv"))
	require.Len(t, rows, 2)

	want := []string{
		res.RunID,
		"fill-000002",
		"2024-07-01T14:00:00Z",
		"kx-highs-lhr-30c",
		"yes",
		"-100.000000",
		"0.420000",
		"0.420000",
		"200.000000",
		"true",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalRecordEquity(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)

	res := sampleResult()
	require.NoError(t, j.RecordEquity(res.RunID, res.EquityCurve[1]))
	require.NoError(t, j.Close())

	rows := readRows(t, filepath.Join(dir, "equity.csv"))
	require.Len(t, rows, 2)

	want := []string{
		res.RunID,
		"2024-07-01T13:00:00Z",
		"5960.000000",
		"4100.000000",
		"10060.000000",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalRecordRejection(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)

	res := sampleResult()
	require.NoError(t, j.RecordRejection(res.RunID, res.TradeLog.Rejections[0]))
	require.NoError(t, j.Close())

	rows := readRows(t, filepath.Join(dir, "rejections.csv"))
	require.Len(t, rows, 2)

	want := []string{
		res.RunID,
		"2024-07-01T13:00:00Z",
		"kx-highs-lhr-30c",
		"yes",
		"enter",
		"CAPITAL_LIMIT",
		"cost 20000.00 exceeds cash 5960.00",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVRecordWholeResult(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)

	res := sampleResult()
	require.NoError(t, Record(j, res))
	require.NoError(t, j.Close())

	assert.Len(t, readRows(t, filepath.Join(dir, "runs.csv")), 2)
	assert.Len(t, readRows(t, filepath.Join(dir, "fills.csv")), 3)
	assert.Len(t, readRows(t, filepath.Join(dir, "equity.csv")), 4)
	assert.Len(t, readRows(t, filepath.Join(dir, "rejections.csv")), 2)
}

func TestCSVJournalCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "journal")
	j, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = os.Stat(filepath.Join(dir, "runs.csv"))
	assert.NoError(t, err)
}
