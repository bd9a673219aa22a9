package docs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vigildata/vigil/pkg/checkpoint"
	"github.com/vigildata/vigil/pkg/expect"
	"github.com/vigildata/vigil/pkg/logger"
)

func sampleRun(runID string, success bool) *checkpoint.Result {
	return &checkpoint.Result{
		Name:      "way4.daily_docs",
		RunID:     runID,
		RunTime:   time.Date(2026, 3, 8, 6, 0, 0, 0, time.UTC),
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		Success:   success,
		Validations: []checkpoint.ValidationResult{
			{
				JobName:       "way4_daily_docs",
				AssetName:     "way4.doc",
				SuiteName:     "doc_suite",
				RenderedQuery: "SELECT * FROM way4.doc WHERE d BETWEEN '2026-03-01' AND '2026-03-07'",
				Success:       success,
				Results: []expect.Result{
					{
						ExpectationType:   "expect_column_values_to_not_be_null",
						Success:           success,
						ObservedValue:     "3.00% unexpected",
						ElementCount:      100,
						UnexpectedCount:   3,
						UnexpectedPercent: 3,
					},
				},
				Statistics: checkpoint.Statistics{EvaluatedExpectations: 1},
			},
		},
	}
}

func TestVigil_Docs_Build(t *testing.T) {
	t.Parallel()
	outDir := t.TempDir()
	b, err := NewBuilder(logger.NewWithWriter(os.Stderr, false), outDir, "Vigil Data Docs")
	require.NoError(t, err)

	runs := []*checkpoint.Result{
		sampleRun("20260308T060000Z-aaaa1111", false),
		sampleRun("20260307T060000Z-bbbb2222", true),
	}
	require.NoError(t, b.Build(runs))

	index, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(index), "Vigil Data Docs")
	require.Contains(t, string(index), "20260308T060000Z-aaaa1111")
	require.Contains(t, string(index), "20260307T060000Z-bbbb2222")

	page, err := os.ReadFile(filepath.Join(outDir, "validations", "20260308T060000Z-aaaa1111.html"))
	require.NoError(t, err)
	require.Contains(t, string(page), "expect_column_values_to_not_be_null")
	require.Contains(t, string(page), "way4.doc")
	require.Contains(t, string(page), "doc_suite")
	require.Contains(t, string(page), "3 of 100")
}

func TestVigil_Docs_BuildEmptyHistory(t *testing.T) {
	t.Parallel()
	outDir := t.TempDir()
	b, err := NewBuilder(logger.NewWithWriter(os.Stderr, false), outDir, "")
	require.NoError(t, err)
	require.NoError(t, b.Build(nil))

	index, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(index), "No validation runs recorded yet")
	require.Contains(t, string(index), "Data Docs")
}

func TestVigil_Docs_ActionUsesHistory(t *testing.T) {
	t.Parallel()
	outDir := t.TempDir()
	b, err := NewBuilder(logger.NewWithWriter(os.Stderr, false), outDir, "")
	require.NoError(t, err)

	current := sampleRun("20260308T060000Z-cccc3333", true)
	action := &Action{
		Builder: b,
		History: func() ([]*checkpoint.Result, error) {
			return []*checkpoint.Result{
				current,
				sampleRun("20260307T060000Z-dddd4444", true),
			}, nil
		},
	}
	require.Equal(t, "update_data_docs", action.Name())
	require.NoError(t, action.Run(t.Context(), current))

	index, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(index), "cccc3333")
	require.Contains(t, string(index), "dddd4444")
}
