package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vigildata/vigil/pkg/checkpoint"
	"github.com/vigildata/vigil/pkg/expect"
)

func sampleResult(success bool) *checkpoint.Result {
	res := &checkpoint.Result{
		Name:      "way4.daily_docs",
		RunID:     "20260308T060000Z-abcd1234",
		RunTime:   time.Date(2026, 3, 8, 6, 0, 0, 0, time.UTC),
		Env:       "staging",
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		Success:   success,
		Validations: []checkpoint.ValidationResult{
			{
				JobName:   "way4_daily_docs",
				AssetName: "way4.doc",
				SuiteName: "doc_suite",
				Success:   success,
				Results: []expect.Result{
					{ExpectationType: "expect_table_row_count_to_be_between", Success: success},
				},
				Statistics: checkpoint.Statistics{
					EvaluatedExpectations:    1,
					SuccessfulExpectations:   boolToInt(success),
					UnsuccessfulExpectations: 1 - boolToInt(success),
				},
			},
		},
	}
	return res
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestVigil_Notify_TeamsPayload(t *testing.T) {
	t.Parallel()
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTeamsNotifier(srv.URL)
	err := n.Notify(t.Context(), sampleResult(false))
	require.NoError(t, err)

	require.Equal(t, "MessageCard", received["@type"])
	require.Equal(t, colorFailure, received["themeColor"])
	require.Contains(t, received["summary"], "FAILED")

	sections, ok := received["sections"].([]any)
	require.True(t, ok)
	// Header section plus one per failed validation.
	require.Len(t, sections, 2)
	failedSection := sections[1].(map[string]any)
	require.Contains(t, failedSection["activityTitle"], "way4.doc")
}

func TestVigil_Notify_TeamsSuccessColor(t *testing.T) {
	t.Parallel()
	card := buildCard(sampleResult(true))
	require.Equal(t, colorSuccess, card.ThemeColor)
	require.Len(t, card.Sections, 1)
}

func TestVigil_Notify_TeamsRetriesServerErrors(t *testing.T) {
	t.Parallel()
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTeamsNotifier(srv.URL)
	n.retry.BaseBackoff = time.Millisecond
	n.retry.MaxBackoff = 5 * time.Millisecond

	err := n.Notify(t.Context(), sampleResult(false))
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestVigil_Notify_TeamsClientErrorIsFatal(t *testing.T) {
	t.Parallel()
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTeamsNotifier(srv.URL)
	n.retry.BaseBackoff = time.Millisecond

	err := n.Notify(t.Context(), sampleResult(false))
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
