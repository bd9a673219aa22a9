package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vigildata/vigil/pkg/checkpoint"
	"github.com/vigildata/vigil/pkg/config"
)

type stubNotifier struct {
	calls int
}

func (s *stubNotifier) Kind() string { return "stub" }

func (s *stubNotifier) Notify(ctx context.Context, res *checkpoint.Result) error {
	s.calls++
	return nil
}

func TestVigil_Notify_New(t *testing.T) {
	t.Parallel()
	n, err := New("teams", "https://example.com/webhook")
	require.NoError(t, err)
	require.Equal(t, "teams", n.Kind())

	n, err = New("slack", "https://example.com/webhook")
	require.NoError(t, err)
	require.Equal(t, "slack", n.Kind())

	_, err = New("carrier-pigeon", "coop")
	require.Error(t, err)
}

func TestVigil_Notify_ActionGating(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		on      config.NotifyOn
		success bool
		sent    bool
	}{
		{"failure_on_failure", config.NotifyOnFailure, false, true},
		{"failure_on_success", config.NotifyOnFailure, true, false},
		{"success_on_success", config.NotifyOnSuccess, true, true},
		{"success_on_failure", config.NotifyOnSuccess, false, false},
		{"all_on_failure", config.NotifyOnAll, false, true},
		{"all_on_success", config.NotifyOnAll, true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			stub := &stubNotifier{}
			action := &Action{Notifier: stub, On: tc.on}
			require.Equal(t, "notify_webhook", action.Name())

			err := action.Run(t.Context(), sampleResult(tc.success))
			require.NoError(t, err)
			if tc.sent {
				require.Equal(t, 1, stub.calls)
			} else {
				require.Equal(t, 0, stub.calls)
			}
		})
	}
}
