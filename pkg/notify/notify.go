// Package notify posts checkpoint outcomes to a chat webhook.
package notify

import (
	"context"
	"fmt"

	"github.com/vigildata/vigil/pkg/checkpoint"
	"github.com/vigildata/vigil/pkg/config"
	"github.com/vigildata/vigil/pkg/metrics"
)

type Notifier interface {
	Kind() string
	Notify(ctx context.Context, res *checkpoint.Result) error
}

// New returns a notifier for the configured webhook kind.
func New(kind, webhook string) (Notifier, error) {
	switch kind {
	case "teams":
		return NewTeamsNotifier(webhook), nil
	case "slack":
		return NewSlackNotifier(webhook), nil
	default:
		return nil, fmt.Errorf("unsupported webhook kind %q", kind)
	}
}

// Action adapts a Notifier into a checkpoint action, gated on the configured
// outcome filter.
type Action struct {
	Notifier Notifier
	On       config.NotifyOn
}

func (a *Action) Name() string { return "notify_webhook" }

func (a *Action) Run(ctx context.Context, res *checkpoint.Result) error {
	switch a.On {
	case config.NotifyOnFailure:
		if res.Success {
			return nil
		}
	case config.NotifyOnSuccess:
		if !res.Success {
			return nil
		}
	}

	err := a.Notifier.Notify(ctx, res)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.NotificationsTotal.WithLabelValues(a.Notifier.Kind(), outcome).Inc()
	return err
}

// summaryLine renders the one-line outcome used by both webhook formats.
func summaryLine(res *checkpoint.Result) string {
	stats := res.Stats()
	status := "passed"
	if !res.Success {
		status = "FAILED"
	}
	return fmt.Sprintf("Validation %s: %d/%d expectations met across %d validation(s)",
		status, stats.SuccessfulExpectations, stats.EvaluatedExpectations, len(res.Validations))
}

// failedValidations lists the (asset, suite) pairs that did not pass.
func failedValidations(res *checkpoint.Result) []checkpoint.ValidationResult {
	var failed []checkpoint.ValidationResult
	for _, v := range res.Validations {
		if !v.Success {
			failed = append(failed, v)
		}
	}
	return failed
}
