package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/vigildata/vigil/pkg/checkpoint"
	"github.com/vigildata/vigil/pkg/retry"
)

// SlackNotifier posts checkpoint outcomes to a Slack incoming webhook as a
// colored attachment.
type SlackNotifier struct {
	webhook string
	retry   retry.Config
}

func NewSlackNotifier(webhook string) *SlackNotifier {
	return &SlackNotifier{webhook: webhook, retry: retry.DefaultConfig()}
}

func (n *SlackNotifier) Kind() string { return "slack" }

func (n *SlackNotifier) Notify(ctx context.Context, res *checkpoint.Result) error {
	color := "#" + colorSuccess
	if !res.Success {
		color = "#" + colorFailure
	}

	fields := []slack.AttachmentField{
		{Title: "Run ID", Value: res.RunID, Short: true},
		{Title: "Environment", Value: res.Env, Short: true},
		{Title: "Window", Value: fmt.Sprintf("%s to %s",
			res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02")), Short: true},
	}
	for _, v := range failedValidations(res) {
		fields = append(fields, slack.AttachmentField{
			Title: fmt.Sprintf("%s / %s", v.AssetName, v.SuiteName),
			Value: fmt.Sprintf("%d of %d expectations failed",
				v.Statistics.UnsuccessfulExpectations, v.Statistics.EvaluatedExpectations),
		})
	}

	msg := &slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				Color:  color,
				Title:  fmt.Sprintf("Checkpoint %s", res.Name),
				Text:   summaryLine(res),
				Fields: fields,
			},
		},
	}

	return retry.Do(ctx, n.retry, func() error {
		return slack.PostWebhookContext(ctx, n.webhook, msg)
	})
}
