package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vigildata/vigil/pkg/checkpoint"
	"github.com/vigildata/vigil/pkg/retry"
)

const (
	colorSuccess = "2EB67D"
	colorFailure = "E01E5A"
)

// messageCard is the legacy Microsoft Teams connector card payload.
type messageCard struct {
	Type       string        `json:"@type"`
	Context    string        `json:"@context"`
	ThemeColor string        `json:"themeColor"`
	Summary    string        `json:"summary"`
	Sections   []cardSection `json:"sections"`
}

type cardSection struct {
	ActivityTitle string     `json:"activityTitle"`
	Facts         []cardFact `json:"facts,omitempty"`
	Text          string     `json:"text,omitempty"`
	Markdown      bool       `json:"markdown"`
}

type cardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TeamsNotifier posts a MessageCard to a Microsoft Teams incoming webhook.
type TeamsNotifier struct {
	webhook string
	client  *http.Client
	retry   retry.Config
}

func NewTeamsNotifier(webhook string) *TeamsNotifier {
	return &TeamsNotifier{
		webhook: webhook,
		client:  &http.Client{Timeout: 10 * time.Second},
		retry:   retry.DefaultConfig(),
	}
}

func (n *TeamsNotifier) Kind() string { return "teams" }

func (n *TeamsNotifier) Notify(ctx context.Context, res *checkpoint.Result) error {
	card := buildCard(res)
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card: %w", err)
	}

	return retry.Do(ctx, n.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhook, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return &webhookError{status: resp.StatusCode, body: string(body)}
		}
		return nil
	})
}

func buildCard(res *checkpoint.Result) messageCard {
	color := colorSuccess
	if !res.Success {
		color = colorFailure
	}

	card := messageCard{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: color,
		Summary:    summaryLine(res),
		Sections: []cardSection{
			{
				ActivityTitle: fmt.Sprintf("Checkpoint %s", res.Name),
				Markdown:      true,
				Facts: []cardFact{
					{Name: "Run ID", Value: res.RunID},
					{Name: "Environment", Value: res.Env},
					{Name: "Window", Value: fmt.Sprintf("%s to %s",
						res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"))},
					{Name: "Outcome", Value: summaryLine(res)},
				},
			},
		},
	}

	for _, v := range failedValidations(res) {
		card.Sections = append(card.Sections, cardSection{
			ActivityTitle: fmt.Sprintf("%s / %s", v.AssetName, v.SuiteName),
			Markdown:      true,
			Text: fmt.Sprintf("%d of %d expectations failed",
				v.Statistics.UnsuccessfulExpectations, v.Statistics.EvaluatedExpectations),
		})
	}
	return card
}

type webhookError struct {
	status int
	body   string
}

func (e *webhookError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.status, e.body)
}

func (e *webhookError) StatusCode() int { return e.status }
