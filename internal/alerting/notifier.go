package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Alert carries the context of one triggered signal.
type Alert struct {
	IndicatorID   string
	IndicatorName string
	ScorePct      float64
	ThresholdPct  float64
	NewValue      float64
	Unit          string
	Date          string
}

// Title renders the notification title.
func (a Alert) Title() string {
	return fmt.Sprintf("TrendWatch Alert: %s", a.IndicatorName)
}

// Message renders the human-readable notification body: direction by sign,
// magnitude, configured threshold, new value with unit, and point date.
func (a Alert) Message() string {
	direction := "increased"
	if a.ScorePct < 0 {
		direction = "decreased"
	}

	date := a.Date
	if len(date) > 10 {
		date = date[:10]
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s %s by %.1f%% (threshold: %.1f%%)\n\n",
		a.IndicatorName, direction, abs(a.ScorePct), a.ThresholdPct))
	builder.WriteString(fmt.Sprintf("New value: %.3f %s\n", a.NewValue, a.Unit))
	builder.WriteString(fmt.Sprintf("Date: %s", date))
	return builder.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Notifier dispatches alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
	Send(ctx context.Context, title, message string) error
}

// PushoverNotifier delivers alerts via the Pushover messages API.
type PushoverNotifier struct {
	userKey  string
	apiToken string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewPushoverNotifier constructs a Pushover-backed notifier.
func NewPushoverNotifier(userKey, apiToken, baseURL string, timeout time.Duration, logger zerolog.Logger) *PushoverNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.pushover.net"
	}

	return &PushoverNotifier{
		userKey:  userKey,
		apiToken: apiToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_pushover").Logger(),
	}
}

// Notify renders and dispatches one alert.
func (n *PushoverNotifier) Notify(ctx context.Context, alert Alert) error {
	return n.Send(ctx, alert.Title(), alert.Message())
}

// Send posts a form-encoded message; the API signals success with a JSON
// status of 1.
func (n *PushoverNotifier) Send(ctx context.Context, title, message string) error {
	form := url.Values{
		"token":   {n.apiToken},
		"user":    {n.userKey},
		"message": {message},
		"title":   {title},
	}

	endpoint := n.baseURL + "/1/messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushover request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read pushover response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushover returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode pushover response: %w", err)
	}
	if result.Status != 1 {
		return fmt.Errorf("pushover rejected message: %s", strings.TrimSpace(string(body)))
	}

	n.logger.Info().Str("title", title).Msg("alert dispatched")
	return nil
}

// DryRunNotifier renders and logs alerts without dispatching them, so a run
// can be verified without side effects.
type DryRunNotifier struct {
	logger zerolog.Logger
}

// NewDryRunNotifier constructs the dry-run decorator.
func NewDryRunNotifier(logger zerolog.Logger) *DryRunNotifier {
	return &DryRunNotifier{logger: logger.With().Str("component", "alert_dryrun").Logger()}
}

// Notify logs the rendered alert.
func (n *DryRunNotifier) Notify(ctx context.Context, alert Alert) error {
	return n.Send(ctx, alert.Title(), alert.Message())
}

// Send logs the rendered message without network I/O.
func (n *DryRunNotifier) Send(_ context.Context, title, message string) error {
	n.logger.Info().
		Str("title", title).
		Str("message", message).
		Msg("dry run: alert suppressed")
	return nil
}

var (
	_ Notifier = (*PushoverNotifier)(nil)
	_ Notifier = (*DryRunNotifier)(nil)
)
