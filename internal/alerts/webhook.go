package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

const resolvedColor = "2EB886"

// fact is one labelled value shown in a chat notification.
type fact struct {
	Name  string
	Value string
}

// facts lists the curve that triggered a and the value its rule compared.
func facts(a *Alert) []fact {
	out := []fact{
		{"Ensemble", a.EnsembleID},
		{"Curve", a.CurveID},
	}
	if a.Condition != "" {
		out = append(out, fact{"Condition", a.Condition})
	}
	field := a.Field
	if field == "" {
		field = "value"
	}
	out = append(out, fact{field, formatValue(field, a.Value)})
	return out
}

// formatValue renders depths with fixed precision and counts as integers.
func formatValue(field string, v float64) string {
	if field == "count" {
		return strconv.FormatUint(uint64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func headline(a *Alert) string {
	return fmt.Sprintf("%s %s on %s/%s", stateLabel(a), a.RuleName, a.EnsembleID, a.CurveID)
}

func color(a *Alert) string {
	if a.State == StateResolved {
		return resolvedColor
	}
	return severityColor(a.Severity)
}

// send posts a to every configured webhook target.
// Failures are logged and never reach the scoring path.
func (e *Engine) send(a *Alert) {
	e.mu.Lock()
	webhooks := e.webhooks
	e.mu.Unlock()

	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		body, err := payload(wh.Type, a)
		if err != nil {
			slog.Warn("alerts: skipping webhook", "type", wh.Type, "err", err)
			continue
		}
		if err := e.post(url, body); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type, "rule", a.RuleName, "curve", a.CurveID, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type, "rule", a.RuleName, "curve", a.CurveID, "state", a.State)
	}
}

// payload encodes a for the given webhook type.
func payload(typ string, a *Alert) ([]byte, error) {
	switch typ {
	case "slack":
		return json.Marshal(slackPayload(a))
	case "teams":
		return json.Marshal(teamsPayload(a))
	case "http":
		return json.Marshal(map[string]interface{}{"alert": a})
	default:
		return nil, fmt.Errorf("unknown webhook type %q", typ)
	}
}

// slackPayload is an incoming-webhook message whose attachment carries one
// short field per fact.
func slackPayload(a *Alert) map[string]interface{} {
	fields := make([]map[string]interface{}, 0, 4)
	for _, f := range facts(a) {
		fields = append(fields, map[string]interface{}{"title": f.Name, "value": f.Value, "short": true})
	}
	return map[string]interface{}{
		"text": fmt.Sprintf("*%s* %s", stateLabel(a), a.Message),
		"attachments": []map[string]interface{}{{
			"color":    "#" + color(a),
			"fallback": headline(a),
			"fields":   fields,
			"ts":       a.FiredAt.Unix(),
		}},
	}
}

// teamsPayload is a MessageCard with the facts in its single section.
func teamsPayload(a *Alert) map[string]interface{} {
	fs := make([]map[string]string, 0, 4)
	for _, f := range facts(a) {
		fs = append(fs, map[string]string{"name": f.Name, "value": f.Value})
	}
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color(a),
		"summary":    headline(a),
		"title":      fmt.Sprintf("Band depth alert %s: %s", a.State, a.RuleName),
		"sections": []map[string]interface{}{{
			"activityTitle": a.Message,
			"facts":         fs,
		}},
	}
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func stateLabel(a *Alert) string {
	if a.State == StateResolved {
		return "[RESOLVED]"
	}
	switch a.Severity {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
