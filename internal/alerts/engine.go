package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/godruoyi/go-snowflake"

	"github.com/banddepth/banddepth/internal/config"
	"github.com/banddepth/banddepth/internal/scoring"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	EnsembleID string     `json:"ensemble_id"`
	CurveID    string     `json:"curve_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Condition  string     `json:"condition"`
	Field      string     `json:"field"` // depth or count
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against scored batches and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []rule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "rule:ensemble:curve"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	client  *http.Client
	now     func() time.Time
	deliver func(a *Alert) // replaced in tests
}

// New creates an Engine from the alerts configuration. Rules whose
// condition does not parse are logged and ignored. An Engine without rules
// is valid; Observe becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.deliver = e.send
	e.Reload(cfg)
	return e
}

// Reload replaces the rules and webhooks. Firing alerts of rules that no
// longer exist stay listed until they resolve or the process restarts.
func (e *Engine) Reload(cfg config.AlertsConfig) {
	rules := make([]rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			slog.Error("alerts: ignoring rule", "rule", r.Name, "err", err)
			continue
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.webhooks = cfg.Webhooks
}

// Observe implements scoring.Sink. Failed batches are ignored.
func (e *Engine) Observe(b *scoring.Batch) {
	if b.Err != nil {
		return
	}

	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := e.now()
	for _, r := range rules {
		if r.Ensemble != "" && r.Ensemble != b.EnsembleID {
			continue
		}
		for _, res := range b.Results {
			fires, value := r.cond.eval(res)
			if fires {
				e.fire(r, b.EnsembleID, res.CurveID, value, now)
			} else {
				e.resolve(r, b.EnsembleID, res.CurveID, now)
			}
		}
	}
}

func (e *Engine) fire(r rule, ensembleID, curveID string, value float64, now time.Time) {
	key := r.Name + ":" + ensembleID + ":" + curveID
	cooldown := r.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	e.mu.Lock()
	if now.Sub(e.lastFire[key]) <= cooldown {
		e.mu.Unlock()
		return
	}
	sev := r.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:         strconv.FormatUint(snowflake.ID(), 36),
		RuleName:   r.Name,
		EnsembleID: ensembleID,
		CurveID:    curveID,
		Severity:   sev,
		Condition:  r.Condition,
		Field:      r.cond.field,
		Value:      value,
		Message: fmt.Sprintf("[%s] %s fired on %s/%s: %s (%s = %.4g)",
			sev, r.Name, ensembleID, curveID, r.Condition, r.cond.field, value),
		FiredAt: now,
		State:   StateFiring,
	}
	e.active[key] = a
	e.lastFire[key] = now
	alertCopy := *a
	deliver := e.deliver
	e.mu.Unlock()

	slog.Warn("alert fired",
		"rule", r.Name,
		"ensemble", ensembleID,
		"curve", curveID,
		"value", value,
		"severity", sev,
	)
	go deliver(&alertCopy)
}

func (e *Engine) resolve(r rule, ensembleID, curveID string, now time.Time) {
	key := r.Name + ":" + ensembleID + ":" + curveID

	e.mu.Lock()
	a, ok := e.active[key]
	if !ok {
		e.mu.Unlock()
		return
	}
	resolved := now
	a.State = StateResolved
	a.ResolvedAt = &resolved
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	alertCopy := *a
	deliver := e.deliver
	e.mu.Unlock()

	slog.Info("alert resolved",
		"rule", r.Name,
		"ensemble", ensembleID,
		"curve", curveID,
	)
	go deliver(&alertCopy)
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Firing returns the number of currently firing alerts.
func (e *Engine) Firing() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
