// Package featureflags evaluates static feature flags loaded from
// configuration at startup. Flags gate rollout of API surface without a
// redeploy; there is no runtime store behind them.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// defaultFlags are the built-in flags for this service. The FEATURE_FLAGS
// config value overrides entries here and may add ad-hoc ones.
var defaultFlags = map[string]string{
	"article_ingest":  "on",  // admin feed ingestion endpoint
	"karma_badges":    "off", // profile badges derived from karma tiers
	"support_surveys": "off", // post-session satisfaction prompt
}

// Manager evaluates feature flags against a merged default plus override set.
// Override syntax is a comma-separated key=value list, for example
// "article_ingest=off,karma_badges=10%".
type Manager struct {
	flags map[string]string
}

// NewManager builds a manager from the FEATURE_FLAGS override string.
// Malformed pairs are skipped rather than rejected.
func NewManager(overrides string) *Manager {
	flags := make(map[string]string, len(defaultFlags))
	for name, value := range defaultFlags {
		flags[name] = value
	}

	for _, pair := range strings.Split(overrides, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = normalize(name)
		value = normalize(value)
		if name == "" || value == "" {
			continue
		}
		flags[name] = value
	}

	return &Manager{flags: flags}
}

// Enabled reports whether a flag is on for the given user. Values are
// on/true/1, off/false/0, or N% for a deterministic per-user rollout.
// Unknown flags and unparseable values evaluate to off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	name = normalize(name)

	value, ok := m.flags[name]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	// Rollouts need a stable identity to bucket on.
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Raw returns a copy of the merged flag set as configured.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for name, value := range m.flags {
		out[name] = value
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", name, userID)))
	return int(h.Sum32() % 100)
}
