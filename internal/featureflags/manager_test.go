package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerMergesDefaults(t *testing.T) {
	m := NewManager(" bad ,article_ingest=off, karma_badges = 20% ,extra=on")

	raw := m.Raw()
	require.Len(t, raw, len(defaultFlags)+1)
	assert.Equal(t, "off", raw["article_ingest"], "override should win over the default")
	assert.Equal(t, "20%", raw["karma_badges"])
	assert.Equal(t, "on", raw["extra"])
	assert.Equal(t, "off", raw["support_surveys"], "untouched defaults survive")
}

func TestEnabledBooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabledPercentageRollout(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=x%")

	assert.True(t, m.Enabled("always", 1))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("junk", 1))

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, m.Enabled("canary", 42),
			"rollout evaluation must be deterministic per user")
	}

	assert.False(t, m.Enabled("canary", 0), "rollouts need a non-zero user ID")
}

func TestSnapshot(t *testing.T) {
	m := NewManager("x=on,y=off")

	snap := m.Snapshot(123)
	require.Len(t, snap, len(defaultFlags)+2)
	assert.True(t, snap["x"])
	assert.False(t, snap["y"])
	assert.True(t, snap["article_ingest"])
}

func TestNilManagerIsOff(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled("article_ingest", 1))
}
