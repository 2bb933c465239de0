package session

import "testing"

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		// Exact matches
		{"site/hall/state", "site/hall/state", true},
		{"site/hall/state", "site/hall/command", false},

		// Single-level wildcard
		{"site/+/state", "site/hall/state", true},
		{"site/+/state", "site/kitchen/state", true},
		{"site/+/state", "site/hall/lamp/state", false},
		{"+", "site", true},
		{"+", "site/hall", false},

		// Multi-level wildcard
		{"site/#", "site/hall/state", true},
		{"site/#", "site", true},
		{"#", "anything/at/all", true},
		{"site/#/state", "site/hall/state", false}, // '#' must be last

		// Level count must match without '#'
		{"site/+", "site/hall/state", false},
		{"site/hall", "site/hall/state", false},

		// $-prefixed topics are invisible to leading wildcards
		{"#", "$SYS/broker/uptime", false},
		{"+/broker/uptime", "$SYS/broker/uptime", false},
		{"$SYS/#", "$SYS/broker/uptime", true},
	}

	for _, tt := range tests {
		if got := matchTopic(tt.filter, tt.topic); got != tt.want {
			t.Errorf("matchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}
