package bot

import "testing"

func TestParseRoute(t *testing.T) {
	tests := []struct {
		payload string
		kind    RouteKind
		arg     string
	}{
		{"menu:main", RouteMenuMain, ""},
		{"help:show", RouteHelpShow, ""},
		{"task:create", RouteTaskCreate, ""},
		{"task:cancel", RouteTaskCancel, ""},
		{"tasks:list", RouteTasksList, ""},
		{"stats:show", RouteStatsShow, ""},
		{"stats:clear", RouteStatsClear, ""},
		{"ai:create_task", RouteAICreateTask, ""},
		{"ai:ask", RouteAIAsk, ""},
		{"focus:start", RouteFocusStart, ""},
		{"priority:high", RoutePriority, "high"},
		{"priority:low", RoutePriority, "low"},
		{"deadline:custom_hours", RouteDeadline, "custom_hours"},
		{"deadline:none", RouteDeadline, "none"},
		{"task:view:3f2b8a10-0000-0000-0000-000000000000", RouteTaskView, "3f2b8a10-0000-0000-0000-000000000000"},
		{"task:complete:abc", RouteTaskComplete, "abc"},
		{"task:delete:abc", RouteTaskDelete, "abc"},
		{"priority:", RouteUnknown, ""},
		{"deadline:", RouteUnknown, ""},
		{"task:view:", RouteUnknown, ""},
		{"", RouteUnknown, ""},
		{"garbage", RouteUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got := ParseRoute(tt.payload)
			if got.Kind != tt.kind || got.Arg != tt.arg {
				t.Errorf("ParseRoute(%q) = %+v, want kind %v arg %q", tt.payload, got, tt.kind, tt.arg)
			}
		})
	}
}
