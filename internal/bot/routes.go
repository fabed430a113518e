package bot

import "strings"

// RouteKind identifies a callback route. Payloads are decoded once at the
// router boundary; handlers never re-parse strings.
type RouteKind int

const (
	RouteUnknown RouteKind = iota
	RouteMenuMain
	RouteHelpShow
	RouteTaskCreate
	RouteTaskCancel
	RoutePriority     // Arg: high | medium | low
	RouteDeadline     // Arg: today | tomorrow | 3days | week | none | custom_hours | custom_date
	RouteTasksList
	RouteTaskView     // Arg: task id
	RouteTaskComplete // Arg: task id
	RouteTaskDelete   // Arg: task id
	RouteStatsShow
	RouteStatsClear
	RouteAICreateTask
	RouteAIAsk
	RouteFocusStart
)

// Route is a decoded callback payload.
type Route struct {
	Kind RouteKind
	Arg  string
}

// ParseRoute decodes a raw callback payload into a typed route. Unknown
// payloads decode to RouteUnknown and are acknowledged with a generic
// toast.
func ParseRoute(payload string) Route {
	switch payload {
	case "menu:main":
		return Route{Kind: RouteMenuMain}
	case "help:show":
		return Route{Kind: RouteHelpShow}
	case "task:create":
		return Route{Kind: RouteTaskCreate}
	case "task:cancel":
		return Route{Kind: RouteTaskCancel}
	case "tasks:list":
		return Route{Kind: RouteTasksList}
	case "stats:show":
		return Route{Kind: RouteStatsShow}
	case "stats:clear":
		return Route{Kind: RouteStatsClear}
	case "ai:create_task":
		return Route{Kind: RouteAICreateTask}
	case "ai:ask":
		return Route{Kind: RouteAIAsk}
	case "focus:start":
		return Route{Kind: RouteFocusStart}
	}

	if arg, ok := strings.CutPrefix(payload, "priority:"); ok && arg != "" {
		return Route{Kind: RoutePriority, Arg: arg}
	}
	if arg, ok := strings.CutPrefix(payload, "deadline:"); ok && arg != "" {
		return Route{Kind: RouteDeadline, Arg: arg}
	}
	if arg, ok := strings.CutPrefix(payload, "task:view:"); ok && arg != "" {
		return Route{Kind: RouteTaskView, Arg: arg}
	}
	if arg, ok := strings.CutPrefix(payload, "task:complete:"); ok && arg != "" {
		return Route{Kind: RouteTaskComplete, Arg: arg}
	}
	if arg, ok := strings.CutPrefix(payload, "task:delete:"); ok && arg != "" {
		return Route{Kind: RouteTaskDelete, Arg: arg}
	}

	return Route{Kind: RouteUnknown}
}
