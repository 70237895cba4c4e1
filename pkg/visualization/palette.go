package visualization

import "strings"

// Known entity statuses
const (
	StatusActive      = "ACTIVE"
	StatusDeprecated  = "DEPRECATED"
	StatusMaintenance = "MAINTENANCE"
)

// Known relation kinds
const (
	KindDependsOn   = "DEPENDS_ON"
	KindRunsOn      = "RUNS_ON"
	KindConnectedTo = "CONNECTED_TO"
	KindContains    = "CONTAINS"
)

// FallbackColor is used for unknown statuses and relation kinds
const FallbackColor = "#6b7280"

var statusColors = map[string]string{
	StatusActive:      "#22c55e",
	StatusDeprecated:  "#ef4444",
	StatusMaintenance: "#eab308",
}

var relationColors = map[string]string{
	KindDependsOn:   "#ef4444",
	KindRunsOn:      "#3b82f6",
	KindConnectedTo: "#22c55e",
	KindContains:    "#a855f7",
}

// StatusColor returns the fill color for an entity status
func StatusColor(status string) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return FallbackColor
}

// RelationColor returns the stroke color for a relation kind
func RelationColor(kind string) string {
	if c, ok := relationColors[kind]; ok {
		return c
	}
	return FallbackColor
}

// KindLabel renders a relation kind for display ("DEPENDS_ON" -> "DEPENDS ON")
func KindLabel(kind string) string {
	return strings.ReplaceAll(kind, "_", " ")
}

// Statuses lists the statuses that have a dedicated color, in legend order
func Statuses() []string {
	return []string{StatusActive, StatusDeprecated, StatusMaintenance}
}
