package filter

import (
	"sort"
	"strings"
)

// columnMap resolves filter identifiers to columns of the scenario_runs table.
var columnMap = map[string]string{
	"run":      "run_id",
	"scenario": "scenario",
	"topology": "topology",
	"resource": "resource",
	"path":     "path",
	"instance": "instance_id",
	"phase":    "phase",
	"passed":   "passed",
	"status":   "status_code",
	"error":    "error",
	"teardown": "teardown_error",
	"duration": "duration_ms",
	"started":  "started_at",

	// column names are accepted as they are
	"run_id":         "run_id",
	"instance_id":    "instance_id",
	"status_code":    "status_code",
	"teardown_error": "teardown_error",
	"duration_ms":    "duration_ms",
	"started_at":     "started_at",
}

// Columns lists the identifiers a filter may use.
func Columns() []string {
	names := make([]string, 0, len(columnMap))
	for name := range columnMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupColumn(name string) (string, bool) {
	col, ok := columnMap[strings.ToLower(name)]
	return col, ok
}
