package render

import (
	"encoding/json"
	"fmt"

	"specsync/internal/diff"
)

// JSON renders the machine-readable projection: the canonical sorted
// record list, pretty-printed, trailing newline included so the file
// form is well-behaved.
func JSON(plan *diff.ChangePlan) (string, error) {
	records := plan.Records
	if records == nil {
		records = []diff.ChangeRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling change records: %w", err)
	}
	return string(data) + "\n", nil
}
