// Package report writes run summaries as JSON and as a printable PDF.
package report

import (
	"encoding/json"
	"os"

	"example.com/trcgate/internal/common"
)

func SaveSummaryJSON(sum Summary, out string) error {
	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	return common.WriteBytesAtomic(out, append(b, '\n'))
}

func LoadSummaryJSON(path string) (Summary, error) {
	var sum Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return sum, err
	}
	err = json.Unmarshal(b, &sum)
	return sum, err
}
