// Package manifest records the sha256 digest of every file a run produced.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/trcgate/internal/common"
)

type Item struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Type   string `json:"type"`
}

type Manifest struct {
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
	ShaAlgo   string    `json:"shaAlgo"`
	Items     []Item    `json:"items"`
}

// Build hashes paths in order. The run id is fresh for every call.
func Build(paths []string) (Manifest, error) {
	m := Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		ShaAlgo:   "sha256",
	}
	for _, p := range paths {
		hex, sz, err := common.Sha256OfFile(p)
		if err != nil {
			return m, fmt.Errorf("manifest: %w", err)
		}
		m.Items = append(m.Items, Item{Path: p, Size: sz, Sha256: hex, Type: fileType(p)})
	}
	return m, nil
}

func fileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".xlsx":
		return "xlsx"
	case ".json":
		return "json"
	case ".pdf":
		return "pdf"
	case ".trc":
		return "trc"
	case ".yaml", ".yml":
		return "yaml"
	}
	return "other"
}

func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return common.WriteBytesAtomic(out, append(b, '\n'))
}

func Load(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Digest returns the sha256 of the saved manifest file, as printed in the
// PDF report.
func Digest(path string) (string, error) {
	hex, _, err := common.Sha256OfFile(path)
	return hex, err
}
