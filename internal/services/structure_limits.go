package services

import (
	"embed"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const structureLimitsEnv = "STRUCTURE_LIMITS_YAML"

//go:embed structure_limits.yaml
var structureLimitsFS embed.FS

// fallback used when the YAML is missing or unparseable
const fallbackMaxNestingDepth = 5

type StructureLimits struct {
	MaxNestingDepth int `yaml:"max_nesting_depth"`
}

var (
	structureLimitsOnce sync.Once
	structureLimits     StructureLimits
)

// LoadStructureLimits returns the structural limits for snapshot item trees.
// The embedded default ships with the binary; STRUCTURE_LIMITS_YAML points at
// an override file for deployments that need different bounds. Parsed once.
func LoadStructureLimits() StructureLimits {
	structureLimitsOnce.Do(func() {
		structureLimits = StructureLimits{MaxNestingDepth: fallbackMaxNestingDepth}

		raw, err := structureLimitsFS.ReadFile("structure_limits.yaml")
		if p := strings.TrimSpace(os.Getenv(structureLimitsEnv)); p != "" {
			if b, rerr := os.ReadFile(p); rerr == nil {
				raw, err = b, nil
			}
		}
		if err != nil {
			return
		}

		var parsed StructureLimits
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return
		}
		if parsed.MaxNestingDepth > 0 {
			structureLimits.MaxNestingDepth = parsed.MaxNestingDepth
		}
	})
	return structureLimits
}
