// Package scenefile reads and writes scene lists as JSON (the pipeline
// artifact) or YAML (the hand-editable review file).
package scenefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/reelgen/internal/types"
)

// Load reads scenes from path, choosing the codec by extension.
func Load(path string) ([]types.Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []types.Scene
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("parse scenes %s: %w", filepath.Base(path), err)
		}
	} else if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse scenes %s: %w", filepath.Base(path), err)
	}
	if out == nil {
		out = []types.Scene{}
	}
	for i := range out {
		if out[i].ImagePrompt != nil {
			p := strings.TrimSpace(*out[i].ImagePrompt)
			if p == "" {
				out[i].ImagePrompt = nil
			} else {
				out[i].ImagePrompt = &p
			}
		}
	}
	return out, nil
}

// Save writes scenes to path, choosing the codec by extension.
func Save(path string, ss []types.Scene) error {
	if ss == nil {
		ss = []types.Scene{}
	}
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		var buf bytes.Buffer
		buf.WriteString("# Edit image_prompt values, then resume the run. Set a prompt to null to skip its image.\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(ss); err == nil {
			err = enc.Close()
		}
		b = buf.Bytes()
	} else {
		b, err = json.MarshalIndent(ss, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode scenes: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// MergePrompts copies image prompts from edited onto base by index. Timing
// and text always come from base; extra or missing entries are ignored.
func MergePrompts(base, edited []types.Scene) ([]types.Scene, int) {
	out := make([]types.Scene, len(base))
	copy(out, base)
	changed := 0
	for i := range out {
		if i >= len(edited) {
			break
		}
		if !samePrompt(out[i].ImagePrompt, edited[i].ImagePrompt) {
			changed++
		}
		out[i].ImagePrompt = edited[i].ImagePrompt
	}
	return out, changed
}

func samePrompt(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
