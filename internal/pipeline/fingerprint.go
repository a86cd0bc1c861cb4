package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

// StageExport is the subset of a stage's data that downstream stages
// are allowed to read when building synthesis prompts. Only the active
// content of each task is exported; inactive fields (a retained manual
// draft under an auto task, say) stay private to the stage.
type StageExport struct {
	StageID  string
	IdeaName string
	Tasks    []TaskExport
}

// TaskExport is one task's contribution to a stage export. Status is
// deliberately absent: downstream prompts consume content only, so
// completing a task without changing its content must not re-mark
// downstream stages stale.
type TaskExport struct {
	ID      string
	Title   string
	Content string
}

// Export collects the readable data of a stage
func Export(p *Pipeline, stageID string) (*StageExport, error) {
	stage := p.Stage(stageID)
	if stage == nil {
		return nil, fmt.Errorf("export: unknown stage %q", stageID)
	}

	export := &StageExport{
		StageID:  stage.ID,
		IdeaName: p.IdeaName,
	}
	for i := range stage.Tasks {
		t := &stage.Tasks[i]
		export.Tasks = append(export.Tasks, TaskExport{
			ID:      t.ID,
			Title:   t.Title,
			Content: t.ActiveContent(),
		})
	}
	return export, nil
}

// Canonicalize returns a canonical JSON representation of the export
// with stable key ordering for consistent hashing
func (e *StageExport) Canonicalize() ([]byte, error) {
	tasks := make([]map[string]interface{}, len(e.Tasks))
	for i, t := range e.Tasks {
		tasks[i] = map[string]interface{}{
			"id":      t.ID,
			"content": t.Content,
		}
	}

	data := map[string]interface{}{
		"stage": e.StageID,
		"idea":  e.IdeaName,
		"tasks": tasks,
	}

	return json.Marshal(sortKeys(data))
}

// Fingerprint computes the blake3 hash of the canonicalized export.
// Downstream auto content is trusted only while the fingerprints of all
// feeding stages match the cached upstream snapshots.
func (e *StageExport) Fingerprint() (string, error) {
	canonical, err := e.Canonicalize()
	if err != nil {
		return "", fmt.Errorf("canonicalize stage export: %w", err)
	}

	hasher := blake3.New()
	if _, err := hasher.Write(canonical); err != nil {
		return "", fmt.Errorf("hash stage export: %w", err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// Fingerprint computes the current fingerprint of a stage's export
func Fingerprint(p *Pipeline, stageID string) (string, error) {
	export, err := Export(p, stageID)
	if err != nil {
		return "", err
	}
	return export.Fingerprint()
}

// sortKeys recursively sorts map keys for stable JSON output
func sortKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sorted := make(map[string]interface{}, len(val))
		for _, k := range keys {
			sorted[k] = sortKeys(val[k])
		}
		return sorted

	case []interface{}:
		for i, item := range val {
			val[i] = sortKeys(item)
		}
		return val

	case []map[string]interface{}:
		for i, item := range val {
			val[i] = sortKeys(item).(map[string]interface{})
		}
		return val

	default:
		return v
	}
}
