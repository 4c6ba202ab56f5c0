package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/mod/semver"

	"github.com/studyreward/rewardbook/internal/catalog"
	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/merge"
	"github.com/studyreward/rewardbook/internal/migrate"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/telemetry"
)

// Import result messages.
const (
	MsgImportSuccess = "数据导入成功！"
	MsgInvalidFormat = "数据格式不正确"
	MsgImportFailed  = "数据导入失败："
)

// Envelope is the export file format.
type Envelope struct {
	Version    string           `json:"version"`
	ExportTime int64            `json:"exportTime"`
	Data       *schema.Document `json:"data"`
}

// ImportResult reports the outcome of Import. Failures, including merge
// conflicts, are reported here rather than as errors.
type ImportResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Stats   *merge.Stats `json:"stats,omitempty"`
}

// Export returns the current document wrapped in an Envelope, pretty-printed.
func (m *Manager) Export(ctx context.Context) ([]byte, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}

	env := Envelope{
		Version:    schema.AppVersion,
		ExportTime: schema.NowMillis(m.now()),
		Data:       doc,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}

// ImportFile reads an export file and imports it.
func (m *Manager) ImportFile(ctx context.Context, path string) ImportResult {
	// #nosec G304 - path chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		telemetry.Imports.WithLabelValues("error").Inc()
		return ImportResult{Success: false, Message: MsgImportFailed + err.Error()}
	}
	return m.Import(ctx, data)
}

// Import merges an exported envelope into the local document. Nothing is
// written unless the merge succeeds.
func (m *Manager) Import(ctx context.Context, data []byte) ImportResult {
	var raw struct {
		Version    string          `json:"version"`
		ExportTime int64           `json:"exportTime"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		telemetry.Imports.WithLabelValues("invalid").Inc()
		return ImportResult{Success: false, Message: MsgImportFailed + err.Error()}
	}

	var shape struct {
		UserData json.RawMessage `json:"userData"`
	}
	trimmed := bytes.TrimSpace(raw.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		telemetry.Imports.WithLabelValues("invalid").Inc()
		return ImportResult{Success: false, Message: MsgInvalidFormat}
	}
	if err := json.Unmarshal(raw.Data, &shape); err != nil {
		telemetry.Imports.WithLabelValues("invalid").Inc()
		return ImportResult{Success: false, Message: MsgImportFailed + err.Error()}
	}
	if t := bytes.TrimSpace(shape.UserData); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		telemetry.Imports.WithLabelValues("invalid").Inc()
		return ImportResult{Success: false, Message: MsgInvalidFormat}
	}

	m.checkEnvelopeVersion(raw.Version)

	imported, err := schema.Decode(raw.Data)
	if err != nil {
		telemetry.Imports.WithLabelValues("invalid").Inc()
		return ImportResult{Success: false, Message: MsgImportFailed + err.Error()}
	}

	imported, _, err = migrate.Migrate(imported, m.now())
	if err != nil {
		telemetry.Imports.WithLabelValues("invalid").Inc()
		return ImportResult{Success: false, Message: MsgImportFailed + err.Error()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	local, err := m.load(ctx)
	if err != nil {
		telemetry.Imports.WithLabelValues("error").Inc()
		return ImportResult{Success: false, Message: MsgImportFailed + err.Error()}
	}

	merged, stats, err := m.merger.Merge(local, imported)
	if err != nil {
		label := "error"
		if merge.IsConflict(err) {
			label = "conflict"
		}
		telemetry.Imports.WithLabelValues(label).Inc()
		m.logger.Printf("import rejected: %v", err)
		return ImportResult{Success: false, Message: MsgImportFailed + err.Error()}
	}

	catalog.Reconcile(merged)
	ledger.FixInventory(merged.UserData.Inventory)

	if err := m.save(ctx, merged); err != nil {
		telemetry.Imports.WithLabelValues("error").Inc()
		return ImportResult{Success: false, Message: MsgImportFailed + err.Error()}
	}

	telemetry.Imports.WithLabelValues("success").Inc()
	m.logger.Printf("imported data: %d added, %d updated, %d merged", stats.Added, stats.Updated, stats.Merged)
	return ImportResult{
		Success: true,
		Message: fmt.Sprintf("%s新增 %d 项，更新 %d 项，合并 %d 项", MsgImportSuccess, stats.Added, stats.Updated, stats.Merged),
		Stats:   &stats,
	}
}

// checkEnvelopeVersion logs exports written by a newer or unrecognized
// release. The document's schema version decides whether it can be read.
func (m *Manager) checkEnvelopeVersion(v string) {
	if v == "" {
		return
	}
	sv := "v" + v
	if !semver.IsValid(sv) {
		m.logger.Printf("Warning: import has unrecognized version %q", v)
		return
	}
	if semver.Compare(sv, "v"+schema.AppVersion) > 0 {
		m.logger.Printf("Warning: import was written by newer release %s (this is %s)", v, schema.AppVersion)
	}
}
