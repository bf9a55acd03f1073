package scheduler

import (
	"encoding/json"

	"github.com/pinty-monitor/agent/internal/models"
)

const previewLen = 200

// assemblePayload merges identity, samples and rates into one report.
// static is attached only when non-nil.
func assemblePayload(id models.Identity, dynamic models.DynamicSample, network models.NetworkUsage, static *models.StaticInventory) models.ReportPayload {
	return models.ReportPayload{
		Identity:      id,
		DynamicSample: dynamic,
		NetworkUsage:  network,
		StaticInfo:    static,
	}
}

// preview renders a truncated JSON form of the payload for debug logs,
// with the secret redacted.
func preview(p models.ReportPayload) string {
	if p.Secret != "" {
		p.Secret = "***"
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err.Error()
	}
	if len(data) > previewLen {
		return string(data[:previewLen]) + "..."
	}
	return string(data)
}
