package workflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nikosgri/sensornode/wifi"
)

// Report is the outbound payload: the node identifier and the last signal
// strength reading, keyed the way the ingest server expects them.
type Report struct {
	ID   string `json:"1"`
	RSSI int    `json:"2"`
}

// ErrNoIdentifier is returned when a report is built before any hardware
// identifier has been recorded. Sending an anonymous report would only
// produce an orphan row on the server.
var ErrNoIdentifier = errors.New("no hardware identifier for the report")

// BuildReport serializes the status snapshot into the wire payload.
func BuildReport(status wifi.Status) ([]byte, error) {
	if status.HardwareID == "" {
		return nil, fmt.Errorf("workflow: %w", ErrNoIdentifier)
	}
	payload, err := json.Marshal(Report{ID: status.HardwareID, RSSI: status.RSSI})
	if err != nil {
		return nil, fmt.Errorf("workflow: encode report: %w", err)
	}
	return payload, nil
}
