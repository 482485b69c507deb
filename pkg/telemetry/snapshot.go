package telemetry

import (
	"encoding/json"
	"time"

	"github.com/servotalks/amc.go/pkg/amc"
)

// Snapshot is one polling pass over a drive's status registers, plus a few
// conditions decoded from them for consumers that do not know the bit
// layout.
type Snapshot struct {
	Time             time.Time `json:"time"`
	Address          byte      `json:"address"`
	BridgeControl    uint16    `json:"bridge_control"`
	BridgeStatus     uint16    `json:"bridge_status"`
	ProtectionStatus uint16    `json:"protection_status"`
	SystemStatus     uint16    `json:"system_status"`
	DriveStatus1     uint16    `json:"drive_status1"`
	DriveStatus2     uint16    `json:"drive_status2"`

	Enabled   bool `json:"enabled"`
	Inhibited bool `json:"inhibited"`
	QuickStop bool `json:"quick_stop"`
	Faulted   bool `json:"faulted"`
}

// Collect reads the status registers of drv into a Snapshot. The first
// failed read aborts the pass.
func Collect(drv *amc.Drive) (*Snapshot, error) {
	s := &Snapshot{Time: time.Now().UTC(), Address: drv.Addr()}
	var err error
	if s.BridgeControl, err = drv.BridgeControl(); err != nil {
		return nil, err
	}
	if s.BridgeStatus, err = drv.BridgeStatus(); err != nil {
		return nil, err
	}
	if s.ProtectionStatus, err = drv.ProtectionStatus(); err != nil {
		return nil, err
	}
	if s.SystemStatus, err = drv.SystemStatus(); err != nil {
		return nil, err
	}
	if s.DriveStatus1, err = drv.DriveStatus1(); err != nil {
		return nil, err
	}
	if s.DriveStatus2, err = drv.DriveStatus2(); err != nil {
		return nil, err
	}
	s.Enabled = s.BridgeStatus&amc.BSEnabled != 0
	s.Inhibited = s.BridgeControl&amc.BCInhibit != 0
	s.QuickStop = s.BridgeControl&amc.BCQuickStop != 0
	s.Faulted = s.ProtectionStatus != 0 || s.SystemStatus != 0
	return s, nil
}

// Encode renders the snapshot as JSON for publishing.
func (s *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}
