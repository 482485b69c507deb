package telemetry

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/servotalks/amc.go/pkg/amc"
	"github.com/servotalks/amc.go/pkg/crc16"
)

var ccitt = crc16.MakeTable(crc16.CCITT)

// statusChannel answers register reads from a fixed map of values keyed by
// index and offset.
type statusChannel struct {
	values  map[[2]byte]uint16
	pending bytes.Buffer
	failAt  int
	reads   int
}

func (c *statusChannel) Write(cmd []byte) (int, error) {
	c.reads++
	if c.failAt > 0 && c.reads >= c.failAt {
		return len(cmd), nil // never answer, let the read time out
	}
	seq := cmd[2] >> 2 & 0x0F
	val := c.values[[2]byte{cmd[3], cmd[4]}]

	var payload [2]byte
	binary.LittleEndian.PutUint16(payload[:], val)
	head := []byte{0xA5, 0x3F, byte(amc.AccessWrite)&0x03 | seq<<2, 1, 0, 1, 0, 0}
	binary.BigEndian.PutUint16(head[6:], crc16.Checksum(head[:6], ccitt))
	var trailer [2]byte
	binary.BigEndian.PutUint16(trailer[:], crc16.Checksum(payload[:], ccitt))

	c.pending.Write(head)
	c.pending.Write(payload[:])
	c.pending.Write(trailer[:])
	return len(cmd), nil
}

func (c *statusChannel) Read(p []byte) (int, error) {
	return c.pending.Read(p)
}

func (c *statusChannel) Poll(timeout time.Duration) (bool, error) {
	return c.pending.Len() > 0, nil
}

func TestCollect(t *testing.T) {
	ch := &statusChannel{values: map[[2]byte]uint16{
		{amc.RegBridgeControl, 0x00}:         amc.BCInhibit | amc.BCQuickStop,
		{amc.RegStatus, amc.OffBridgeStatus}: amc.BSEnabled,
		{amc.RegStatus, amc.OffDriveStatus1}: amc.DS1UserInhibit,
		{amc.RegStatus, amc.OffDriveStatus2}: amc.DS2ZeroVelocity,
	}}
	drv := amc.New(ch, 7, amc.WithTracer(nil))

	snap, err := Collect(drv)
	require.NoError(t, err)
	require.Equal(t, byte(7), snap.Address)
	require.Equal(t, uint16(amc.BCInhibit|amc.BCQuickStop), snap.BridgeControl)
	require.Equal(t, uint16(amc.BSEnabled), snap.BridgeStatus)
	require.Equal(t, uint16(0), snap.ProtectionStatus)
	require.Equal(t, uint16(0), snap.SystemStatus)
	require.Equal(t, uint16(amc.DS1UserInhibit), snap.DriveStatus1)
	require.Equal(t, uint16(amc.DS2ZeroVelocity), snap.DriveStatus2)
	require.True(t, snap.Enabled)
	require.True(t, snap.Inhibited)
	require.True(t, snap.QuickStop)
	require.False(t, snap.Faulted)
	require.False(t, snap.Time.IsZero())
}

func TestCollectFaulted(t *testing.T) {
	ch := &statusChannel{values: map[[2]byte]uint16{
		{amc.RegStatus, amc.OffProtectionStatus}: amc.PSOvercurrent,
	}}
	drv := amc.New(ch, 1, amc.WithTracer(nil))
	snap, err := Collect(drv)
	require.NoError(t, err)
	require.True(t, snap.Faulted)
}

func TestCollectAbortsOnFirstError(t *testing.T) {
	ch := &statusChannel{failAt: 3}
	drv := amc.New(ch, 1, amc.WithTracer(nil), amc.WithTimeout(time.Millisecond))
	_, err := Collect(drv)
	require.Equal(t, amc.ErrTimedOut, err)
	require.Equal(t, 3, ch.reads, "no reads past the failed one")
}

func TestSnapshotEncode(t *testing.T) {
	snap := &Snapshot{
		Time:          time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC),
		Address:       5,
		BridgeControl: 0x41,
		BridgeStatus:  0x01,
		Enabled:       true,
	}
	payload, err := snap.Encode()
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &fields))
	require.Equal(t, float64(5), fields["address"])
	require.Equal(t, float64(0x41), fields["bridge_control"])
	require.Equal(t, true, fields["enabled"])
	require.Equal(t, false, fields["faulted"])
	require.Contains(t, fields, "protection_status")
	require.Contains(t, fields, "drive_status1")
	require.Contains(t, fields, "drive_status2")
}
