package amc

import "bytes"

// Well-known register indexes.
const (
	RegBridgeControl = 0x01
	RegStatus        = 0x02
	RegAccessControl = 0x07
	RegDriveName     = 0x0B
	RegCommandParam  = 0x45
	RegProductInfo   = 0x8C
)

// Offsets within RegStatus.
const (
	OffBridgeStatus     = 0x00
	OffProtectionStatus = 0x01
	OffSystemStatus     = 0x02
	OffDriveStatus1     = 0x03
	OffDriveStatus2     = 0x04
)

// Bridge control bits (RegBridgeControl).
const (
	BCInhibit     = 1 << 0
	BCBrake       = 1 << 1
	BCQuickStop   = 1 << 6
	BCResetEvents = 1 << 12
)

// Bridge status bits (RegStatus, OffBridgeStatus).
const (
	BSEnabled      = 1 << 0
	BSDynBrake     = 1 << 1
	BSShunt        = 1 << 2
	BSPosStop      = 1 << 3
	BSNegStop      = 1 << 4
	BSPosTorqueInh = 1 << 5
	BSNegTorqueInh = 1 << 6
	BSExtBrake     = 1 << 7
)

// Drive protection status bits (RegStatus, OffProtectionStatus).
const (
	PSReset         = 1 << 0
	PSInternalError = 1 << 1
	PSShortCircuit  = 1 << 2
	PSOvercurrent   = 1 << 3
	PSUndervoltage  = 1 << 4
	PSOvervoltage   = 1 << 5
	PSOvertemp      = 1 << 6
)

// System protection status bits (RegStatus, OffSystemStatus).
const (
	SSRestoreError  = 1 << 0
	SSStoreError    = 1 << 1
	SSMotorOvertemp = 1 << 4
	SSFeedbackError = 1 << 6
	SSOverspeed     = 1 << 7
	SSCommError     = 1 << 10
)

// Drive system status 1 bits (RegStatus, OffDriveStatus1).
const (
	DS1LogMissed    = 1 << 0
	DS1CmdInhibit   = 1 << 1
	DS1UserInhibit  = 1 << 2
	DS1PosInhibit   = 1 << 3
	DS1NegInhibit   = 1 << 4
	DS1CurrentLimit = 1 << 5
	DS1ContCurrent  = 1 << 6
	DS1CLSaturated  = 1 << 7
	DS1CmdDynBrake  = 1 << 12
	DS1UserDynBrake = 1 << 13
	DS1ShuntReg     = 1 << 14
)

// Drive system status 2 bits (RegStatus, OffDriveStatus2).
const (
	DS2ZeroVelocity   = 1 << 0
	DS2AtCommand      = 1 << 1
	DS2VelocityErr    = 1 << 2
	DS2PosVelocityLim = 1 << 3
	DS2NegVelocityLim = 1 << 4
	DS2CmdProfiler    = 1 << 5
)

// accessUnlock is the value written to RegAccessControl to gain write
// access to all registers.
const accessUnlock = 0x000E

// GainWriteAccess unlocks write access to the drive's registers. Drives
// reject configuration writes until this is done once per power cycle.
func (drv *Drive) GainWriteAccess() error {
	return drv.SetUint16(RegAccessControl, 0x00, accessUnlock)
}

// DriveName reads the drive identification string.
func (drv *Drive) DriveName() (string, error) {
	b, err := drv.GetBytes(RegDriveName, 0x00, 256)
	if err != nil {
		return "", err
	}
	return cString(b), nil
}

// CommandParam reads command parameter register n, n in 0-15.
func (drv *Drive) CommandParam(n uint) (uint32, error) {
	if n > 15 {
		return 0, ErrParamRange
	}
	return drv.GetUint32(RegCommandParam, byte(n))
}

// SetCommandParam writes command parameter register n, n in 0-15.
func (drv *Drive) SetCommandParam(n uint, value uint32) error {
	if n > 15 {
		return ErrParamRange
	}
	return drv.SetUint32(RegCommandParam, byte(n), value)
}

// BridgeControl reads the power bridge control word.
func (drv *Drive) BridgeControl() (uint16, error) {
	return drv.GetUint16(RegBridgeControl, 0x00)
}

// SetBridgeControl writes the power bridge control word.
func (drv *Drive) SetBridgeControl(value uint16) error {
	return drv.SetUint16(RegBridgeControl, 0x00, value)
}

// BridgeStatus reads the power bridge status word.
func (drv *Drive) BridgeStatus() (uint16, error) {
	return drv.GetUint16(RegStatus, OffBridgeStatus)
}

// ProtectionStatus reads the drive protection status word.
func (drv *Drive) ProtectionStatus() (uint16, error) {
	return drv.GetUint16(RegStatus, OffProtectionStatus)
}

// SystemStatus reads the system protection status word.
func (drv *Drive) SystemStatus() (uint16, error) {
	return drv.GetUint16(RegStatus, OffSystemStatus)
}

// DriveStatus1 reads the first drive system status word.
func (drv *Drive) DriveStatus1() (uint16, error) {
	return drv.GetUint16(RegStatus, OffDriveStatus1)
}

// DriveStatus2 reads the second drive system status word.
func (drv *Drive) DriveStatus2() (uint16, error) {
	return drv.GetUint16(RegStatus, OffDriveStatus2)
}

// ProductInfoSize is the byte size of the product information block.
const ProductInfoSize = 352

// ProductInfo is the fixed-layout product information block at
// RegProductInfo. Each field is a NUL-padded 32-byte string on the wire.
type ProductInfo struct {
	ControlBoardName      string
	ControlBoardVersion   string
	ControlBoardSerial    string
	ControlBoardBuildDate string
	ControlBoardBuildTime string
	ProductPartNumber     string
	ProductVersion        string
	ProductSerialNumber   string
	ProductBuildDate      string
	ProductBuildTime      string
}

// ProductInfo reads and unpacks the product information block.
func (drv *Drive) ProductInfo() (*ProductInfo, error) {
	b, err := drv.GetBytes(RegProductInfo, 0x00, ProductInfoSize)
	if err != nil {
		return nil, err
	}
	if len(b) < ProductInfoSize {
		return nil, ErrShortPayload
	}
	return &ProductInfo{
		// two reserved bytes precede the control board block
		ControlBoardName:      cString(b[2:34]),
		ControlBoardVersion:   cString(b[34:66]),
		ControlBoardSerial:    cString(b[66:98]),
		ControlBoardBuildDate: cString(b[98:130]),
		ControlBoardBuildTime: cString(b[130:162]),
		// 30 reserved bytes separate the two blocks
		ProductPartNumber:   cString(b[192:224]),
		ProductVersion:      cString(b[224:256]),
		ProductSerialNumber: cString(b[256:288]),
		ProductBuildDate:    cString(b[288:320]),
		ProductBuildTime:    cString(b[320:352]),
	}, nil
}

// cString trims a NUL-terminated byte field to a string.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
