// Command amccli is an interactive shell for exercising a drive over its
// serial register protocol: identification, power bridge control, status
// inspection, command parameters and raw register access.
package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/servotalks/amc.go/pkg/amc"
	"github.com/servotalks/amc.go/pkg/serial"
)

var (
	device   = "/dev/ttyUSB0"
	baud     = 115200
	addr     = 0x3F
	evalOnly bool
)

func init() {
	flag.StringVar(&device, "device", device, "Serial device of the drive.")
	flag.IntVar(&baud, "baud", baud, "Baud rate.")
	flag.IntVar(&addr, "addr", addr, "Drive address (1-63).")
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluate arguments only, no interactive shell.")
}

func main() {
	flag.Parse()

	port, err := serial.Open(device, baud)
	if err != nil {
		glog.Exitf("open %s: %v", device, err)
	}
	defer port.Close()

	drv := amc.New(port, byte(addr))
	if err := drv.GainWriteAccess(); err != nil {
		glog.Warningf("could not gain write access: %v", err)
	}

	shell := ishell.New()
	shell.SetPrompt(fmt.Sprintf("[%s:%02X] > ", device, addr))
	for _, cmd := range commands(drv) {
		shell.AddCmd(cmd)
	}

	if evalOnly {
		if err := shell.Process(flag.Args()...); err != nil {
			glog.Exit(err)
		}
		return
	}
	shell.Run()
}

func commands(drv *amc.Drive) []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name: "getid",
			Help: "retrieve drive name and product information",
			Func: func(c *ishell.Context) {
				name, err := drv.DriveName()
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("Drive name: %s\n", name)
				pi, err := drv.ProductInfo()
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("Control board: %s [%s] serial %s\n",
					pi.ControlBoardName, pi.ControlBoardVersion, pi.ControlBoardSerial)
				c.Printf("Product: %s [%s] serial %s\n",
					pi.ProductPartNumber, pi.ProductVersion, pi.ProductSerialNumber)
				c.Printf("Built: %s %s\n", pi.ProductBuildDate, pi.ProductBuildTime)
			},
		},
		{
			Name: "bridgestatus",
			Help: "retrieve power bridge and protection status",
			Func: func(c *ishell.Context) {
				printStatus(c, drv)
			},
		},
		{
			Name: "enablebridge",
			Help: "enablebridge [0|1]: enable (1, default) or inhibit (0) the power bridge",
			Func: func(c *ishell.Context) {
				updateBridgeControl(c, drv, amc.BCInhibit, !argBool(c.Args, true))
			},
		},
		{
			Name: "quickstop",
			Help: "quickstop [0|1]: engage (1, default) or release (0) quick stop",
			Func: func(c *ishell.Context) {
				updateBridgeControl(c, drv, amc.BCQuickStop, argBool(c.Args, true))
			},
		},
		{
			Name: "resetevents",
			Help: "reset latched drive events",
			Func: func(c *ishell.Context) {
				// pulse the bit: latched events clear on the rising edge
				if err := updateBridgeControl(c, drv, amc.BCResetEvents, true); err != nil {
					return
				}
				updateBridgeControl(c, drv, amc.BCResetEvents, false)
			},
		},
		{
			Name: "getinput",
			Help: "getinput <n>: read command parameter n (0-15)",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(errUsage(c))
					return
				}
				n, err := parseUint(c.Args[0], 8)
				if err != nil {
					c.Err(err)
					return
				}
				val, err := drv.CommandParam(uint(n))
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("Input %2d = 0x%08X (%d)\n", n, val, val)
			},
		},
		{
			Name: "setinput",
			Help: "setinput <n> <value>: write command parameter n (0-15)",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 2 {
					c.Err(errUsage(c))
					return
				}
				n, err := parseUint(c.Args[0], 8)
				if err != nil {
					c.Err(err)
					return
				}
				val, err := parseUint(c.Args[1], 32)
				if err != nil {
					c.Err(err)
					return
				}
				if err := drv.SetCommandParam(uint(n), uint32(val)); err != nil {
					c.Err(err)
				}
			},
		},
		{
			Name: "read",
			Help: "read <index> <offset> <len>: dump a register as raw bytes",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 3 {
					c.Err(errUsage(c))
					return
				}
				index, err := parseUint(c.Args[0], 8)
				if err != nil {
					c.Err(err)
					return
				}
				offset, err := parseUint(c.Args[1], 8)
				if err != nil {
					c.Err(err)
					return
				}
				length, err := parseUint(c.Args[2], 16)
				if err != nil {
					c.Err(err)
					return
				}
				b, err := drv.GetBytes(byte(index), byte(offset), int(length))
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("% X\n", b)
			},
		},
		{
			Name: "write16",
			Help: "write16 <index> <offset> <value>: write a 16-bit register",
			Func: func(c *ishell.Context) {
				writeReg(c, drv, 16)
			},
		},
		{
			Name: "write32",
			Help: "write32 <index> <offset> <value>: write a 32-bit register",
			Func: func(c *ishell.Context) {
				writeReg(c, drv, 32)
			},
		},
		{
			Name: "access",
			Help: "gain write access to drive registers",
			Func: func(c *ishell.Context) {
				if err := drv.GainWriteAccess(); err != nil {
					c.Err(err)
				}
			},
		},
	}
}

func writeReg(c *ishell.Context, drv *amc.Drive, bits int) {
	if len(c.Args) != 3 {
		c.Err(errUsage(c))
		return
	}
	index, err := parseUint(c.Args[0], 8)
	if err != nil {
		c.Err(err)
		return
	}
	offset, err := parseUint(c.Args[1], 8)
	if err != nil {
		c.Err(err)
		return
	}
	val, err := parseUint(c.Args[2], bits)
	if err != nil {
		c.Err(err)
		return
	}
	if bits == 16 {
		err = drv.SetUint16(byte(index), byte(offset), uint16(val))
	} else {
		err = drv.SetUint32(byte(index), byte(offset), uint32(val))
	}
	if err != nil {
		c.Err(err)
	}
}

// updateBridgeControl read-modify-writes one bit of the bridge control word.
func updateBridgeControl(c *ishell.Context, drv *amc.Drive, mask uint16, set bool) error {
	ctrl, err := drv.BridgeControl()
	if err != nil {
		c.Err(err)
		return err
	}
	if set {
		ctrl |= mask
	} else {
		ctrl &^= mask
	}
	if err := drv.SetBridgeControl(ctrl); err != nil {
		c.Err(err)
		return err
	}
	return nil
}

type flagName struct {
	mask  uint16
	label string
}

func printStatus(c *ishell.Context, drv *amc.Drive) {
	ctrl, err := drv.BridgeControl()
	if err != nil {
		c.Err(err)
		return
	}
	printWord(c, "Bridge control", ctrl, []flagName{
		{amc.BCInhibit, "Inhibit"},
		{amc.BCBrake, "Brake"},
		{amc.BCQuickStop, "QuickStop"},
	})

	words := []struct {
		name  string
		read  func() (uint16, error)
		flags []flagName
	}{
		{"Bridge status", drv.BridgeStatus, []flagName{
			{amc.BSEnabled, "Enabled"},
			{amc.BSDynBrake, "DynBrake"},
			{amc.BSShunt, "Shunt"},
			{amc.BSPosStop, "PosStop"},
			{amc.BSNegStop, "NegStop"},
			{amc.BSPosTorqueInh, "PosTorqueInhibit"},
			{amc.BSNegTorqueInh, "NegTorqueInhibit"},
			{amc.BSExtBrake, "ExtBrake"},
		}},
		{"Drive protection", drv.ProtectionStatus, []flagName{
			{amc.PSReset, "Reset"},
			{amc.PSInternalError, "InternalError"},
			{amc.PSShortCircuit, "ShortCircuit"},
			{amc.PSOvercurrent, "Overcurrent"},
			{amc.PSUndervoltage, "Undervoltage"},
			{amc.PSOvervoltage, "Overvoltage"},
			{amc.PSOvertemp, "Overtemp"},
		}},
		{"System protection", drv.SystemStatus, []flagName{
			{amc.SSRestoreError, "RestoreError"},
			{amc.SSStoreError, "StoreError"},
			{amc.SSMotorOvertemp, "MotorOvertemp"},
			{amc.SSFeedbackError, "FeedbackError"},
			{amc.SSOverspeed, "Overspeed"},
			{amc.SSCommError, "CommError"},
		}},
		{"Drive status 1", drv.DriveStatus1, []flagName{
			{amc.DS1LogMissed, "LogMissed"},
			{amc.DS1CmdInhibit, "CmdInhibit"},
			{amc.DS1UserInhibit, "UserInhibit"},
			{amc.DS1PosInhibit, "PosInhibit"},
			{amc.DS1NegInhibit, "NegInhibit"},
			{amc.DS1CurrentLimit, "CurrentLimit"},
			{amc.DS1ContCurrent, "ContCurrentLimit"},
			{amc.DS1CLSaturated, "LoopSaturated"},
			{amc.DS1CmdDynBrake, "CmdDynBrake"},
			{amc.DS1UserDynBrake, "UserDynBrake"},
			{amc.DS1ShuntReg, "ShuntReg"},
		}},
		{"Drive status 2", drv.DriveStatus2, []flagName{
			{amc.DS2ZeroVelocity, "ZeroVelocity"},
			{amc.DS2AtCommand, "AtCommand"},
			{amc.DS2VelocityErr, "VelocityFollowingError"},
			{amc.DS2PosVelocityLim, "PosVelocityLimit"},
			{amc.DS2NegVelocityLim, "NegVelocityLimit"},
			{amc.DS2CmdProfiler, "CmdProfiler"},
		}},
	}
	for _, w := range words {
		val, err := w.read()
		if err != nil {
			c.Err(err)
			return
		}
		printWord(c, w.name, val, w.flags)
	}
}

func printWord(c *ishell.Context, name string, val uint16, flags []flagName) {
	c.Printf("%s: 0x%04X", name, val)
	for _, f := range flags {
		if val&f.mask != 0 {
			c.Printf(" %s", f.label)
		}
	}
	c.Println()
}

// argBool interprets an optional trailing 0/1 argument.
func argBool(args []string, def bool) bool {
	if len(args) == 0 {
		return def
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	return err != nil || n != 0
}

func parseUint(s string, bits int) (uint64, error) {
	return strconv.ParseUint(s, 0, bits)
}

func errUsage(c *ishell.Context) error {
	return fmt.Errorf("usage: %s", c.Cmd.Help)
}
