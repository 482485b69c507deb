// Command amcmon polls a drive's status registers over the serial link and
// publishes JSON snapshots to an MQTT broker.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/servotalks/amc.go/pkg/amc"
	"github.com/servotalks/amc.go/pkg/serial"
	"github.com/servotalks/amc.go/pkg/telemetry"
)

var (
	device   = "/dev/ttyUSB0"
	baud     = 115200
	addr     = 0x3F
	mqttURL  = "mqtt://localhost:1883/amc/"
	interval = 5 * time.Second
)

func init() {
	if val := os.Getenv("AMC_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&device, "device", device, "Serial device of the drive.")
	flag.IntVar(&baud, "baud", baud, "Baud rate.")
	flag.IntVar(&addr, "addr", addr, "Drive address (1-63).")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.DurationVar(&interval, "interval", interval, "Polling interval.")
}

func main() {
	flag.Parse()

	port, err := serial.Open(device, baud)
	if err != nil {
		glog.Exitf("open %s: %v", device, err)
	}
	defer port.Close()
	drv := amc.New(port, byte(addr))

	pub, err := telemetry.NewPublisherFromURL(mqttURL)
	if err != nil {
		glog.Exitf("mqtt: %v", err)
	}
	if token := pub.Connect(); token.Wait() && token.Error() != nil {
		glog.Exitf("mqtt connect: %v", token.Error())
	}
	defer pub.Close()

	topic := fmt.Sprintf("status/%d", addr)
	for {
		snap, err := telemetry.Collect(drv)
		if err != nil {
			glog.Warningf("poll drive %d: %v", addr, err)
		} else if payload, err := snap.Encode(); err != nil {
			glog.Errorf("encode snapshot: %v", err)
		} else if err := pub.PubWait(topic, payload); err != nil {
			glog.Warningf("publish %s: %v", topic, err)
		} else {
			glog.V(1).Infof("published %s", topic)
		}
		time.Sleep(interval)
	}
}
