package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/scope.go/pkg/framework"
	"github.com/robotalks/scope.go/pkg/scope/comm"
	"github.com/robotalks/scope.go/pkg/scope/config"
	"github.com/robotalks/scope.go/pkg/scope/console"
	"github.com/robotalks/scope.go/pkg/scope/metrics"
	"github.com/robotalks/scope.go/pkg/scope/serial"
	"github.com/robotalks/scope.go/pkg/scope/sink"
	"github.com/robotalks/scope.go/pkg/scope/sink/mqtt"
)

func init() {
	flag.Set("logtostderr", "true")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s SERIAL-DEVICE\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		glog.Exitf("Please provide serial port as first argument")
	}
	device := flag.Arg(0)

	conf, err := config.FromEnv()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	port, err := serial.OpenWith(conf.SerialConfig(device))
	if err != nil {
		glog.Exitf("Could not open serial port: %v", err)
	}

	client := comm.NewClient(port)
	out := sink.NewMux(&sink.Log{})
	ctl := conf.NewController(client, out)
	runner := fx.NewRunner().HandleSignals()

	if conf.Metrics.Addr != "" {
		m := metrics.New()
		client.Observer, ctl.Observer = m, m
		runner.Go(&metrics.Server{
			Addr:       conf.Metrics.Addr,
			Collectors: m,
			Health:     metrics.PhaseHealth(ctl.State),
		})
	}
	if conf.MQTT.URL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTT.URL)
		if err != nil {
			port.Close()
			glog.Exitf("invalid MQTT URL: %v", err)
		}
		s := mqtt.NewSink(q, mqtt.Meta{ID: conf.ScopeID(), Device: device, Started: time.Now()})
		s.Intents, s.Params = ctl, ctl
		out.Add(s)
		runner.Go(s)
	}
	if conf.Console {
		con := console.New(ctl)
		out.Add(con)
		runner.Go(con)
	}

	err = runner.Go(ctl).Wait()
	port.Close()
	if err != nil {
		glog.Exitf("%v", err)
	}
	glog.Info("exit")
	glog.Flush()
}
