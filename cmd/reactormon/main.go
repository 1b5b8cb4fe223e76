// cmd/reactormon/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/greendeserttech/reactor-monitor/internal/calibrate"
	"github.com/greendeserttech/reactor-monitor/internal/config"
	"github.com/greendeserttech/reactor-monitor/internal/csvlog"
	"github.com/greendeserttech/reactor-monitor/internal/device"
	"github.com/greendeserttech/reactor-monitor/internal/poller"
)

func main() {
	listPorts := flag.Bool("list-ports", false, "list available serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := device.ListPorts()
		if err != nil {
			log.Fatalf("port listing failed: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	if flag.NArg() < 1 {
		log.Fatal("usage: reactormon <config.yaml>")
	}
	cfgPath := flag.Arg(0)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	config.Normalize(cfg)

	params := calibrate.Params{
		TempOffsetC:         cfg.Calibration.TempOffsetC,
		PhOffset:            cfg.Calibration.PhOffset,
		GreenStartIntensity: cfg.Calibration.GreenStartIntensity,
		GreenFullIntensity:  cfg.Calibration.GreenFullIntensity,
	}

	// ---- optional CSV log ----
	var csvWriter *csvlog.Writer
	if cfg.Log.CsvPath != "" {
		csvWriter, err = csvlog.New(cfg.Log.CsvPath, params)
		if err != nil {
			log.Fatalf("csv log failed: %v", err)
		}
		defer csvWriter.Close()
	}

	// ---- polling engine ----
	engine, err := poller.Build(cfg)
	if err != nil {
		log.Fatalf("poller build failed: %v", err)
	}

	if err := engine.Start(); err != nil {
		log.Fatalf("poller start failed: %v", err)
	}
	log.Printf("polling %s on %s (pH slave %d, spectral slave %d)",
		cfg.Reactor.Name, cfg.Serial.Port,
		cfg.Reactor.PhSlaveID, cfg.Reactor.SpectralSlaveID)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case r := <-engine.Readings():
			d := calibrate.Apply(r, params)
			log.Printf("%s: temp=%.2f°C pH=%.3f harvest=%.1f%% relay=%d led=%d status=%d",
				r.ReactorName, d.TemperatureC, d.PH, d.HarvestPercent,
				r.Relay, r.Led, r.Status)

			if csvWriter != nil {
				if err := csvWriter.Write(r); err != nil {
					log.Printf("csv write failed: %v", err)
				}
			}

		case msg := <-engine.Errors():
			log.Printf("error: %s", msg)

		case <-engine.Done():
			// Worker died on its own (startup failure). The fatal error
			// event has already been drained or sits in the buffer.
			drainErrors(engine)
			// log.Fatal skips deferred closes.
			if csvWriter != nil {
				csvWriter.Close()
			}
			log.Fatal("polling worker exited")

		case s := <-sig:
			log.Printf("received %v, stopping", s)
			engine.Stop()
			<-engine.Done()
			drainErrors(engine)
			return
		}
	}
}

func drainErrors(engine *poller.Engine) {
	for {
		select {
		case msg := <-engine.Errors():
			log.Printf("error: %s", msg)
		default:
			return
		}
	}
}
