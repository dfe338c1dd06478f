// Package cli runs the bank scenario for the devskit command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/config"
	"github.com/sarchlab/devskit/datarecording"
	"github.com/sarchlab/devskit/examples/banksim"
	"github.com/sarchlab/devskit/monitoring"
	"github.com/sarchlab/devskit/sim/kernel"
	"github.com/sarchlab/devskit/sim/snapshot"
	"github.com/sarchlab/devskit/sim/timing"
)

// Version is the version of the command line tool.
const Version = "0.1.0"

// traceTable is where message traces are written.
const traceTable = "messages"

// Served is one customer that left the bank.
type Served struct {
	Time     float64 `json:"time"`
	Customer int     `json:"customer"`
}

// Report summarizes a run.
type Report struct {
	Kernel   string                `json:"kernel"`
	Time     float64               `json:"time"`
	Status   string                `json:"status"`
	Stats    banksim.Stats         `json:"stats"`
	Served   []Served              `json:"served"`
	Uncaught []kernel.UncaughtStat `json:"uncaught,omitempty"`
	Snapshot string                `json:"snapshot,omitempty"`
}

// Session holds what every command needs: the configuration, a logger and
// the metrics registry.
type Session struct {
	Config *config.Config
	Logger *logrus.Logger

	// SignalHandler installs the kernel interrupt handler.
	SignalHandler bool

	registry *prometheus.Registry
	recorder datarecording.DataRecorder
	run      *datarecording.RunRecorder
	kernel   *kernel.Kernel
	monitor  *monitoring.Monitor
}

// NewSession creates a session from a configuration.
func NewSession(cfg *config.Config) *Session {
	return &Session{
		Config:        cfg,
		Logger:        cfg.Logger(),
		SignalHandler: true,
		registry:      prometheus.NewRegistry(),
	}
}

func (s *Session) builder() kernel.Builder {
	b := s.Config.KernelBuilder(s.Logger, s.registry)
	if !s.SignalHandler {
		b = b.WithoutSignalHandler()
	}

	return b
}

func (s *Session) manager() (*snapshot.Manager, io.Closer, error) {
	store, err := s.Config.OpenStore()
	if err != nil {
		return nil, nil, err
	}

	closer, ok := store.(io.Closer)
	if !ok {
		closer = io.NopCloser(nil)
	}

	return snapshot.NewManager(store, s.Logger), closer, nil
}

// attach wires the optional tracing and monitoring into k.
func (s *Session) attach(k *kernel.Kernel, until timing.VTimeInSec) error {
	if s.Logger.IsLevelEnabled(logrus.DebugLevel) {
		k.AcceptHook(kernel.NewEventLogger(s.Logger))
	}

	if s.Config.Trace.Enabled {
		s.recorder = datarecording.New(s.Config.Trace.Path)
		k.AcceptHook(datarecording.NewMessageTracer(s.recorder, traceTable))

		s.kernel = k
		s.run = datarecording.NewRunRecorder(s.recorder)
		s.run.Start()
		s.run.Note("Kernel", k.Name())
		s.run.Note("Start Simulated Time", fmt.Sprint(k.Now()))
	}

	if s.Config.Monitor.Enabled {
		s.monitor = monitoring.NewMonitor().
			WithLogger(s.Logger).
			WithGatherer(s.registry).
			WithPortNumber(s.Config.Monitor.Port)
		if s.Config.Monitor.Browser {
			s.monitor.WithBrowser()
		}

		s.monitor.RegisterKernel(k)
		s.monitor.TrackTime(k.Name(), until)

		_, err := s.monitor.StartServer()
		if err != nil {
			return err
		}
	}

	return nil
}

// Close flushes the trace and stops the monitor.
func (s *Session) Close(ctx context.Context) error {
	var errs []error

	if s.run != nil {
		s.run.Note("End Simulated Time", fmt.Sprint(s.kernel.Now()))
		s.run.End()
		s.run = nil
	}

	if s.monitor != nil {
		errs = append(errs, s.monitor.Shutdown(ctx))
	}

	if s.recorder != nil {
		errs = append(errs, s.recorder.Close())
		s.recorder = nil
	}

	return errors.Join(errs...)
}

func report(k *kernel.Kernel, sc *banksim.Scenario) *Report {
	r := &Report{
		Kernel:   k.Name(),
		Time:     k.Now(),
		Status:   k.Status().String(),
		Stats:    sc.Stats(),
		Served:   []Served{},
		Uncaught: k.UncaughtStats(),
	}

	for _, evt := range k.Outputs() {
		for _, item := range evt.Msg.Retrieve() {
			c, ok := item.(banksim.Customer)
			if !ok {
				continue
			}

			r.Served = append(r.Served, Served{Time: evt.Time, Customer: c.ID})
		}
	}

	return r
}

// Print writes a report as indented JSON.
func Print(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}
