// Package monitoring turns a running simulation into a web server that
// reports the kernel state and lets a user pause and resume it.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/devskit/sim/hooking"
	"github.com/sarchlab/devskit/sim/kernel"
	"github.com/sarchlab/devskit/sim/model"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	kernel      *kernel.Kernel
	gatherer    prometheus.Gatherer
	portNumber  int
	openBrowser bool
	logger      logrus.FieldLogger

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		gatherer: prometheus.DefaultGatherer,
		logger:   logrus.StandardLogger(),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random one.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 && portNumber != 0 {
		m.logger.WithField("port", portNumber).
			Warn("monitor port is not allowed, using a random port instead")

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser opens the monitor in a browser once the server is up.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// WithGatherer sets where /metrics reads from. It defaults to the
// Prometheus default gatherer.
func (m *Monitor) WithGatherer(g prometheus.Gatherer) *Monitor {
	m.gatherer = g
	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger logrus.FieldLogger) *Monitor {
	m.logger = logger
	return m
}

// RegisterKernel registers the kernel that runs the simulation.
func (m *Monitor) RegisterKernel(k *kernel.Kernel) {
	m.kernel = k
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// TrackTime creates a progress bar that follows the simulation clock of
// the registered kernel up to until.
func (m *Monitor) TrackTime(name string, until float64) *ProgressBar {
	bar := m.CreateProgressBar(name, uint64(until))
	start := m.kernel.Now()

	m.kernel.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos != kernel.HookPosAfterStep {
			return
		}

		now, ok := ctx.Item.(float64)
		if !ok {
			return
		}

		bar.SetFinished(uint64(now - start))
	}))

	return bar
}

// Handler returns the HTTP routes of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseKernel)
	r.HandleFunc("/api/continue", m.continueKernel)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/list_models", m.listModels)
	r.HandleFunc("/api/model/{name}", m.listModelDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/uncaught", m.listUncaught)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":" + strconv.Itoa(m.portNumber)

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	addr := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.logger.WithField("url", addr).Info("monitoring simulation")

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.WithError(err).Error("monitor server stopped")
		}
	}()

	if m.openBrowser {
		err = browser.OpenURL(addr)
		if err != nil {
			m.logger.WithError(err).Warn("cannot open browser")
		}
	}

	return addr, nil
}

// Shutdown stops the web server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pauseKernel(w http.ResponseWriter, _ *http.Request) {
	m.kernel.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueKernel(w http.ResponseWriter, _ *http.Request) {
	m.kernel.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%.10f}", m.kernel.Now())
}

type statusRsp struct {
	Kernel       string  `json:"kernel"`
	Status       string  `json:"status"`
	Mode         string  `json:"mode"`
	Now          float64 `json:"now"`
	ActiveModels int     `json:"active_models"`
	Models       int     `json:"models"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, statusRsp{
		Kernel:       m.kernel.Name(),
		Status:       m.kernel.Status().String(),
		Mode:         m.kernel.Mode().String(),
		Now:          m.kernel.Now(),
		ActiveModels: len(m.kernel.ActiveModels()),
		Models:       len(m.kernel.Models()),
	})
}

func (m *Monitor) listModels(w http.ResponseWriter, _ *http.Request) {
	models := m.kernel.Models()

	names := make([]string, 0, len(models))
	for _, md := range models {
		names = append(names, md.Name())
	}

	m.writeJSON(w, names)
}

func (m *Monitor) listModelDetails(w http.ResponseWriter, r *http.Request) {
	md := m.findModelOr404(w, mux.Vars(r)["name"])
	if md == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(md)
	serializer.SetMaxDepth(1)

	var err error
	m.kernel.Inspect(func() {
		err = serializer.Serialize(w)
	})
	if err != nil {
		m.logger.WithError(err).Warn("cannot serialize model")
	}
}

type fieldReq struct {
	ModelName string `json:"model_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	md := m.findModelOr404(w, req.ModelName)
	if md == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(md)
	serializer.SetMaxDepth(1)

	var badField bool
	m.kernel.Inspect(func() {
		err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
		if err != nil {
			badField = true
			return
		}

		err = serializer.Serialize(w)
	})

	if badField {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err != nil {
		m.logger.WithError(err).Warn("cannot serialize field")
	}
}

func (m *Monitor) listUncaught(w http.ResponseWriter, _ *http.Request) {
	stats := m.kernel.UncaughtStats()
	if stats == nil {
		stats = []kernel.UncaughtStat{}
	}

	m.writeJSON(w, stats)
}

func (m *Monitor) findModelOr404(
	w http.ResponseWriter,
	name string,
) model.Model {
	md, found := m.kernel.GetModel(name)
	if !found {
		http.Error(w, "Model not found", http.StatusNotFound)
		return nil
	}

	return md
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(data)
	if err != nil {
		m.logger.WithError(err).Debug("cannot write response")
	}
}
