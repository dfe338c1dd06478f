package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/devskit/examples/banksim"
	"github.com/sarchlab/devskit/sim/kernel"
)

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		k       *kernel.Kernel
		handler http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		logger, _ := test.NewNullLogger()
		reg := prometheus.NewRegistry()

		k = kernel.MakeBuilder().
			WithLogger(logger).
			WithMetrics(reg).
			WithoutSignalHandler().
			Build()

		_, err := banksim.Build(k, banksim.DefaultConfig)
		Expect(err).NotTo(HaveOccurred())
		Expect(banksim.Start(k, 0)).To(Succeed())

		m = NewMonitor().WithLogger(logger).WithGatherer(reg)
		m.RegisterKernel(k)
		handler = m.Handler()
	})

	It("should replace low port numbers", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should report the time and the status", func() {
		Expect(k.Simulate(3)).To(Succeed())

		Expect(get("/api/now").Body.String()).To(Equal(`{"now":3.0000000000}`))

		rec := get("/api/status")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp statusRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(Equal(statusRsp{
			Kernel:       "kernel",
			Status:       kernel.StatusRunning.String(),
			Mode:         kernel.VirtualTime.String(),
			Now:          3,
			ActiveModels: 3,
			Models:       3,
		}))
	})

	It("should pause and continue the kernel", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(k.Status()).To(Equal(kernel.StatusPaused))

		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Expect(k.Status()).NotTo(Equal(kernel.StatusPaused))

		Expect(k.Simulate(1)).To(Succeed())
	})

	It("should list and inspect models", func() {
		var names []string
		Expect(json.Unmarshal(get("/api/list_models").Body.Bytes(), &names)).
			To(Succeed())
		Expect(names).To(Equal([]string{"gen", "bank", "sink"}))

		rec := get("/api/model/gen")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))

		Expect(get("/api/model/nobody").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/field/notjson").Code).To(Equal(http.StatusBadRequest))
	})

	It("should answer while models come and go", func() {
		for i := 0; i < 50; i++ {
			created := float64(i % 10)
			sink := banksim.NewSink(fmt.Sprintf("visitor%d", i))
			Expect(k.RegisterEntity(sink, created, created+0.5)).To(Succeed())
		}

		done := make(chan error)
		go func() {
			done <- k.Simulate(20)
		}()

		running := true
		for running {
			Expect(get("/api/status").Code).To(Equal(http.StatusOK))
			Expect(get("/api/list_models").Code).To(Equal(http.StatusOK))
			Expect(get("/api/model/gen").Code).To(Equal(http.StatusOK))

			select {
			case err := <-done:
				Expect(err).NotTo(HaveOccurred())
				running = false
			default:
			}
		}

		var names []string
		Expect(json.Unmarshal(get("/api/list_models").Body.Bytes(), &names)).
			To(Succeed())
		Expect(names).To(Equal([]string{"gen", "bank", "sink"}))
	})

	It("should inspect a paused kernel without resuming it", func() {
		k.Pause()
		defer k.Continue()

		Expect(get("/api/model/gen").Code).To(Equal(http.StatusOK))
		Expect(k.Status()).To(Equal(kernel.StatusPaused))
	})

	It("should report uncaught messages", func() {
		Expect(get("/api/uncaught").Body.String()).To(Equal("[]"))

		Expect(k.RemoveRelation(banksim.GeneratorName, "out",
			banksim.BankName, "in")).To(BeTrue())
		Expect(k.Simulate(2)).To(Succeed())

		var stats []kernel.UncaughtStat
		Expect(json.Unmarshal(get("/api/uncaught").Body.Bytes(), &stats)).
			To(Succeed())
		Expect(stats).To(Equal([]kernel.UncaughtStat{
			{Src: banksim.GeneratorName, Port: "out", Count: 2},
		}))
	})

	It("should expose the kernel metrics", func() {
		Expect(k.Simulate(3)).To(Succeed())

		rec := get("/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("devs_simulated_time_seconds"))
		Expect(rec.Body.String()).To(ContainSubstring("devs_transitions_total"))
	})

	It("should track the simulated time", func() {
		bar := m.TrackTime("run", 10)
		Expect(k.Simulate(4)).To(Succeed())

		var bars []progressSnapshot
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("run"))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Finished).To(Equal(uint64(4)))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should report resources", func() {
		rec := get("/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should serve on a random port", func() {
		addr, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer m.Shutdown(context.Background())

		rsp, err := http.Get(addr + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})

var _ = Describe("ProgressBar", func() {
	It("should move work from in progress to finished", func() {
		b := newProgressBar("bar", 10)
		b.IncrementInProgress(3)
		b.MoveInProgressToFinished(2)
		b.IncrementFinished(1)

		s := b.snapshot()
		Expect(s.InProgress).To(Equal(uint64(1)))
		Expect(s.Finished).To(Equal(uint64(3)))
		Expect(s.ID).NotTo(BeEmpty())

		b.SetFinished(20)
		Expect(b.snapshot().Finished).To(Equal(uint64(10)))
	})
})
