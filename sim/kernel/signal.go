package kernel

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

var signalOnce sync.Once

// installSignalHandler makes an interrupt or terminate signal end the
// process at once. It is not a clean shutdown: the step loop is abandoned
// mid-quantum and only atexit handlers get to run.
func installSignalHandler(logger logrus.FieldLogger) {
	signalOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

		go func() {
			sig := <-ch
			logger.WithField("signal", sig.String()).
				Warn("simulation interrupted, exiting")
			atexit.Exit(0)
		}()
	})
}
