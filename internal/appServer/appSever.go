// launching the server, release worker and the optional kafka publisher
package appServer

import (
	"context"
	"crypto/tls"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/imageslicer/config"
	"github.com/ds124wfegd/imageslicer/internal/database"
	"github.com/ds124wfegd/imageslicer/internal/pkg/kafka"
	"github.com/ds124wfegd/imageslicer/internal/pkg/logger"
	"github.com/ds124wfegd/imageslicer/internal/pkg/notify"
	"github.com/ds124wfegd/imageslicer/internal/pkg/processor"
	"github.com/ds124wfegd/imageslicer/internal/pkg/storage"
	"github.com/ds124wfegd/imageslicer/internal/service"
	"github.com/ds124wfegd/imageslicer/internal/transport"
	"github.com/ds124wfegd/imageslicer/internal/worker"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},           // ban on outdate TLS certificate
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// App is everything NewServer starts besides the http listener.
type App struct {
	Handler  http.Handler
	Worker   *worker.RunReleaseWorker
	Producer kafka.Producer
	Hub      *notify.Hub
}

// BuildApp wires storage, slicing and transport from the configuration.
func BuildApp(cfg *config.Config) (*App, error) {
	filter, err := processor.ParseFilter(cfg.Slicer.ResampleFilter)
	if err != nil {
		return nil, err
	}
	level, err := processor.ParseCompressionLevel(cfg.Slicer.PNGCompression)
	if err != nil {
		return nil, err
	}

	splitY2 := cfg.Slicer.SplitY2
	if splitY2 < 0 {
		logrus.Warnf("Negative slicer.split_y2 %d, using %d", splitY2, processor.DefaultSplitY2)
		splitY2 = processor.DefaultSplitY2
	}

	blobStorage := storage.NewMemoryStorage()
	runRepo := database.NewRunRepository(blobStorage)
	kafkaProducer := kafka.NewProducer(kafka.ProducerConfig{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		DialTimeout:  cfg.Kafka.DialTimeout,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	})
	slicer := processor.NewSlicer(
		processor.NewResizer(filter),
		processor.NewPNGEncoder(level),
		cfg.Slicer.EncodeWorkers,
	)
	hub := notify.NewHub()
	producer := kafka.NewMultiProducer(kafkaProducer, hub)

	sliceService := service.NewSliceService(runRepo, producer, slicer, splitY2, cfg.Slicer.MaxPixels)
	sliceHandler := transport.NewSliceHandler(sliceService, cfg.Slicer.MaxUploadBytes())

	var uploadLimiter *rate.Limiter
	if cfg.Slicer.UploadRate > 0 {
		burst := cfg.Slicer.UploadBurst
		if burst < 1 {
			burst = 1
		}
		uploadLimiter = rate.NewLimiter(rate.Limit(cfg.Slicer.UploadRate), burst)
	}

	handler := transport.InitRoutes(sliceHandler, transport.RouteOptions{
		RequestTimeout: cfg.Slicer.RequestTimeout,
		UploadLimiter:  uploadLimiter,
		Events:         hub.ServeWS,
	})

	return &App{
		Handler:  handler,
		Worker:   worker.NewRunReleaseWorker(sliceService, cfg.Slicer.ReleaseInterval, cfg.Slicer.Retention),
		Producer: producer,
		Hub:      hub,
	}, nil
}

func NewServer(cfg *config.Config) {
	logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		logrus.Fatalf("Cannot set up logging: %s", err.Error())
	}
	defer closeQuietly(logCloser)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := BuildApp(cfg)
	if err != nil {
		logrus.Fatalf("Cannot build application: %s", err.Error())
	}
	defer closeQuietly(app.Producer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Worker.Start(ctx)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, app.Handler); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)).Info("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logrus.Errorf("error occured on close: %s", err.Error())
	}
}
