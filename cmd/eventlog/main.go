// eventlog follows the run event topic and writes every completed run to the log.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ds124wfegd/imageslicer/config"
	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/kafka"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: strings.Split(config.GetEnv("KAFKA_BROKERS", "localhost:9094"), ","),
		Topic:   config.GetEnv("KAFKA_TOPIC", "slice-runs"),
		GroupID: config.GetEnv("KAFKA_GROUP_ID", "slice-run-log"),
	})
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	err := consumer.Run(ctx, func(_ context.Context, event entity.RunEvent) error {
		names := make([]string, 0, len(event.Slices))
		for _, s := range event.Slices {
			names = append(names, s.Name)
		}
		logrus.WithFields(logrus.Fields{
			"run_id":   event.RunID,
			"source":   event.SourceName,
			"split_y2": event.SplitY2,
			"slices":   names,
		}).Info("Run completed")
		return nil
	})
	if err != nil {
		logrus.Errorf("Consumer stopped: %v", err)
		os.Exit(1)
	}
}
