package kafka

import (
	"context"
	"errors"
)

type multiProducer struct {
	producers []Producer
}

// NewMultiProducer sends every message to all producers. Every producer is
// tried, errors are joined.
func NewMultiProducer(producers ...Producer) Producer {
	return &multiProducer{producers: producers}
}

func (m *multiProducer) SendMessage(ctx context.Context, key string, message interface{}) error {
	var errs []error
	for _, p := range m.producers {
		if err := p.SendMessage(ctx, key, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiProducer) Close() error {
	var errs []error
	for _, p := range m.producers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
