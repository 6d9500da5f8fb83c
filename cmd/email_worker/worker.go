package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ems-backend/pkg/mailer"
)

type outcome int

const (
	ack outcome = iota
	requeue
	drop
)

type sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type worker struct {
	sender sender
	logger *logrus.Logger

	// retryBase doubles per consecutive send failure up to retryMax
	retryBase time.Duration
	retryMax  time.Duration
	failures  int
}

// handle decodes, renders and sends one queued job.
// Undecodable or unrenderable jobs are dropped, send failures are requeued.
func (w *worker) handle(ctx context.Context, body []byte) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.WithError(err).Warn("bad message")
		return drop
	}
	msg, err := job.Build()
	if err != nil {
		w.logger.WithError(err).WithField("template", job.Template).Warn("render failed")
		return drop
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := w.sender.Send(c, msg); err != nil {
		w.logger.WithError(err).WithField("to", msg.To).Error("send failed")
		w.failures++
		return requeue
	}
	w.failures = 0
	w.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email sent")
	return ack
}

// retryDelay is how long to hold a failed job before requeueing it.
func (w *worker) retryDelay() time.Duration {
	if w.retryBase <= 0 || w.failures == 0 {
		return 0
	}
	d := w.retryBase
	for i := 1; i < w.failures && d < w.retryMax; i++ {
		d *= 2
	}
	if w.retryMax > 0 && d > w.retryMax {
		d = w.retryMax
	}
	return d
}

// backoff sleeps for retryDelay and reports false if ctx ended first.
func (w *worker) backoff(ctx context.Context) bool {
	d := w.retryDelay()
	if d == 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
