package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

type mirrorConsumer struct {
	logger *zap.Logger
	queue  Queuer
	mirror BookMirror
}

// NewMirrorConsumer provides a consumer which replays book change events on the mirror.
func NewMirrorConsumer(logger *zap.Logger, q Queuer, mirror BookMirror) Consumer {
	return &mirrorConsumer{logger, q, mirror}
}

// Consume runs until the context is done.
func (mc *mirrorConsumer) Consume(ctx context.Context, qids ...string) error {
	var book Book
	var err error
	var qid string
	for {
		qid, book, err = mc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			mc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if errors.Is(err, ErrNoEvent) {
			continue
		}

		if err != nil {
			mc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		switch qid {
		case CreateQueue, UpdateQueue:
			if err = mc.mirror.Save(ctx, book); err != nil {
				mc.logger.Error("consumer: failed to save", zap.String("qid", qid), zap.Any("book", book), zap.Error(err))
			}
		case DeleteQueue:
			if err = mc.mirror.Remove(ctx, book.ID); err != nil {
				mc.logger.Error("consumer: failed to remove", zap.Int64("book.id", book.ID), zap.Error(err))
			}
		default:
			mc.logger.Warn("consumer: received book on unknow queue id", zap.String("qid", qid), zap.Any("book", book))
		}
	}
}
