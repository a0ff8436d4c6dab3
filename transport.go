/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package oppgjor

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jerry-enebeli/oppgjor/config"
	redis_db "github.com/jerry-enebeli/oppgjor/internal/redis-db"
	"github.com/jerry-enebeli/oppgjor/model"
)

// Transport is the queue pair shared with the settlement counterparty.
// Orders go out on the send queue, receipts and reconciliation replies come
// back on the reply queue. The counterparty grants a single physical
// connection, so the pool is pinned to one; sends and receives multiplex over
// it by queueing for the connection.
type Transport struct {
	client     *redis.Client
	sendQueue  string
	replyQueue string
	timeout    time.Duration
}

// receivePoll bounds each blocking pop so the shared connection is released
// between polls. A sender queues behind at most one poll interval.
const receivePoll = time.Second

func NewTransport(conf *config.Configuration) (*Transport, error) {
	opts, err := redis_db.ParseRedisURL(conf.Transport.Dns)
	if err != nil {
		return nil, err
	}
	// connection quota on the counterparty side
	opts.PoolSize = 1
	// Senders must outwait a listener poll holding the connection.
	opts.PoolTimeout = receivePoll + 2*time.Second

	return &Transport{
		client:     redis.NewClient(opts),
		sendQueue:  conf.Transport.SendQueue,
		replyQueue: conf.Transport.ReplyQueue,
		timeout:    time.Duration(conf.Transport.TimeoutSec) * time.Second,
	}, nil
}

// Send pushes one wire document onto the send queue. There is no retry here;
// the dispatch pipeline decides whether and when to try again.
func (t *Transport) Send(ctx context.Context, payload string) error {
	ctx, span := tracer.Start(ctx, "Sending document to counterparty queue")
	defer span.End()

	if err := t.client.RPush(ctx, t.sendQueue, payload).Err(); err != nil {
		return model.TransportError{Op: "send", Err: err}
	}
	return nil
}

// Receive waits on the reply queue up to the configured timeout and returns
// the next document. An empty string with a nil error means the timeout
// elapsed without a message. The wait is a series of short blocking pops so
// the single connection is free for sends between polls.
func (t *Transport) Receive(ctx context.Context) (string, error) {
	poll := receivePoll
	if t.timeout < poll {
		poll = t.timeout
	}

	deadline := time.Now().Add(t.timeout)
	for {
		result, err := t.client.BLPop(ctx, poll, t.replyQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if time.Now().Before(deadline) {
					continue
				}
				return "", nil
			}
			return "", model.TransportError{Op: "receive", Err: err}
		}
		// BLPop returns [queue, value]
		if len(result) < 2 {
			return "", nil
		}
		return result[1], nil
	}
}

func (t *Transport) Close() error {
	return t.client.Close()
}
