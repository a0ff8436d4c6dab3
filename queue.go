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
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/jerry-enebeli/oppgjor/config"
	redis_db "github.com/jerry-enebeli/oppgjor/internal/redis-db"
)

// Queue handles the internal work queues: order dispatch and reconciliation
// triggers. These are distinct from the counterparty Transport.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// DispatchPayload is the task body for an order dispatch.
type DispatchPayload struct {
	PaymentID string `json:"payment_id"`
}

// NewQueue initializes the asynq client and inspector against the configured
// redis instance.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueOrder queues a recorded payment for dispatch to the counterparty.
// The task id is the payment id, so re-enqueueing the same payment while a
// dispatch is pending is a no-op rather than a double send.
func (q *Queue) EnqueueOrder(ctx context.Context, paymentID string) error {
	ctx, span := tracer.Start(ctx, "Adding payment to dispatch queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(DispatchPayload{PaymentID: paymentID})
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(paymentID),
		asynq.Queue(cfg.Queue.DispatchQueue),
		asynq.MaxRetry(cfg.Queue.MaxDispatchRetries),
	}
	task := asynq.NewTask(cfg.Queue.DispatchQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued dispatch: %+v", paymentID)
	return nil
}

// EnqueueReconciliation queues a reconciliation trigger. The scheduler calls
// this on its cron; operators can also trigger a run through the API.
func (q *Queue) EnqueueReconciliation(ctx context.Context, runID string) error {
	ctx, span := tracer.Start(ctx, "Adding reconciliation trigger to queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(runID)
	if err != nil {
		return err
	}

	task := asynq.NewTask(cfg.Queue.ReconciliationQueue, payload, asynq.Queue(cfg.Queue.ReconciliationQueue))
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued reconciliation trigger: %+v", runID)
	return nil
}
