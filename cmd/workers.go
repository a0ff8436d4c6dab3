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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/oppgjor"
	"github.com/jerry-enebeli/oppgjor/config"
	redis_db "github.com/jerry-enebeli/oppgjor/internal/redis-db"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

// processDispatch sends a recorded payment order to the counterparty. The
// transport never retries; DispatchOrder wraps the send in a bounded backoff,
// and returning an error here pushes the task back for an asynq retry on top
// of that.
func (b *oppgjorInstance) processDispatch(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("oppgjor.dispatch.worker").Start(ctx, "Process Dispatch From Queue")
	defer span.End()

	var payload oppgjor.DispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.oppgjor.DispatchOrder(ctx, payload.PaymentID); err != nil {
		logrus.Infof("Dispatch of %s pushed back for retry due to error: %v", payload.PaymentID, err)
		return err
	}

	log.Println(" [*] Order Dispatched", payload.PaymentID)
	return nil
}

// processReconciliation runs a reconciliation pass up to the current time.
// A run already holding the lock is not an error worth retrying; the next
// scheduled trigger covers the window anyway.
func (b *oppgjorInstance) processReconciliation(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("oppgjor.reconciliation.worker").Start(ctx, "Process Reconciliation Trigger")
	defer span.End()

	var runID string
	if err := json.Unmarshal(t.Payload(), &runID); err != nil {
		logrus.Error(err)
		return err
	}

	window, err := b.oppgjor.StartReconciliation(ctx, time.Now())
	if err != nil {
		if errors.Is(err, oppgjor.ErrReconciliationRunning) {
			logrus.Infof("Reconciliation trigger %s skipped: %v", runID, err)
			return nil
		}
		return err
	}

	log.Printf(" [*] Reconciliation Completed %s covering %d payments", window.WindowID, window.RecordCount)
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.DispatchQueue] = 3
	queues[cfg.Queue.ReconciliationQueue] = 1
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(b *oppgjorInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	mux.HandleFunc(cfg.Queue.DispatchQueue, b.processDispatch)
	mux.HandleFunc(cfg.Queue.ReconciliationQueue, b.processReconciliation)
}

// initializeScheduler registers the nightly reconciliation trigger on the
// configured cron expression.
func initializeScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		&asynq.SchedulerOpts{Location: time.UTC},
	)

	payload, err := json.Marshal("scheduled")
	if err != nil {
		return nil, err
	}
	task := asynq.NewTask(conf.Queue.ReconciliationQueue, payload, asynq.Queue(conf.Queue.ReconciliationQueue))
	if _, err := scheduler.Register(conf.Queue.ReconciliationCron, task); err != nil {
		return nil, fmt.Errorf("error registering reconciliation schedule: %v", err)
	}
	return scheduler, nil
}

// workerCommands defines the "workers" command. It runs the dispatch and
// reconciliation queue consumers, the receipt listener and the reconciliation
// scheduler in a single process.
func workerCommands(b *oppgjorInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start oppgjor workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			scheduler, err := initializeScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}
			if err := scheduler.Start(); err != nil {
				log.Fatalf("could not start scheduler: %v", err)
			}
			defer scheduler.Shutdown()

			// The receipt listener owns the reply queue for the lifetime of
			// the process.
			go b.oppgjor.RunReceiptListener(ctx)

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
