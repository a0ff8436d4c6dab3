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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/oppgjor/config"
	"github.com/jerry-enebeli/oppgjor/database"
	redis_db "github.com/jerry-enebeli/oppgjor/internal/redis-db"
)

var tracer = otel.Tracer("oppgjor")

// Oppgjor is the settlement service: it records disbursement orders in the
// payment ledger, pushes them to the counterparty over the shared transport,
// applies settlement receipts, and runs the periodic reconciliation.
type Oppgjor struct {
	queue      *Queue
	transport  *Transport
	redis      redis.UniversalClient
	datasource database.IDataSource
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewOppgjor initializes the service with the provided datasource. It fetches
// the configuration and wires up the redis client, the dispatch queue and the
// counterparty transport.
func NewOppgjor(db database.IDataSource) (*Oppgjor, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	transport, err := NewTransport(configuration)
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	return &Oppgjor{
		datasource: db,
		queue:      newQueue,
		transport:  transport,
		redis:      redisClient.Client(),
	}, nil
}
