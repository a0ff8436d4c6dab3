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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"OPPGJOR_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"OPPGJOR_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"OPPGJOR_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"OPPGJOR_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"OPPGJOR_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"OPPGJOR_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"OPPGJOR_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"OPPGJOR_REDIS_DNS"`
}

// TransportConfig describes the queue pair shared with the settlement
// counterparty. The counterparty grants one physical connection, so the
// transport client is pinned to a pool of exactly one.
type TransportConfig struct {
	Dns                  string `json:"dns" envconfig:"OPPGJOR_TRANSPORT_DNS"`
	SendQueue            string `json:"send_queue" envconfig:"OPPGJOR_TRANSPORT_SEND_QUEUE"`
	ReplyQueue           string `json:"reply_queue" envconfig:"OPPGJOR_TRANSPORT_REPLY_QUEUE"`
	SourceComponent      string `json:"source_component" envconfig:"OPPGJOR_TRANSPORT_SOURCE_COMPONENT"`
	DestinationComponent string `json:"destination_component" envconfig:"OPPGJOR_TRANSPORT_DESTINATION_COMPONENT"`
	TimeoutSec           int    `json:"timeout_sec" envconfig:"OPPGJOR_TRANSPORT_TIMEOUT_SEC"`
}

type QueueConfig struct {
	DispatchQueue       string `json:"dispatch_queue" envconfig:"OPPGJOR_QUEUE_DISPATCH"`
	ReconciliationQueue string `json:"reconciliation_queue" envconfig:"OPPGJOR_QUEUE_RECONCILIATION"`
	MaxDispatchRetries  int    `json:"max_dispatch_retries" envconfig:"OPPGJOR_QUEUE_MAX_DISPATCH_RETRIES"`
	ReconciliationCron  string `json:"reconciliation_cron" envconfig:"OPPGJOR_QUEUE_RECONCILIATION_CRON"`
	MonitoringPort      string `json:"monitoring_port" envconfig:"OPPGJOR_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"OPPGJOR_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"OPPGJOR_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"OPPGJOR_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName        string           `json:"project_name" envconfig:"OPPGJOR_PROJECT_NAME"`
	BackupDir          string           `json:"backup_dir" envconfig:"OPPGJOR_BACKUP_DIR"`
	AwsAccessKeyId     string           `json:"aws_access_key_id"`
	AwsSecretAccessKey string           `json:"aws_secret_access_key"`
	S3BucketName       string           `json:"s3_bucket_name"`
	S3Region           string           `json:"s3_region"`
	Server             ServerConfig     `json:"server"`
	DataSource         DataSourceConfig `json:"data_source"`
	Redis              RedisConfig      `json:"redis"`
	Transport          TransportConfig  `json:"transport"`
	Queue              QueueConfig      `json:"queue"`
	Notification       Notification     `json:"notification"`
	RateLimit          RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("oppgjor", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called oppgjor.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Oppgjor Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// The transport shares the redis instance unless pointed elsewhere.
	if cnf.Transport.Dns == "" {
		cnf.Transport.Dns = cnf.Redis.Dns
	}
	if cnf.Transport.SendQueue == "" {
		cnf.Transport.SendQueue = "oppgjor:orders:out"
	}
	if cnf.Transport.ReplyQueue == "" {
		cnf.Transport.ReplyQueue = "oppgjor:receipts:in"
	}
	if cnf.Transport.SourceComponent == "" {
		cnf.Transport.SourceComponent = "OPPGJOR"
	}
	if cnf.Transport.DestinationComponent == "" {
		cnf.Transport.DestinationComponent = "UTBETALING"
	}
	if cnf.Transport.TimeoutSec <= 0 {
		cnf.Transport.TimeoutSec = 30
	}

	if cnf.Queue.DispatchQueue == "" {
		cnf.Queue.DispatchQueue = "new:dispatch"
	}
	if cnf.Queue.ReconciliationQueue == "" {
		cnf.Queue.ReconciliationQueue = "new:reconciliation"
	}
	if cnf.Queue.MaxDispatchRetries <= 0 {
		cnf.Queue.MaxDispatchRetries = 5
	}
	if cnf.Queue.ReconciliationCron == "" {
		// daily, after the counterparty's nightly settlement run
		cnf.Queue.ReconciliationCron = "0 6 * * *"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5004"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
		log.Printf("Warning: Rate limit cleanup interval not specified. Setting default value: %d seconds", defaultCleanup)
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
