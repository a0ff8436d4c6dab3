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
	"fmt"
	"log"
	"os"

	"github.com/jerry-enebeli/oppgjor"
	"github.com/jerry-enebeli/oppgjor/config"
	"github.com/jerry-enebeli/oppgjor/database"
	"github.com/jerry-enebeli/oppgjor/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Oppgjor represents the CLI application, encapsulating the root Cobra command.
type Oppgjor struct {
	cmd *cobra.Command
}

// oppgjorInstance holds the service instance and its configuration, shared
// across all subcommands.
type oppgjorInstance struct {
	oppgjor *oppgjor.Oppgjor
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service before any
// subcommand runs.
func preRun(app *oppgjorInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("oppgjor.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newOppgjor, err := setupOppgjor(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.oppgjor = newOppgjor
		app.cnf = cnf

		return nil
	}
}

// setupOppgjor connects the datasource and builds the service from it.
func setupOppgjor(cfg *config.Configuration) (*oppgjor.Oppgjor, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newOppgjor, err := oppgjor.NewOppgjor(db)
	if err != nil {
		return nil, fmt.Errorf("error creating oppgjor: %v", err)
	}
	return newOppgjor, nil
}

// NewCLI builds the command-line interface: server, workers, migrations,
// backups and config inspection.
func NewCLI() *Oppgjor {
	var configFile string
	b := &oppgjorInstance{}

	var rootCmd = &cobra.Command{
		Use:   "oppgjor",
		Short: "Payment settlement and reconciliation service",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./oppgjor.json", "Configuration file for the settlement service")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))
	rootCmd.AddCommand(backupCommands(b))
	rootCmd.AddCommand(configCommands())

	return &Oppgjor{cmd: rootCmd}
}

func (w Oppgjor) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
