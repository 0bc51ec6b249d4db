// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package main is the main entry point for starting the pipeline simulator
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/pipeline-sim/pkg/manager"
	"github.com/spf13/cobra"
)

var log = logging.GetLogger()

// The main entry point
func main() {
	cmd := &cobra.Command{
		Use:  "pipeline-sim",
		RunE: runRootCommand,
	}
	cmd.Flags().String("caPath", "", "path to CA certificate")
	cmd.Flags().String("keyPath", "", "path to client private key")
	cmd.Flags().String("certPath", "", "path to client certificate")
	cmd.Flags().Int("grpcPort", 5150, "grpc server port")
	cmd.Flags().Bool("noTLS", false, "serve the gRPC API without TLS")
	cmd.Flags().String("deployment", "deployments/router.yaml", "path to the deployment YAML file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRootCommand(cmd *cobra.Command, args []string) error {
	caPath, _ := cmd.Flags().GetString("caPath")
	keyPath, _ := cmd.Flags().GetString("keyPath")
	certPath, _ := cmd.Flags().GetString("certPath")
	grpcPort, _ := cmd.Flags().GetInt("grpcPort")
	noTLS, _ := cmd.Flags().GetBool("noTLS")
	deployment, _ := cmd.Flags().GetString("deployment")

	log.Info("Starting pipeline-sim")
	mgr := manager.NewManager(manager.Config{
		CAPath:         caPath,
		KeyPath:        keyPath,
		CertPath:       certPath,
		GRPCPort:       grpcPort,
		NoTLS:          noTLS,
		DeploymentPath: deployment,
	})
	mgr.Run()
	defer mgr.Close()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
	return nil
}
