// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/stack-orchestrator/pkg/api"
)

func main() {
	cmd := &cli.Command{
		Name:  "taxisd",
		Usage: "Deployment orchestrator daemon",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration layer file, repeatable, lowest precedence first",
				Sources: cli.EnvVars("TAXIS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "namespace",
				Value:   "default",
				Usage:   "Cluster namespace to manage",
				Sources: cli.EnvVars("TAXIS_NAMESPACE"),
			},
			&cli.StringFlag{
				Name:    "kubeconfig",
				Usage:   "Path to kubeconfig (defaults to automatic discovery)",
				Sources: cli.EnvVars("KUBECONFIG"),
			},
			&cli.StringFlag{
				Name:    "database",
				Usage:   "State database URL (e.g., sqlite:/var/lib/taxis/state.db)",
				Sources: cli.EnvVars("TAXIS_DATABASE"),
			},
			&cli.StringFlag{
				Name:    "authority",
				Usage:   "Certificate authority base URL",
				Sources: cli.EnvVars("TAXIS_AUTHORITY"),
			},
			&cli.StringFlag{
				Name:    "archive",
				Usage:   "Cycle archive target (oci:// reference or directory)",
				Sources: cli.EnvVars("TAXIS_ARCHIVE"),
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Reconcile interval (defaults to 30s)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP API port (defaults to 8080, PORT env also honored)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("TAXIS_LOG_LEVEL"),
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return api.Serve(api.Options{
				ConfigFiles:   cmd.StringSlice("config"),
				Namespace:     cmd.String("namespace"),
				Kubeconfig:    cmd.String("kubeconfig"),
				DatabaseURL:   cmd.String("database"),
				AuthorityURL:  cmd.String("authority"),
				ArchiveTarget: cmd.String("archive"),
				Interval:      cmd.Duration("interval"),
				Port:          int(cmd.Int("port")),
				LogLevel:      cmd.String("log-level"),
			})
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
