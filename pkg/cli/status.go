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

package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:                  "status",
		EnableShellCompletion: true,
		Usage:                 "Show tier and certificate status",
		Description: `Show orchestrator status.

Without flags, prints every tier and certificate request. Use --tier or
--domain to select a single resource.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tier",
				Usage: "Show status for a single tier",
			},
			&cli.StringFlag{
				Name:  "domain",
				Usage: "Show status for a single certificate domain",
			},
			formatFlag,
			outputFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tierName := cmd.String("tier")
			domain := cmd.String("domain")
			if tierName != "" && domain != "" {
				return fmt.Errorf("--tier and --domain are mutually exclusive")
			}

			client := clientFromCmd(cmd)

			switch {
			case tierName != "":
				resp, err := client.TierStatus(ctx, tierName)
				if err != nil {
					return fmt.Errorf("failed to fetch tier status: %w", err)
				}
				return writeResult(ctx, cmd, resp)
			case domain != "":
				resp, err := client.CertificateStatus(ctx, domain)
				if err != nil {
					return fmt.Errorf("failed to fetch certificate status: %w", err)
				}
				return writeResult(ctx, cmd, resp)
			default:
				resp, err := client.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to fetch status: %w", err)
				}
				return writeResult(ctx, cmd, resp)
			}
		},
	}
}

func reportsCmd() *cli.Command {
	return &cli.Command{
		Name:                  "reports",
		EnableShellCompletion: true,
		Usage:                 "List persisted sync reports, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   10,
				Usage:   "Maximum number of reports to return (0 for all)",
			},
			formatFlag,
			outputFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			resp, err := clientFromCmd(cmd).Reports(ctx, int(cmd.Int("limit")))
			if err != nil {
				return fmt.Errorf("failed to fetch reports: %w", err)
			}
			return writeResult(ctx, cmd, resp)
		},
	}
}
