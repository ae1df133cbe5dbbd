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

func reconcileCmd() *cli.Command {
	return &cli.Command{
		Name:                  "reconcile",
		EnableShellCompletion: true,
		Usage:                 "Queue an immediate reconcile cycle",
		Description: `Queue an out-of-band reconcile cycle on the daemon.

The command returns once the cycle is queued; use "taxis status" or
"taxis reports" to inspect the outcome.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := clientFromCmd(cmd).Reconcile(ctx); err != nil {
				return fmt.Errorf("failed to queue reconcile: %w", err)
			}
			fmt.Fprintln(cmd.Writer, "reconcile cycle queued")
			return nil
		},
	}
}

func retryCmd() *cli.Command {
	return &cli.Command{
		Name:                  "retry",
		EnableShellCompletion: true,
		Usage:                 "Re-arm a failed tier or certificate request",
		Description: `Reset the retry budget of a failed tier or certificate request and
queue a reconcile cycle to pick it up.`,
		Flags: targetFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runTargetMutation(ctx, cmd, "retry",
				clientFromCmd(cmd).RetryTier, clientFromCmd(cmd).RetryCertificate)
		},
	}
}

func cancelCmd() *cli.Command {
	return &cli.Command{
		Name:                  "cancel",
		EnableShellCompletion: true,
		Usage:                 "Cancel a tier rollout or certificate request",
		Description: `Remove a tier or certificate request from the orchestrator's tracking.

The next reconcile cycle re-creates tracking for anything still present
in the effective configuration.`,
		Flags: targetFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runTargetMutation(ctx, cmd, "cancel",
				clientFromCmd(cmd).CancelTier, clientFromCmd(cmd).CancelCertificate)
		},
	}
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "tier",
			Usage: "Target tier name",
		},
		&cli.StringFlag{
			Name:  "domain",
			Usage: "Target certificate domain",
		},
	}
}

func runTargetMutation(ctx context.Context, cmd *cli.Command, verb string,
	tierOp, domainOp func(context.Context, string) error) error {

	tierName := cmd.String("tier")
	domain := cmd.String("domain")
	if (tierName == "") == (domain == "") {
		return fmt.Errorf("exactly one of --tier or --domain is required")
	}

	if tierName != "" {
		if err := tierOp(ctx, tierName); err != nil {
			return fmt.Errorf("failed to %s tier %q: %w", verb, tierName, err)
		}
		fmt.Fprintf(cmd.Writer, "%s accepted for tier %s\n", verb, tierName)
		return nil
	}

	if err := domainOp(ctx, domain); err != nil {
		return fmt.Errorf("failed to %s certificate %q: %w", verb, domain, err)
	}
	fmt.Fprintf(cmd.Writer, "%s accepted for domain %s\n", verb, domain)
	return nil
}
