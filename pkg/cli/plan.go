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

func planCmd() *cli.Command {
	return &cli.Command{
		Name:                  "plan",
		EnableShellCompletion: true,
		Usage:                 "Show the rollout plan as dependency-ordered waves",
		Description: `Show the rollout plan computed from the current effective configuration.

Tiers are grouped into waves: every tier in a wave depends only on tiers
in earlier waves, and tiers within one wave roll out concurrently.`,
		Flags: []cli.Flag{
			formatFlag,
			outputFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			resp, err := clientFromCmd(cmd).Plan(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch plan: %w", err)
			}
			return writeResult(ctx, cmd, resp)
		},
	}
}
