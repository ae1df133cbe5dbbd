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

	"github.com/NVIDIA/stack-orchestrator/pkg/config"
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:                  "validate",
		EnableShellCompletion: true,
		Usage:                 "Resolve and validate layered configuration files locally",
		Description: `Merge the given configuration layers (lowest precedence first) and run
full validation, without contacting a daemon.

On success, prints the effective configuration; configuration errors are
reported with the offending field paths.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "file",
				Aliases: []string{"c"},
				Usage:   "Configuration layer file, repeatable, lowest precedence first",
			},
			formatFlag,
			outputFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.StringSlice("file")
			if len(files) == 0 {
				return fmt.Errorf("at least one --file is required")
			}

			layers, err := config.LoadLayerFiles(files...)
			if err != nil {
				return fmt.Errorf("failed to load configuration layers: %w", err)
			}

			effective, err := config.Resolve(layers...)
			if err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}

			return writeResult(ctx, cmd, effective)
		},
	}
}
