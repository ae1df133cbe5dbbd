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

	"github.com/urfave/cli/v3"

	ver "github.com/NVIDIA/stack-orchestrator/pkg/version"
)

// VersionInfo reports client and, when reachable, server build versions.
type VersionInfo struct {
	Client      string `json:"client" yaml:"client"`
	Commit      string `json:"commit" yaml:"commit"`
	Built       string `json:"built" yaml:"built"`
	Server      string `json:"server,omitempty" yaml:"server,omitempty"`
	ServerReady bool   `json:"serverReady,omitempty" yaml:"serverReady,omitempty"`
	VersionSkew bool   `json:"versionSkew,omitempty" yaml:"versionSkew,omitempty"`
	ServerError string `json:"serverError,omitempty" yaml:"serverError,omitempty"`
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:                  "version",
		EnableShellCompletion: true,
		Usage:                 "Show client and server versions",
		Flags: []cli.Flag{
			formatFlag,
			outputFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := VersionInfo{
				Client: version,
				Commit: commit,
				Built:  date,
			}

			if srv, err := clientFromCmd(cmd).Info(ctx); err != nil {
				info.ServerError = err.Error()
			} else {
				info.Server = srv.Version
				info.ServerReady = srv.Ready
				info.VersionSkew = detectSkew(version, srv.Version)
			}

			return writeResult(ctx, cmd, info)
		},
	}
}

// detectSkew reports whether client and server differ in major or minor
// version. Build metadata and non-semver dev versions never count as skew.
func detectSkew(client, srv string) bool {
	cv, err := ver.ParseVersion(client)
	if err != nil {
		return false
	}
	sv, err := ver.ParseVersion(srv)
	if err != nil {
		return false
	}
	return cv.SkewsFrom(sv)
}
