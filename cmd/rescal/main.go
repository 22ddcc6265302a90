// Copyright 2025 rescal Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"modernc.org/mathutil"

	"github.com/rescal-io/rescal/base/log"
	"github.com/rescal-io/rescal/config"
	"github.com/rescal-io/rescal/dataset"
	"github.com/rescal-io/rescal/rescal"
)

const version = "0.1.0"

var mainCommand = &cobra.Command{
	Use:   "rescal",
	Short: "Collective learning on multi-relational data via tensor factorization.",
	Run: func(cmd *cobra.Command, args []string) {
		// show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println("rescal version", version)
			return
		}

		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)

		// load config
		conf := config.GetDefaultConfig()
		if configPath, _ := cmd.PersistentFlags().GetString("config"); configPath != "" {
			var err error
			if conf, err = config.LoadConfig(configPath); err != nil {
				log.Logger().Fatal("failed to load config", zap.String("config", configPath), zap.Error(err))
			}
		}
		flags := cmd.PersistentFlags()
		if flags.Changed("data") {
			conf.Data.Path, _ = flags.GetString("data")
		}
		if flags.Changed("output") {
			conf.Data.Output, _ = flags.GetString("output")
		}
		if flags.Changed("latent") {
			conf.Factorization.Rank, _ = flags.GetInt("latent")
		}
		if flags.Changed("lmbda") {
			conf.Factorization.Lmbda, _ = flags.GetFloat64("lmbda")
		}
		if flags.Changed("restarts") {
			conf.Factorization.Restarts, _ = flags.GetInt("restarts")
		}
		if flags.Changed("jobs") {
			conf.Factorization.Jobs, _ = flags.GetInt("jobs")
		}
		if err := conf.Validate(); err != nil {
			log.Logger().Fatal("invalid config", zap.Error(err))
		}

		// load dataset
		matrices, err := dataset.LoadDirectory(conf.Data.Path)
		if err != nil {
			log.Logger().Fatal("failed to load dataset", zap.String("path", conf.Data.Path), zap.Error(err))
		}
		entities, _ := matrices[0].Dims()
		log.Logger().Info("dataset loaded",
			zap.String("path", conf.Data.Path),
			zap.Int("entities", entities),
			zap.Int("slices", len(matrices)))

		// factorize
		slices := dataset.Slices(matrices)
		params := conf.FactorizationParams()
		fitConfig := rescal.NewFitConfig().
			SetJobs(mathutil.Min(conf.Factorization.Jobs, runtime.NumCPU())).
			SetVerbose(1)
		var result *rescal.Result
		if conf.Factorization.Restarts > 0 {
			result, err = rescal.FactorizeWithRestarts(slices,
				conf.Factorization.Rank, conf.Factorization.Restarts, params, fitConfig)
		} else {
			result, err = rescal.Factorize(slices, conf.Factorization.Rank, params, fitConfig)
		}
		if err != nil {
			log.Logger().Fatal("factorization failed", zap.Error(err))
		}
		log.Logger().Info("factorization finished",
			zap.Float64("objective", result.Objective),
			zap.Int("iterations", result.Iterations))

		// persist latent embeddings
		if err = dataset.SaveDense(conf.Data.Output, result.A); err != nil {
			log.Logger().Fatal("failed to save embeddings", zap.String("output", conf.Data.Output), zap.Error(err))
		}
		log.Logger().Info("embeddings saved", zap.String("output", conf.Data.Output))
	},
}

func init() {
	mainCommand.PersistentFlags().Bool("version", false, "rescal version")
	mainCommand.PersistentFlags().BoolP("debug", "d", false, "use debug log mode")
	mainCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	mainCommand.PersistentFlags().String("data", "./data", "dataset directory")
	mainCommand.PersistentFlags().String("output", "latent-embeddings.csv", "output embedding file")
	mainCommand.PersistentFlags().Int("latent", 10, "number of latent components")
	mainCommand.PersistentFlags().Float64("lmbda", 0, "regularization strength")
	mainCommand.PersistentFlags().Int("restarts", 0, "number of random restarts, 0 runs a single factorization")
	mainCommand.PersistentFlags().Int("jobs", 1, "number of parallel restart workers")
	log.AddFlags(mainCommand.PersistentFlags())
}

func main() {
	if err := mainCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
