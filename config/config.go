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

package config

import (
	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/rescal-io/rescal/rescal"
)

// Config is the configuration of the rescal command line tool.
type Config struct {
	Data          DataConfig          `mapstructure:"data"`
	Factorization FactorizationConfig `mapstructure:"factorization"`
}

// DataConfig locates the dataset and the output embedding file.
type DataConfig struct {
	Path   string `mapstructure:"path"`
	Output string `mapstructure:"output"`
}

// FactorizationConfig holds the factorization options.
type FactorizationConfig struct {
	Rank        int     `mapstructure:"rank"`
	Lmbda       float64 `mapstructure:"lmbda"`
	Init        string  `mapstructure:"init"`
	Proj        bool    `mapstructure:"proj"`
	MaxIter     int     `mapstructure:"max_iter"`
	Conv        float64 `mapstructure:"conv"`
	Restarts    int     `mapstructure:"restarts"`
	Jobs        int     `mapstructure:"jobs"`
	RandomState int64   `mapstructure:"random_state"`
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Path:   "./data",
			Output: "latent-embeddings.csv",
		},
		Factorization: FactorizationConfig{
			Rank:    10,
			Lmbda:   0,
			Init:    rescal.InitNVecs,
			Proj:    true,
			MaxIter: 500,
			Conv:    1e-5,
			Jobs:    1,
		},
	}
}

// LoadConfig loads and validates a configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	conf := GetDefaultConfig()
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}

// Validate rejects configurations the factorization would reject, before any
// data is loaded.
func (conf *Config) Validate() error {
	f := conf.Factorization
	if f.Rank < 1 {
		return errors.Errorf("rank must be positive, got %d", f.Rank)
	}
	if f.Init != rescal.InitNVecs && f.Init != rescal.InitRandom {
		return errors.Errorf("unknown init option %q", f.Init)
	}
	if f.Lmbda < 0 {
		return errors.Errorf("lmbda must be non-negative, got %v", f.Lmbda)
	}
	if f.MaxIter < 1 {
		return errors.Errorf("max_iter must be positive, got %d", f.MaxIter)
	}
	if f.Conv <= 0 {
		return errors.Errorf("conv must be positive, got %v", f.Conv)
	}
	if f.Restarts < 0 {
		return errors.Errorf("restarts must be non-negative, got %d", f.Restarts)
	}
	if f.Jobs < 1 {
		return errors.Errorf("jobs must be positive, got %d", f.Jobs)
	}
	if conf.Data.Path == "" {
		return errors.New("data path must not be empty")
	}
	if conf.Data.Output == "" {
		return errors.New("output path must not be empty")
	}
	return nil
}

// FactorizationParams converts the configuration into factorization options.
func (conf *Config) FactorizationParams() rescal.Params {
	f := conf.Factorization
	return rescal.Params{
		rescal.Init:        f.Init,
		rescal.Proj:        f.Proj,
		rescal.MaxIter:     f.MaxIter,
		rescal.Conv:        f.Conv,
		rescal.Lmbda:       f.Lmbda,
		rescal.RandomState: f.RandomState,
	}
}
