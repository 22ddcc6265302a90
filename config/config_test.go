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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescal-io/rescal/rescal"
)

func TestGetDefaultConfig(t *testing.T) {
	conf := GetDefaultConfig()
	assert.NoError(t, conf.Validate())
	assert.Equal(t, 10, conf.Factorization.Rank)
	assert.Equal(t, rescal.InitNVecs, conf.Factorization.Init)
	assert.True(t, conf.Factorization.Proj)
	assert.Equal(t, 500, conf.Factorization.MaxIter)
	assert.Equal(t, 1e-5, conf.Factorization.Conv)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[data]
path = "/data/kinships"
output = "embeddings.csv"

[factorization]
rank = 5
lmbda = 0.5
init = "random"
max_iter = 200
restarts = 3
jobs = 2
random_state = 42
`), 0644))
	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/kinships", conf.Data.Path)
	assert.Equal(t, "embeddings.csv", conf.Data.Output)
	assert.Equal(t, 5, conf.Factorization.Rank)
	assert.Equal(t, 0.5, conf.Factorization.Lmbda)
	assert.Equal(t, rescal.InitRandom, conf.Factorization.Init)
	assert.Equal(t, 200, conf.Factorization.MaxIter)
	assert.Equal(t, 3, conf.Factorization.Restarts)
	assert.Equal(t, 2, conf.Factorization.Jobs)
	assert.Equal(t, int64(42), conf.Factorization.RandomState)
	// unset options keep their defaults
	assert.Equal(t, 1e-5, conf.Factorization.Conv)
	assert.True(t, conf.Factorization.Proj)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[factorization]
init = "qr"
`), 0644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "init")
}

func TestValidate(t *testing.T) {
	valid := GetDefaultConfig()
	assert.NoError(t, valid.Validate())

	conf := GetDefaultConfig()
	conf.Factorization.Rank = 0
	assert.Error(t, conf.Validate())

	conf = GetDefaultConfig()
	conf.Factorization.Lmbda = -1
	assert.Error(t, conf.Validate())

	conf = GetDefaultConfig()
	conf.Factorization.Conv = 0
	assert.Error(t, conf.Validate())

	conf = GetDefaultConfig()
	conf.Factorization.Jobs = 0
	assert.Error(t, conf.Validate())

	conf = GetDefaultConfig()
	conf.Data.Path = ""
	assert.Error(t, conf.Validate())
}

func TestFactorizationParams(t *testing.T) {
	conf := GetDefaultConfig()
	params := conf.FactorizationParams()
	assert.NoError(t, params.Validate())
	assert.Equal(t, rescal.InitNVecs, params.GetString(rescal.Init, ""))
	assert.Equal(t, 500, params.GetInt(rescal.MaxIter, 0))
}
