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

// Package dataset loads adjacency tensors from plain text files and persists
// factor matrices. A dataset directory contains an entity-ids file with one
// entity per line and, for every relation, a pair of <relation>-rows and
// <relation>-cols files holding the coordinates of the nonzero adjacency
// entries.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/mat"

	"github.com/rescal-io/rescal/rescal"
	"github.com/rescal-io/rescal/tensor"
)

var _ rescal.Slice = (*tensor.Matrix)(nil)

const (
	entityFile = "entity-ids"
	rowSuffix  = "-rows"
	colSuffix  = "-cols"
)

// LoadDirectory reads every relation slice in dir. Relations are ordered by
// file name so that repeated loads produce the same slice order.
func LoadDirectory(dir string) ([]*tensor.Matrix, error) {
	n, err := countEntities(filepath.Join(dir, entityFile))
	if err != nil {
		return nil, errors.Trace(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var relations []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), rowSuffix) {
			relations = append(relations, strings.TrimSuffix(entry.Name(), rowSuffix))
		}
	}
	sort.Strings(relations)
	if len(relations) == 0 {
		return nil, errors.Errorf("no relation files found in %s", dir)
	}
	bar := progressbar.Default(int64(len(relations)), "load slices")
	slices := make([]*tensor.Matrix, 0, len(relations))
	for _, relation := range relations {
		rows, err := readIndexFile(filepath.Join(dir, relation+rowSuffix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		cols, err := readIndexFile(filepath.Join(dir, relation+colSuffix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		if len(rows) != len(cols) {
			return nil, errors.Errorf("relation %s: %d row indices but %d column indices",
				relation, len(rows), len(cols))
		}
		m, err := tensor.NewCOO(n, rows, cols, nil)
		if err != nil {
			return nil, errors.Annotatef(err, "relation %s", relation)
		}
		slices = append(slices, m)
		_ = bar.Add(1)
	}
	return slices, nil
}

// Slices adapts loaded matrices to the factorization's slice contract.
func Slices(matrices []*tensor.Matrix) []rescal.Slice {
	slices := make([]rescal.Slice, len(matrices))
	for i, m := range matrices {
		slices[i] = m
	}
	return slices
}

// countEntities returns the number of lines in the entity-ids file, which
// defines the shared entity dimension of all slices.
func countEntities(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer file.Close()
	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		count++
	}
	if err = scanner.Err(); err != nil {
		return 0, errors.Annotate(err, path)
	}
	if count == 0 {
		return 0, errors.Errorf("%s is empty", path)
	}
	return count, nil
}

func readIndexFile(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	var indices []int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		index, err := strconv.Atoi(line)
		if err != nil {
			return nil, errors.Annotate(err, path)
		}
		indices = append(indices, index)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Annotate(err, path)
	}
	return indices, nil
}

// SaveDense writes a dense matrix as delimited text, one row per line with
// space-separated scientific notation.
func SaveDense(path string, m *mat.Dense) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	writer := bufio.NewWriter(file)
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				if _, err = writer.WriteString(" "); err != nil {
					return errors.Trace(err)
				}
			}
			if _, err = fmt.Fprintf(writer, "%.18e", m.At(i, j)); err != nil {
				return errors.Trace(err)
			}
		}
		if _, err = writer.WriteString("\n"); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(writer.Flush())
}
