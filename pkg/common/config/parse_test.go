// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type testConfig struct {
	Name   string `yaml:"name" validate:"nonzero"`
	Period int    `yaml:"period" validate:"min=1"`
	Extra  string `yaml:"extra"`
}

type ParseTestSuite struct {
	suite.Suite
	dir string
}

func (suite *ParseTestSuite) SetupTest() {
	dir, err := ioutil.TempDir("", "config")
	suite.NoError(err)
	suite.dir = dir
}

func (suite *ParseTestSuite) TearDownTest() {
	os.RemoveAll(suite.dir)
}

func (suite *ParseTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.NoError(ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParse(t *testing.T) {
	suite.Run(t, new(ParseTestSuite))
}

func (suite *ParseTestSuite) TestParseMergesFilesInOrder() {
	base := suite.write("base.yaml", "name: base\nperiod: 5\nextra: keep\n")
	override := suite.write("override.yaml", "period: 10\n")

	var cfg testConfig
	suite.NoError(Parse(&cfg, base, override))
	suite.Equal("base", cfg.Name)
	suite.Equal(10, cfg.Period)
	suite.Equal("keep", cfg.Extra)
}

func (suite *ParseTestSuite) TestParseValidationError() {
	path := suite.write("bad.yaml", "period: 0\n")

	var cfg testConfig
	err := Parse(&cfg, path)
	suite.Error(err)
	verr, ok := err.(ValidationError)
	suite.True(ok)
	suite.Error(verr.ErrForField("Name"))
	suite.Error(verr.ErrForField("Period"))
	suite.Contains(verr.Error(), "validation failed")
}

func (suite *ParseTestSuite) TestParseNoFiles() {
	var cfg testConfig
	suite.Error(Parse(&cfg))
}

func (suite *ParseTestSuite) TestParseMissingFile() {
	var cfg testConfig
	suite.Error(Parse(&cfg, filepath.Join(suite.dir, "missing.yaml")))
}
