// SPDX-License-Identifier: MIT

package config

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseCandidates(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace", "  a , b ,c  ", []string{"a", "b", "c"}},
		{"fullwidth comma", "a，b", []string{"a", "b"}},
		{"ideographic comma", "a、b", []string{"a", "b"}},
		{"fullwidth letters", "ａｂｃ,d", []string{"abc", "d"}},
		{"empties dropped", ",a,,b,", []string{"a", "b"}},
		{"duplicates dropped", "a,b,a", []string{"a", "b"}},
		{"empty", "", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseCandidates(tc.in))
		})
	}
}

func TestCandidateList_YAMLForms(t *testing.T) {
	var scalar struct {
		C CandidateList `yaml:"c"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`c: "x, y"`), &scalar))
	assert.Equal(t, CandidateList{"x", "y"}, scalar.C)

	var seq struct {
		C CandidateList `yaml:"c"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("c:\n  - x\n  - ' y '\n  - x\n"), &seq))
	assert.Equal(t, CandidateList{"x", "y"}, seq.C)

	var bad struct {
		C CandidateList `yaml:"c"`
	}
	require.Error(t, yaml.Unmarshal([]byte("c:\n  k: v\n"), &bad))
}

func TestCandidateList_TOMLForms(t *testing.T) {
	var scalar struct {
		C CandidateList `toml:"c"`
	}
	_, err := toml.Decode(`c = "x，y"`, &scalar)
	require.NoError(t, err)
	assert.Equal(t, CandidateList{"x", "y"}, scalar.C)

	var seq struct {
		C CandidateList `toml:"c"`
	}
	_, err = toml.Decode(`c = ["x", "y"]`, &seq)
	require.NoError(t, err)
	assert.Equal(t, CandidateList{"x", "y"}, seq.C)

	var bad struct {
		C CandidateList `toml:"c"`
	}
	_, err = toml.Decode(`c = [1, 2]`, &bad)
	require.Error(t, err)
}
