// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(v *Validator)
		wantErr bool
	}{
		{"url http", func(v *Validator) { v.URL("u", "http://example.com", []string{"http", "https"}) }, false},
		{"url with port and path", func(v *Validator) { v.URL("u", "https://example.com:8443/api", nil) }, false},
		{"url empty", func(v *Validator) { v.URL("u", "", nil) }, true},
		{"url no host", func(v *Validator) { v.URL("u", "http://", nil) }, true},
		{"url no scheme", func(v *Validator) { v.URL("u", "example.com", []string{"http"}) }, true},
		{"url bad scheme", func(v *Validator) { v.URL("u", "ftp://example.com", []string{"http", "https"}) }, true},

		{"not empty", func(v *Validator) { v.NotEmpty("s", "value") }, false},
		{"empty", func(v *Validator) { v.NotEmpty("s", "") }, true},
		{"whitespace", func(v *Validator) { v.NotEmpty("s", " \t ") }, true},

		{"one of", func(v *Validator) { v.OneOf("b", "redis", []string{"file", "redis"}) }, false},
		{"not one of", func(v *Validator) { v.OneOf("b", "etcd", []string{"file", "redis"}) }, true},
		{"one of is case sensitive", func(v *Validator) { v.OneOf("b", "Redis", []string{"redis"}) }, true},

		{"positive", func(v *Validator) { v.Positive("n", 1) }, false},
		{"zero not positive", func(v *Validator) { v.Positive("n", 0) }, true},
		{"non negative zero", func(v *Validator) { v.NonNegative("n", 0) }, false},
		{"negative", func(v *Validator) { v.NonNegative("n", -1) }, true},

		{"listen all interfaces", func(v *Validator) { v.ListenAddr("l", ":8088") }, false},
		{"listen loopback", func(v *Validator) { v.ListenAddr("l", "127.0.0.1:8088") }, false},
		{"listen ipv6", func(v *Validator) { v.ListenAddr("l", "[::1]:8088") }, false},
		{"listen missing port", func(v *Validator) { v.ListenAddr("l", "localhost") }, true},
		{"listen port zero", func(v *Validator) { v.ListenAddr("l", ":0") }, true},
		{"listen port too large", func(v *Validator) { v.ListenAddr("l", ":65536") }, true},
		{"listen port not numeric", func(v *Validator) { v.ListenAddr("l", ":http") }, true},

		{"duration at minimum", func(v *Validator) { v.MinDuration("d", time.Second, time.Second) }, false},
		{"duration below minimum", func(v *Validator) { v.MinDuration("d", time.Millisecond, time.Second) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			tt.apply(v)
			if tt.wantErr {
				assert.Error(t, v.Err())
			} else {
				assert.NoError(t, v.Err())
			}
		})
	}
}

func TestValidator_AccumulatesInOrder(t *testing.T) {
	v := New()
	v.NotEmpty("ffmpeg.bin", "")
	v.Positive("locator.burst", 0)
	v.OneOf("store.backend", "etcd", []string{"file"})

	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"ffmpeg.bin", "locator.burst", "store.backend"}, verr.Fields())
	assert.Len(t, verr.Errors(), 3)
	assert.Contains(t, err.Error(), "validation failed for ffmpeg.bin")
	assert.Contains(t, err.Error(), "; ")
}

func TestValidator_ErrCopiesErrors(t *testing.T) {
	v := New()
	v.AddError("a", "bad", 1)
	err := v.Err()
	v.AddError("b", "bad", 2)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"a"}, verr.Fields())
}

func TestValidator_ZeroValue(t *testing.T) {
	var v Validator
	assert.NoError(t, v.Err())
	v.NotEmpty("x", "")
	assert.Error(t, v.Err())
}

func TestParseLogLevel(t *testing.T) {
	for _, in := range []string{"debug", "INFO", " warn ", "error", "trace"} {
		_, err := ParseLogLevel(in)
		require.NoError(t, err, in)
	}

	got, err := ParseLogLevel("Info")
	require.NoError(t, err)
	assert.Equal(t, "info", got)

	_, err = ParseLogLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
	_, err = ParseLogLevel("")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}
