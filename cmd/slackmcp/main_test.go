// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/slackmcp/internal/client"
	"github.com/rusq/slackmcp/internal/config"
	"github.com/rusq/slackmcp/internal/network"
)

func Test_parseCmdLine(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, p params)
		wantErr bool
	}{
		{
			name: "version",
			args: []string{"-V"},
			check: func(t *testing.T, p params) {
				assert.True(t, p.printVersion)
			},
		},
		{
			name: "transport flags",
			args: []string{"-transport", "http", "-listen", "localhost:9000", "-permalink-api=false"},
			check: func(t *testing.T, p params) {
				assert.Equal(t, "http", p.flags.Transport)
				assert.Equal(t, "localhost:9000", p.flags.Listen)
				assert.False(t, p.flags.PermalinkAPI)
			},
		},
		{
			name:    "unknown flag",
			args:    []string{"-t", "xoxp-1"},
			wantErr: true,
		},
		{
			name:    "positional arguments",
			args:    []string{"C123"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseCmdLine(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func Test_start(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, exitOK, start([]string{"-V"}, &buf))
		assert.Equal(t, "dev (commit: unknown) built on: unknown\n", buf.String())
	})
	t.Run("print api config", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, exitOK, start([]string{"-print-api-config"}, &buf))
		l, err := network.ReadLimits(&buf)
		require.NoError(t, err)
		assert.Equal(t, network.DefLimits, l)
	})
	t.Run("no token", func(t *testing.T) {
		t.Setenv(config.EnvUserToken, "")
		t.Setenv(config.EnvBotToken, "")
		assert.Equal(t, exitConfig, start([]string{}, &bytes.Buffer{}))
	})
	t.Run("bad flag", func(t *testing.T) {
		assert.Equal(t, exitConfig, start([]string{"-nope"}, &bytes.Buffer{}))
	})
	t.Run("help", func(t *testing.T) {
		assert.Equal(t, exitOK, start([]string{"-h"}, &bytes.Buffer{}))
	})
}

func Test_exitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitConfig, exitCode(config.ErrNoToken))
	assert.Equal(t, exitConfig, exitCode(errors.Join(config.ErrInvalid, errors.New("transport"))))
	assert.Equal(t, exitRuntime, exitCode(errors.New("slack authentication failed")))
}

// fakeSlack starts the test server that responds to auth.test with body.
func fakeSlack(t *testing.T, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() config.Config {
	return config.Config{
		Token:     "xoxp-test",
		TokenKind: config.TokenUser,
		Transport: "http",
		Listen:    "127.0.0.1:0",
		Limits:    network.DefLimits,
	}
}

func Test_run(t *testing.T) {
	lg := slog.New(slog.DiscardHandler)
	t.Run("invalid token", func(t *testing.T) {
		srv := fakeSlack(t, `{"ok":false,"error":"invalid_auth"}`)
		err := run(t.Context(), lg, testConfig(), client.WithAPIURL(srv.URL+"/"))
		require.Error(t, err)
		assert.ErrorContains(t, err, "invalid_auth")
		assert.Equal(t, exitRuntime, exitCode(err))
	})
	t.Run("missing CA bundle", func(t *testing.T) {
		cfg := testConfig()
		cfg.CABundle = filepath.Join(t.TempDir(), "nope.pem")
		err := run(t.Context(), lg, cfg)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("serves until cancelled", func(t *testing.T) {
		srv := fakeSlack(t, `{"ok":true,"url":"https://example.slack.com/","team":"Example","user":"bob","team_id":"T1","user_id":"U1"}`)
		ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
		defer cancel()
		err := run(ctx, lg, testConfig(), client.WithAPIURL(srv.URL+"/"))
		assert.NoError(t, err)
	})
}

func Test_initLog(t *testing.T) {
	def := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(def)
		log.SetOutput(os.Stderr)
	})

	filename := filepath.Join(t.TempDir(), "slackmcp.log")
	lg, closeFn, err := initLog(filename, true, false)
	require.NoError(t, err)
	lg.Info("hello", "n", 1)
	closeFn()

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	_, _, err = initLog(filepath.Join(t.TempDir(), "no", "such", "dir", "x.log"), false, false)
	assert.Error(t, err)
}

func Test_initTrace(t *testing.T) {
	stop := initTrace("")
	require.NotNil(t, stop)
	stop()
}
