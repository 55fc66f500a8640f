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

package client

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestCA generates a self-signed certificate and writes it to a PEM
// file in a temporary directory.
func writeTestCA(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test proxy CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	filename := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(filename, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644))
	return filename
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("no CA bundle", func(t *testing.T) {
		cl, err := NewHTTPClient("")
		require.NoError(t, err)
		assert.Equal(t, defTimeout, cl.Timeout)
		tr := cl.Transport.(*http.Transport)
		if tr.TLSClientConfig != nil {
			assert.Nil(t, tr.TLSClientConfig.RootCAs, "custom root pool installed")
		}
	})
	t.Run("valid CA bundle", func(t *testing.T) {
		cl, err := NewHTTPClient(writeTestCA(t))
		require.NoError(t, err)
		tr := cl.Transport.(*http.Transport)
		require.NotNil(t, tr.TLSClientConfig)
		assert.NotNil(t, tr.TLSClientConfig.RootCAs)
		assert.GreaterOrEqual(t, tr.TLSClientConfig.MinVersion, uint16(tls.VersionTLS12))
		def := http.DefaultTransport.(*http.Transport)
		if def.TLSClientConfig != nil {
			assert.Equal(t, def.TLSClientConfig.NextProtos, tr.TLSClientConfig.NextProtos, "existing TLS settings are kept")
		}
		assert.NotSame(t, def.TLSClientConfig, tr.TLSClientConfig)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := NewHTTPClient(filepath.Join(t.TempDir(), "nope.pem"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("not a PEM file", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "junk.pem")
		require.NoError(t, os.WriteFile(filename, []byte("hello"), 0o644))
		_, err := NewHTTPClient(filename)
		assert.ErrorIs(t, err, ErrNoCerts)
	})
}
