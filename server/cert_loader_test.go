package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCert writes a self-signed certificate for commonName and returns the
// cert and key paths.
func writeCert(t *testing.T, dir, commonName string) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certPath, keyPath
}

func commonName(t *testing.T, cert *tls.Certificate) string {
	t.Helper()
	require.NotNil(t, cert)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed.Subject.CommonName
}

func TestCertLoader(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCert(t, dir, "first")

	loader, err := NewCertLoader(certPath, keyPath, testLogger())
	require.NoError(t, err)

	cert, err := loader.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Equal(t, "first", commonName(t, cert))

	// Renewed files are ignored until the check interval has passed.
	writeCert(t, dir, "second")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(certPath, future, future))
	require.NoError(t, os.Chtimes(keyPath, future, future))

	cert, err = loader.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Equal(t, "first", commonName(t, cert))

	loader.lastCheck = time.Now().Add(-2 * certCheckInterval)
	cert, err = loader.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Equal(t, "second", commonName(t, cert))
}

func TestCertLoader_KeepsCertOnBrokenRenewal(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCert(t, dir, "good")

	loader, err := NewCertLoader(certPath, keyPath, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(certPath, []byte("garbage"), 0600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(certPath, future, future))
	loader.lastCheck = time.Time{}

	cert, err := loader.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Equal(t, "good", commonName(t, cert))
}

func TestNewCertLoader_MissingFiles(t *testing.T) {
	_, err := NewCertLoader("/nonexistent/cert.pem", "/nonexistent/key.pem", testLogger())
	assert.Error(t, err)
}
