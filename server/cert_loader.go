package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// certCheckInterval limits how often the certificate files are stat'ed.
const certCheckInterval = time.Minute

// CertLoader serves the listener's TLS certificate and picks up renewed
// certificate files without a restart. It checks the file modification times at
// most once per certCheckInterval, during a handshake.
type CertLoader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu        sync.RWMutex
	cert      *tls.Certificate
	loadedAt  time.Time
	lastCheck time.Time
}

// NewCertLoader creates a new CertLoader. It fails if the pair cannot be loaded.
func NewCertLoader(certFile, keyFile string, logger *slog.Logger) (*CertLoader, error) {
	loader := &CertLoader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger,
	}

	if err := loader.reload(); err != nil {
		return nil, err
	}
	loader.lastCheck = time.Now()

	return loader, nil
}

// GetCertificate is a callback for tls.Config.GetCertificate. A certificate that
// fails to reload is logged and the previous one is kept.
func (l *CertLoader) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	l.mu.RLock()
	if time.Since(l.lastCheck) < certCheckInterval {
		defer l.mu.RUnlock()
		return l.cert, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another handshake may have checked while we waited for the lock.
	if time.Since(l.lastCheck) < certCheckInterval {
		return l.cert, nil
	}
	l.lastCheck = time.Now()

	changed, err := l.changed()
	if err != nil {
		l.logger.Error("failed to stat certificate files", "error", err)
		return l.cert, nil
	}
	if changed {
		if err := l.reload(); err != nil {
			l.logger.Error("failed to reload certificate", "error", err)
		}
	}
	return l.cert, nil
}

func (l *CertLoader) changed() (bool, error) {
	for _, path := range []string{l.certFile, l.keyFile} {
		stat, err := os.Stat(path)
		if err != nil {
			return false, err
		}
		if stat.ModTime().After(l.loadedAt) {
			return true, nil
		}
	}
	return false, nil
}

func (l *CertLoader) reload() error {
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load key pair: %w", err)
	}

	l.cert = &cert
	l.loadedAt = time.Now()
	l.logger.Info("loaded tls certificate", "cert", l.certFile, "key", l.keyFile)
	return nil
}
