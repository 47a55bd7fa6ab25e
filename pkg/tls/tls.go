// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tls builds the client TLS configuration used for ssl, tls and
// wss broker URLs.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"

	"github.com/absmach/stomp/pkg/tls/verifier"
	"github.com/absmach/stomp/pkg/tls/verifier/ocsp"
)

var (
	errLoadCerts     = errors.New("failed to load client certificate")
	errLoadCA        = errors.New("failed to load broker CA")
	errAppendCA      = errors.New("failed to append broker CA to tls.Config")
	errIncompleteKey = errors.New("cert_file and key_file must be set together")
)

// Config describes the client side of a TLS connection to a broker.
type Config struct {
	CertFile   string      `yaml:"cert_file"` // Client certificate for mutual TLS
	KeyFile    string      `yaml:"key_file"`
	CAFile     string      `yaml:"ca_file"` // Broker CA, system roots when empty
	ServerName string      `yaml:"server_name"`
	SkipVerify bool        `yaml:"skip_verify"`
	OCSP       ocsp.Config `yaml:"ocsp"`
}

// Enabled reports whether any TLS setting differs from the defaults.
func (c Config) Enabled() bool {
	return c.CertFile != "" || c.KeyFile != "" || c.CAFile != "" ||
		c.ServerName != "" || c.SkipVerify || ocspEnabled(c.OCSP)
}

// Load returns the client TLS configuration. It returns nil when no
// setting is configured, which leaves the Go defaults in place.
func Load(c *Config) (*tls.Config, error) {
	if c == nil || !c.Enabled() {
		return nil, nil
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return nil, errIncompleteKey
	}

	config := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.SkipVerify,
	}

	if c.CertFile != "" {
		certificate, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, errors.Join(errLoadCerts, err)
		}
		config.Certificates = []tls.Certificate{certificate}
	}

	if c.CAFile != "" {
		rootCA, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, errors.Join(errLoadCA, err)
		}
		config.RootCAs = x509.NewCertPool()
		if !config.RootCAs.AppendCertsFromPEM(rootCA) {
			return nil, errAppendCA
		}
	}

	verifiers, err := buildVerifiers(*c)
	if err != nil {
		return nil, err
	}
	if len(verifiers) > 0 {
		config.VerifyPeerCertificate = verifier.NewValidator(verifiers)
	}
	return config, nil
}

// SecurityStatus describes a TLS configuration for logs.
func SecurityStatus(c *tls.Config) string {
	if c == nil {
		return "default TLS"
	}
	ret := "TLS"
	if c.InsecureSkipVerify {
		ret += " without broker verification"
	}
	if len(c.Certificates) > 0 {
		ret += " with client certificate"
	}
	if c.VerifyPeerCertificate != nil {
		ret += " and revocation checks"
	}
	return ret
}

func buildVerifiers(cfg Config) ([]verifier.Verifier, error) {
	if !ocspEnabled(cfg.OCSP) {
		return nil, nil
	}
	vm, err := ocsp.New(cfg.OCSP)
	if err != nil {
		return nil, err
	}
	return []verifier.Verifier{vm}, nil
}

func ocspEnabled(cfg ocsp.Config) bool {
	return cfg.Depth > 0 || cfg.ResponderURL != ""
}
