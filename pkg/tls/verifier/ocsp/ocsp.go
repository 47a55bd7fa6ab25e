// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ocsp checks the broker certificate chain against OCSP responders.
package ocsp

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/absmach/stomp/pkg/tls/verifier"
	"golang.org/x/crypto/ocsp"
)

// DefaultTimeout bounds each responder and issuer request.
const DefaultTimeout = 5 * time.Second

var (
	errParseIssuerCrt       = errors.New("failed to parse issuer certificate")
	errCreateOCSPReq        = errors.New("failed to create OCSP request")
	errCreateOCSPHTTPReq    = errors.New("failed to create OCSP HTTP request")
	errOCSPReq              = errors.New("OCSP request failed")
	errOCSPReadResp         = errors.New("failed to read OCSP response")
	errParseOCSPRespForCert = errors.New("failed to parse OCSP response for certificate")
	errIssuerCert           = errors.New("issuer certificate neither in the chain nor in AIA")
	errNoOCSPURL            = errors.New("OCSP responder URL neither configured nor in AIA")
	errOCSPServerFailed     = errors.New("OCSP server failed")
	errOCSPUnknown          = errors.New("OCSP status unknown")
	errCertRevoked          = errors.New("certificate revoked")
	errRetrieveIssuerCrt    = errors.New("failed to retrieve issuer certificate")
	errIssuerCrtPEM         = errors.New("failed to decode issuer certificate PEM")

	errParseCert  = errors.New("failed to parse certificate")
	errBrokerCert = errors.New("broker certificate not received")
)

// Config configures OCSP checks.
type Config struct {
	// Depth limits how many certificates of a raw chain are checked, 0 = all.
	Depth uint `yaml:"depth"`
	// ResponderURL overrides the responder named in the certificates.
	ResponderURL string        `yaml:"responder_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type ocspVerifier struct {
	Config
	client *http.Client
}

var _ verifier.Verifier = (*ocspVerifier)(nil)

// New creates an OCSP verifier.
func New(cfg Config) (verifier.Verifier, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &ocspVerifier{
		Config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (v *ocspVerifier) VerifyPeerCertificate(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
	switch {
	case len(verifiedChains) > 0:
		return v.verifyChains(verifiedChains)
	case len(rawCerts) > 0:
		certs, err := parseCertificates(rawCerts)
		if err != nil {
			return err
		}
		return v.verifyRaw(certs)
	default:
		return errBrokerCert
	}
}

// verifyRaw checks an unverified chain, as presented by the broker.
func (v *ocspVerifier) verifyRaw(certs []*x509.Certificate) error {
	for i, cert := range certs {
		issuer := findIssuer(cert.Issuer, certs)
		if err := v.check(cert, issuer); err != nil {
			return err
		}
		if i+1 == int(v.Depth) {
			return nil
		}
	}
	return nil
}

func (v *ocspVerifier) verifyChains(chains [][]*x509.Certificate) error {
	for _, chain := range chains {
		for i, cert := range chain {
			issuer := cert
			if i+1 < len(chain) {
				issuer = chain[i+1]
			}
			if err := v.check(cert, issuer); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *ocspVerifier) check(cert, issuer *x509.Certificate) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.Timeout)
	defer cancel()

	var err error
	switch {
	case isRootCA(cert):
		issuer = cert
	case issuer == nil:
		if len(cert.IssuingCertificateURL) == 0 {
			return fmt.Errorf("%w: common name %s, serial number %x", errIssuerCert, cert.Subject.CommonName, cert.SerialNumber)
		}
		issuer, err = v.fetchIssuer(ctx, cert.IssuingCertificateURL[0])
		if err != nil {
			return err
		}
	}

	req, err := ocsp.CreateRequest(cert, issuer, &ocsp.RequestOptions{Hash: crypto.SHA256})
	if err != nil {
		return errors.Join(errCreateOCSPReq, err)
	}

	responder := v.ResponderURL
	if responder == "" {
		if len(cert.OCSPServer) == 0 {
			return fmt.Errorf("%w: common name %s, serial number %x", errNoOCSPURL, cert.Subject.CommonName, cert.SerialNumber)
		}
		responder = cert.OCSPServer[0]
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, responder, bytes.NewReader(req))
	if err != nil {
		return errors.Join(errCreateOCSPHTTPReq, err)
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")
	httpReq.Header.Set("Accept", "application/ocsp-response")

	httpResp, err := v.client.Do(httpReq)
	if err != nil {
		return errors.Join(errOCSPReq, err)
	}
	defer httpResp.Body.Close()
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Join(errOCSPReadResp, err)
	}

	resp, err := ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return errors.Join(errParseOCSPRespForCert, err)
	}
	switch resp.Status {
	case ocsp.Good:
		return nil
	case ocsp.Revoked:
		return fmt.Errorf("%w: common name %s, serial number %x, revoked at %v", errCertRevoked, cert.Subject.CommonName, cert.SerialNumber, resp.RevokedAt)
	case ocsp.ServerFailed:
		return errOCSPServerFailed
	default:
		return errOCSPUnknown
	}
}

func (v *ocspVerifier) fetchIssuer(ctx context.Context, url string) (*x509.Certificate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Join(errRetrieveIssuerCrt, err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, errors.Join(errRetrieveIssuerCrt, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(errRetrieveIssuerCrt, err)
	}

	// AIA issuers are served as DER or PEM.
	der := body
	if block, _ := pem.Decode(body); block != nil {
		der = block.Bytes
	} else if bytes.HasPrefix(bytes.TrimSpace(body), []byte("-----BEGIN")) {
		return nil, errIssuerCrtPEM
	}

	issuer, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Join(errParseIssuerCrt, err)
	}
	return issuer, nil
}

func findIssuer(subject pkix.Name, certs []*x509.Certificate) *x509.Certificate {
	for _, cert := range certs {
		if cert.Subject.SerialNumber != "" && subject.SerialNumber != "" {
			if cert.Subject.SerialNumber == subject.SerialNumber {
				return cert
			}
			continue
		}
		if cert.Subject.String() == subject.String() {
			return cert
		}
	}
	return nil
}

func isRootCA(cert *x509.Certificate) bool {
	if !cert.IsCA {
		return false
	}
	if len(cert.AuthorityKeyId) > 0 && len(cert.SubjectKeyId) > 0 && bytes.Equal(cert.AuthorityKeyId, cert.SubjectKeyId) {
		return true
	}
	return cert.Issuer.String() == cert.Subject.String()
}

func parseCertificates(rawCerts [][]byte) ([]*x509.Certificate, error) {
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, errors.Join(errParseCert, err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}
