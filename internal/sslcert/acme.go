package sslcert

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/forgecli/forge/internal/models"
)

// acmeUser implements the registration.User interface
type acmeUser struct {
	Email        string                 `json:"email"`
	Registration *registration.Resource `json:"registration"`
	key          crypto.PrivateKey
}

func (u *acmeUser) GetEmail() string                        { return u.Email }
func (u *acmeUser) GetRegistration() *registration.Resource { return u.Registration }
func (u *acmeUser) GetPrivateKey() crypto.PrivateKey        { return u.key }

// Issuer obtains certificates directly over ACME HTTP-01. It is the
// fallback when certbot is not installed: port 80 must be free or
// nginx must be proxying the challenge path elsewhere.
type Issuer struct {
	dataDir string
	staging bool
}

// NewIssuer creates a standalone ACME issuer storing accounts and
// certificates under dataDir.
func NewIssuer(dataDir string, staging bool) *Issuer {
	return &Issuer{dataDir: dataDir, staging: staging}
}

func (i *Issuer) directoryURL() string {
	if i.staging {
		return lego.LEDirectoryStaging
	}
	return lego.LEDirectoryProduction
}

func (i *Issuer) accountDir() string { return filepath.Join(i.dataDir, "acme-accounts") }

// CertDir is where issued key material for a domain lives.
func (i *Issuer) CertDir(domain string) string {
	return filepath.Join(i.dataDir, "certs", domain)
}

func (i *Issuer) loadOrCreateUser(email string) (*acmeUser, error) {
	if err := os.MkdirAll(i.accountDir(), 0700); err != nil {
		return nil, fmt.Errorf("failed to create account directory: %w", err)
	}

	accountFile := filepath.Join(i.accountDir(), email+".json")
	keyFile := filepath.Join(i.accountDir(), email+".key")

	if _, err := os.Stat(accountFile); err == nil {
		data, err := os.ReadFile(accountFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read account file: %w", err)
		}
		var user acmeUser
		if err := json.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("failed to parse account: %w", err)
		}
		keyData, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("failed to decode private key")
		}
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		user.key = key
		return &user, nil
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	user := &acmeUser{Email: email, key: privateKey}

	keyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		return nil, fmt.Errorf("failed to save private key: %w", err)
	}
	if err := i.saveUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (i *Issuer) saveUser(user *acmeUser) error {
	accountFile := filepath.Join(i.accountDir(), user.Email+".json")
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := os.WriteFile(accountFile, data, 0600); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Issue obtains a certificate for the domains (first entry is the
// primary) and writes fullchain.pem, privkey.pem and chain.pem under
// CertDir(domain).
func (i *Issuer) Issue(domains []string, email string) (models.CertInfo, error) {
	if len(domains) == 0 {
		return models.CertInfo{}, fmt.Errorf("at least one domain is required")
	}
	if email == "" {
		return models.CertInfo{}, fmt.Errorf("email is required for ACME registration")
	}

	user, err := i.loadOrCreateUser(email)
	if err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to load ACME user: %w", err)
	}

	cfg := lego.NewConfig(user)
	cfg.CADirURL = i.directoryURL()
	cfg.Certificate.KeyType = certcrypto.EC256

	client, err := lego.NewClient(cfg)
	if err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to create ACME client: %w", err)
	}

	if err := client.Challenge.SetHTTP01Provider(http01.NewProviderServer("", "80")); err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to setup HTTP-01 challenge: %w", err)
	}

	if user.Registration == nil {
		reg, err := client.Registration.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
		if err != nil {
			return models.CertInfo{}, fmt.Errorf("failed to register ACME account: %w", err)
		}
		user.Registration = reg
		if err := i.saveUser(user); err != nil {
			return models.CertInfo{}, fmt.Errorf("failed to save ACME registration: %w", err)
		}
	}

	certs, err := client.Certificate.Obtain(certificate.ObtainRequest{
		Domains: domains,
		Bundle:  true,
	})
	if err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to obtain certificate: %w", err)
	}

	domain := domains[0]
	certDir := i.CertDir(domain)
	if err := os.MkdirAll(certDir, 0700); err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(certDir, "fullchain.pem"), certs.Certificate, 0644); err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to save certificate: %w", err)
	}
	if err := os.WriteFile(filepath.Join(certDir, "privkey.pem"), certs.PrivateKey, 0600); err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to save private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(certDir, "chain.pem"), certs.IssuerCertificate, 0644); err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to save chain: %w", err)
	}

	block, _ := pem.Decode(certs.Certificate)
	if block == nil {
		return models.CertInfo{}, fmt.Errorf("failed to decode issued certificate")
	}
	parsed, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return models.CertInfo{}, fmt.Errorf("failed to parse issued certificate: %w", err)
	}

	return models.CertInfo{
		Domain:        domain,
		Issuer:        parsed.Issuer.CommonName,
		NotAfter:      parsed.NotAfter,
		DaysRemaining: daysUntil(parsed.NotAfter),
	}, nil
}
