package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/campushub/notifier/internal/security/secretbox"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

const minimalYAML = `
smtp:
  host: smtp.test
accounts:
  - address: a@x
    password: pw
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SMTP.Port != 465 || cfg.SMTP.TLS != "ssl" {
		t.Fatalf("smtp defaults wrong: port=%d tls=%s", cfg.SMTP.Port, cfg.SMTP.TLS)
	}
	if cfg.Queue.Workers != 3 || cfg.Queue.Capacity != 100 {
		t.Fatalf("queue defaults wrong: %+v", cfg.Queue)
	}
	if cfg.Verify.CodeTTL.Std() != 15*time.Minute {
		t.Fatalf("ttl default wrong: %v", cfg.Verify.CodeTTL)
	}
	if cfg.Accounts[0].DailyLimit != 50 || cfg.Accounts[0].Priority != 1 {
		t.Fatalf("account defaults wrong: %+v", cfg.Accounts[0])
	}
}

func TestLoad_ParsesDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
smtp:
  host: smtp.test
accounts:
  - address: a@x
    password: pw
verify:
  code_ttl: 10m
  send_timeout: 90s
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Verify.CodeTTL.Std() != 10*time.Minute {
		t.Fatalf("code_ttl: got %v", cfg.Verify.CodeTTL.Std())
	}
	if cfg.Verify.SendTimeout.Std() != 90*time.Second {
		t.Fatalf("send_timeout: got %v", cfg.Verify.SendTimeout.Std())
	}
}

func TestLoad_SortsAccountsByPriority(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
smtp:
  host: smtp.test
accounts:
  - address: third@x
    password: pw
    priority: 9
  - address: first@x
    password: pw
    priority: 1
  - address: second@x
    password: pw
    priority: 5
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"first@x", "second@x", "third@x"}
	for i, w := range want {
		if cfg.Accounts[i].Address != w {
			t.Fatalf("rank %d: got %s want %s", i, cfg.Accounts[i].Address, w)
		}
	}
}

func TestLoad_MissingHost(t *testing.T) {
	_, err := Load(writeConfig(t, `
accounts:
  - address: a@x
    password: pw
`))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoad_NoAccounts(t *testing.T) {
	_, err := Load(writeConfig(t, `
smtp:
  host: smtp.test
`))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoad_AccountWithoutCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, `
smtp:
  host: smtp.test
accounts:
  - address: a@x
`))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoad_BadTLSMode(t *testing.T) {
	_, err := Load(writeConfig(t, `
smtp:
  host: smtp.test
  tls: tlsv9
accounts:
  - address: a@x
    password: pw
`))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.override")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("SMTP_TLS", "starttls")
	t.Setenv("VERIFY_CODE_TTL", "5m")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SMTP.Host != "smtp.override" || cfg.SMTP.Port != 587 || cfg.SMTP.TLS != "starttls" {
		t.Fatalf("env overrides lost: %+v", cfg.SMTP)
	}
	if cfg.Verify.CodeTTL.Std() != 5*time.Minute {
		t.Fatalf("duration override lost: %v", cfg.Verify.CodeTTL)
	}
}

func TestLoad_DecryptsAccountPassword(t *testing.T) {
	key := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	enc, err := secretbox.EncryptWithKey(key, "s3cret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	t.Setenv("NOTIFIER_MASTER_KEY", key)
	cfg, err := Load(writeConfig(t, `
smtp:
  host: smtp.test
accounts:
  - address: a@x
    password_enc: "`+enc+`"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Accounts[0].Password != "s3cret" {
		t.Fatalf("password not decrypted: %q", cfg.Accounts[0].Password)
	}
}

func TestLoad_EncryptedPasswordWithoutKey(t *testing.T) {
	_, err := Load(writeConfig(t, `
smtp:
  host: smtp.test
accounts:
  - address: a@x
    password_enc: "bm9uY2U=|Y2lwaGVy"
`))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
