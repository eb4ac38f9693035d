//go:build e2e

package accounts_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/app"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common helpers for the accounts service end-to-end tests: a Postgres
 * container, the service running in-process against it, and a reader for
 * the emails the dev mail driver writes to disk.
 */

const (
	testIssuer   = "accounts-e2e"
	testPassword = "correct-horse"
)

var (
	verifyLink = regexp.MustCompile(`verify-email\?token=([A-Za-z0-9_-]+)`)
	resetLink  = regexp.MustCompile(`reset-password\?token=([A-Za-z0-9_-]+)`)
	mfaCode    = regexp.MustCompile(`font-weight:bold">([0-9]+)</p>`)
)

// env is one running service and what the tests need to drive it.
type env struct {
	cfg    app.Config
	client *accountsdk.Client
	mail   *mailbox
}

// setupAccounts starts Postgres, then the service against it, and returns
// a client for the service.
func setupAccounts(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("accounts"),
		tcpostgres.WithUsername("accounts"),
		tcpostgres.WithPassword("accounts"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := app.Config{
		Env:                  "test",
		LogLevel:             "warn",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  5 * time.Second,
		HousekeepingInterval: time.Hour,
		MetricsEnabled:       true,
		Issuer:               testIssuer,
		Algorithm:            "ES256",
		NumKeys:              1,
		PepperFile:           filepath.Join(dir, "pepper"),
		DatabaseDriver:       "postgres",
		DatabaseURL:          dsn,
		VerificationURL:      "http://localhost:3000/verify-email",
		TokenValidity:        24 * time.Hour,
		CodeTTL:              10 * time.Minute,
		CodeDigits:           6,
		MailDriver:           "dev",
		MailDevDir:           filepath.Join(dir, "mail"),
		MailSender:           "no-reply@example.com",
		MailAppName:          "Accounts E2E",
	}
	require.NoError(t, cfg.Validate())

	application, err := app.New(cfg)
	require.NoError(t, err)
	application.Start()

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		if err := application.Shutdown(); err != nil {
			t.Logf("failed to shut down: %v", err)
		}
	})

	return &env{
		cfg:    cfg,
		client: accountsdk.NewClient(srv.URL),
		mail:   &mailbox{dir: cfg.MailDevDir, seen: map[string]bool{}},
	}
}

// registerVerified registers email and follows the emailed verification
// link.
func (e *env) registerVerified(t *testing.T, email, first, last string) {
	t.Helper()
	ctx := t.Context()

	_, err := e.client.Register(ctx, accountsdk.RegisterRequest{
		Email: email, Password: testPassword, FirstName: first, LastName: last,
	})
	require.NoError(t, err)

	_, err = e.client.VerifyEmail(ctx, e.mail.next(t, email, verifyLink))
	require.NoError(t, err)
}

// admin registers email, promotes it to ADMIN and logs it in.
func (e *env) admin(t *testing.T, email string) *accountsdk.Session {
	t.Helper()

	e.registerVerified(t, email, "Admin", "User")
	_, err := app.Promote(t.Context(), e.cfg, email)
	require.NoError(t, err)

	session, err := e.client.Authenticate(t.Context(), email, testPassword)
	require.NoError(t, err)
	return session
}

// mailbox reads what the dev mail driver wrote to dir, oldest first,
// handing out each matching email once.
type mailbox struct {
	dir  string
	mu   sync.Mutex
	seen map[string]bool
}

func (m *mailbox) next(t *testing.T, to string, pattern *regexp.Regexp) string {
	t.Helper()

	recipient := strings.ReplaceAll(strings.ToLower(to), "@", "_at_")
	var found string
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()

		files, _ := filepath.Glob(filepath.Join(m.dir, "*.html"))
		sort.Strings(files)
		for _, f := range files {
			if m.seen[f] || !strings.Contains(filepath.Base(f), recipient) {
				continue
			}
			body, err := os.ReadFile(f)
			if err != nil {
				continue
			}
			if match := pattern.FindSubmatch(body); match != nil {
				m.seen[f] = true
				found = string(match[1])
				return true
			}
		}
		return false
	}, 10*time.Second, 50*time.Millisecond, fmt.Sprintf("no email for %s matching %s", to, pattern))
	return found
}

// count returns how many emails to has received so far whose subject tag
// contains tag.
func (m *mailbox) count(to, tag string) int {
	recipient := strings.ReplaceAll(strings.ToLower(to), "@", "_at_")
	files, _ := filepath.Glob(filepath.Join(m.dir, "*"+tag+"*"+recipient+".json"))
	return len(files)
}
