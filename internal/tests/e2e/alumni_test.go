//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alumni-connect/apiserver/config"
	"github.com/alumni-connect/apiserver/internal/db"
	"github.com/alumni-connect/apiserver/internal/logging"
	"github.com/alumni-connect/apiserver/internal/server"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	serverPort = 18080
)

var baseURL = fmt.Sprintf("http://localhost:%d/api", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setEnv()

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := waitForHealth(ctx, baseURL+"/health"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestApplicationLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	alumnus := register(t, fmt.Sprintf("alumnus_%d@example.com", suffix), "alumni")
	student := register(t, fmt.Sprintf("student_%d@example.com", suffix), "student")

	var opp struct {
		ID       int64 `json:"id"`
		PostedBy int64 `json:"posted_by"`
	}
	status := do(t, http.MethodPost, "/opportunities", alumnus.Token, map[string]any{
		"title":       "Backend Engineer",
		"description": "Work on the alumni platform",
		"company":     "Acme",
		"type":        "job",
	}, &opp)
	require.Equal(t, http.StatusCreated, status)
	require.NotZero(t, opp.ID)

	status = do(t, http.MethodPost, "/opportunities", student.Token, map[string]any{
		"title": "Not allowed", "description": "x", "company": "x", "type": "job",
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var app struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	status = do(t, http.MethodPost, "/applications", student.Token, map[string]any{
		"application_type": "opportunity",
		"opportunity_id":   opp.ID,
		"cover_letter":     "I would love to join",
	}, &app)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "submitted", app.Status)

	status = do(t, http.MethodPost, "/applications", student.Token, map[string]any{
		"application_type": "opportunity",
		"opportunity_id":   opp.ID,
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	var received struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	status = do(t, http.MethodGet, "/applications/received", alumnus.Token, nil, &received)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, received.Items, 1)
	assert.Equal(t, app.ID, received.Items[0].ID)

	status = do(t, http.MethodPut, fmt.Sprintf("/applications/%d/status", app.ID), alumnus.Token, map[string]any{
		"status": "accepted",
	}, &app)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", app.Status)
}

func TestDeactivatedTokenStopsResolving(t *testing.T) {
	user := register(t, fmt.Sprintf("leaver_%d@example.com", time.Now().UnixNano()), "student")

	status := do(t, http.MethodGet, "/auth/me", user.Token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = do(t, http.MethodDelete, "/users/profile", user.Token, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = do(t, http.MethodGet, "/auth/me", user.Token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

func register(t *testing.T, email, role string) authResponse {
	t.Helper()

	var parsed authResponse
	status := do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":      email,
		"password":   "testpass123!",
		"first_name": "Test",
		"last_name":  "User",
		"role":       role,
	}, &parsed)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, parsed.Token)
	return parsed
}

func do(t *testing.T, method, path, token string, payload, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(raw, out), strings.TrimSpace(string(raw)))
	}
	return resp.StatusCode
}

func setEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "alumni")
	_ = os.Setenv("DB_PASSWORD", "alumni")
	_ = os.Setenv("DB_NAME", "alumni_connect")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("REDIS_ADDR", "localhost:6379")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MQ_BACKEND", "rabbitmq")
	_ = os.Setenv("BCRYPT_COST", "4")
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer(ctx context.Context) (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(ctx, cfg, logging.New("warn", "text"))
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
