package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Seeds the client roster the ledger authorizes against. Wallet access is
// derived from the clients table, so a fresh database needs at least one
// client row before any wallet can be created.

const defaultClientsFile = "cmd/data/clients.json"

type dataConfig struct {
	DatabaseDSN string
	ClientsFile string
}

type clientRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AdvisorID string `json:"advisor_id"`
	UserID    string `json:"user_id"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	records, err := readClients(cfg.ClientsFile)
	if err != nil {
		logger.Fatalf("read clients file: %v", err)
	}

	if err := upsertClients(ctx, pool, records); err != nil {
		logger.Fatalf("save clients: %v", err)
	}
	logger.WithField("clients", len(records)).Info("client roster synced")
}

func loadConfig() (*dataConfig, error) {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	return &dataConfig{
		DatabaseDSN: dsn,
		ClientsFile: envOrDefault("CLIENTS_FILE", defaultClientsFile),
	}, nil
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func readClients(path string) ([]clientRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []clientRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s contains no clients", path)
	}
	return records, nil
}

func upsertClients(ctx context.Context, pool *pgxpool.Pool, records []clientRecord) error {
	const query = `
		INSERT INTO clients (id, name, email, advisor_id, user_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			advisor_id = EXCLUDED.advisor_id,
			user_id = EXCLUDED.user_id`

	for _, record := range records {
		id, err := parseClientID(record.ID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(record.Name) == "" {
			return fmt.Errorf("client %s has no name", id)
		}

		advisorID, err := optionalUUID(record.AdvisorID)
		if err != nil {
			return fmt.Errorf("client %s: advisor_id: %w", id, err)
		}
		userID, err := optionalUUID(record.UserID)
		if err != nil {
			return fmt.Errorf("client %s: user_id: %w", id, err)
		}
		if advisorID == nil && userID == nil {
			return fmt.Errorf("client %s has neither advisor_id nor user_id", id)
		}

		if _, err := pool.Exec(ctx, query, id, record.Name, nullIfEmpty(record.Email), advisorID, userID); err != nil {
			return fmt.Errorf("upsert client %s: %w", id, err)
		}
	}
	return nil
}

func parseClientID(raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid client id %q: %w", raw, err)
	}
	return id, nil
}

func optionalUUID(raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", raw, err)
	}
	return &id, nil
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
