package storage

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresPersister stores the snapshot document in a single JSONB row,
// so the durability contract is identical to the file backend.
type PostgresPersister struct {
	db *sql.DB
}

func NewPostgresPersister(config DatabaseConfig) (*PostgresPersister, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	p := &PostgresPersister{db: db}
	if err := p.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return p, nil
}

func (p *PostgresPersister) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := p.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (p *PostgresPersister) Load() ([]byte, error) {
	var doc []byte
	err := p.db.QueryRow(`SELECT doc FROM support_snapshot WHERE id = 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading snapshot: %w", err)
	}
	return doc, nil
}

func (p *PostgresPersister) Save(data []byte) error {
	query := `
		INSERT INTO support_snapshot (id, doc, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET doc = $1, updated_at = now()`
	if _, err := p.db.Exec(query, data); err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}
	return nil
}

func (p *PostgresPersister) Close() error {
	return p.db.Close()
}
