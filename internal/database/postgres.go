package database

import (
	"database/sql"
)

type PgOrderRepository struct {
	conn *sql.DB
}

func NewPgOrderRepository(dsn string) (*PgOrderRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgOrderRepository{conn: db}, nil
}

func (db *PgOrderRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgOrderRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
