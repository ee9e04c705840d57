// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// Package logger provides structured logging for the Lumo daemon.
package logger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure-Go SQLite3 driver
)

// DefaultDatabasePath is where the sqlite output stores log entries.
const DefaultDatabasePath = "/var/lib/lumo/logs.db"

// SQLiteBackend stores log entries in a SQLite database so they can be
// queried after the fact with QueryLogs.
type SQLiteBackend struct {
	db         *sql.DB
	maxEntries int
	inserts    int
	mu         sync.Mutex
}

// QueryFilter selects entries returned by QueryLogs.
type QueryFilter struct {
	Level     string
	Component string
	Limit     int // 0 means no limit
}

// NewSQLiteBackend opens (creating if needed) the log database at path.
// maxEntries bounds the table size; zero keeps everything.
func NewSQLiteBackend(path string, maxEntries int) (*SQLiteBackend, error) {
	db, err := openLogDB(path)
	if err != nil {
		return nil, err
	}

	schema := `
		CREATE TABLE IF NOT EXISTS logs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  TEXT NOT NULL,
			level      TEXT NOT NULL,
			component  TEXT NOT NULL,
			message    TEXT NOT NULL,
			fields     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
		CREATE INDEX IF NOT EXISTS idx_logs_component ON logs(component);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create logs table: %w", err)
	}

	return &SQLiteBackend{db: db, maxEntries: maxEntries}, nil
}

func openLogDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Write inserts a log entry
func (b *SQLiteBackend) Write(entry *Entry) error {
	fields, err := json.Marshal(entry.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal log fields: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err = b.db.Exec(`INSERT INTO logs (timestamp, level, component, message, fields) VALUES (?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.Level, entry.Component, entry.Message, string(fields))
	if err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}

	b.inserts++
	if b.maxEntries > 0 && b.inserts%100 == 0 {
		if _, err := b.db.Exec(`DELETE FROM logs WHERE id <= (SELECT MAX(id) FROM logs) - ?`, b.maxEntries); err != nil {
			return fmt.Errorf("failed to prune logs: %w", err)
		}
	}
	return nil
}

// Query returns matching entries, oldest first.
func (b *SQLiteBackend) Query(filter QueryFilter) ([]*Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return queryLogs(b.db, filter)
}

// Close closes the database connection
func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}

// QueryLogs reads entries from a log database written by SQLiteBackend.
func QueryLogs(path string, filter QueryFilter) ([]*Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("log database not found: %w", err)
	}
	db, err := openLogDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return queryLogs(db, filter)
}

func queryLogs(db *sql.DB, filter QueryFilter) ([]*Entry, error) {
	var where []string
	var args []interface{}
	if filter.Level != "" {
		where = append(where, "level = ?")
		args = append(args, strings.ToLower(filter.Level))
	}
	if filter.Component != "" {
		where = append(where, "component = ?")
		args = append(args, filter.Component)
	}

	query := "SELECT timestamp, level, component, message, fields FROM logs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var fields sql.NullString
		if err := rows.Scan(&e.Timestamp, &e.Level, &e.Component, &e.Message, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		e.Fields = make(map[string]interface{})
		if fields.Valid && fields.String != "" {
			_ = json.Unmarshal([]byte(fields.String), &e.Fields)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest were selected first so LIMIT keeps the tail; return in log order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
