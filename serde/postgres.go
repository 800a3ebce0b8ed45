//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serde

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"
	"github.com/telesink/telesink/row"
)

const DefaultTable = "server_metrics"

type pgSerDe struct {
	dbConn *sql.DB
	table  string
	sql1   *sql.Stmt // insert
}

var sqlOpen = func(driver, connectString string) (*sql.DB, error) {
	return sql.Open(driver, connectString)
}

// InitDb opens a connection pool to the database. The database does
// not have to be reachable, a failed ping is only logged and inserts
// will keep trying to connect.
func InitDb(connectString, table string) (DbSerDe, error) {
	dbConn, err := sqlOpen("postgres", connectString)
	if err != nil {
		return nil, err
	}
	p := newPgSerDe(dbConn, table)
	if err := p.dbConn.Ping(); err != nil {
		log.Printf("WARNING: database is not reachable yet (%v), will retry on insert.", err)
	}
	return p, nil
}

func newPgSerDe(dbConn *sql.DB, table string) *pgSerDe {
	if table == "" {
		table = DefaultTable
	}
	return &pgSerDe{dbConn: dbConn, table: table}
}

func (p *pgSerDe) prepareSqlStatements(ctx context.Context) error {
	var err error
	if p.sql1, err = p.dbConn.PrepareContext(ctx, insertSql(p.table)); err != nil {
		return err
	}
	return nil
}

// insertSql builds the INSERT for table. The timestamp arrives as
// seconds since the epoch and is converted with to_timestamp().
func insertSql(table string) string {
	cols := row.ColumnNames()
	vals := make([]string, len(cols))
	for i, c := range cols {
		if c == "timestamp" {
			vals[i] = fmt.Sprintf("to_timestamp($%d)", i+1)
		} else {
			vals[i] = fmt.Sprintf("$%d", i+1)
		}
		cols[i] = pq.QuoteIdentifier(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTable(table), strings.Join(cols, ", "), strings.Join(vals, ", "))
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// rowArgs returns the statement arguments for c in column order.
func rowArgs(c *row.Complete) []interface{} {
	args := make([]interface{}, 0, row.NumColumns+3)
	args = append(args, c.ServerID, c.LocationID, c.Timestamp)
	for _, v := range c.Values {
		args = append(args, v)
	}
	return args
}

func (p *pgSerDe) InsertRow(ctx context.Context, c *row.Complete) error {
	if p.sql1 == nil {
		if err := p.prepareSqlStatements(ctx); err != nil {
			return fmt.Errorf("preparing insert into %s: %w", p.table, err)
		}
	}
	if _, err := p.sql1.ExecContext(ctx, rowArgs(c)...); err != nil {
		return fmt.Errorf("inserting row for %v into %s: %w", c.Time(), p.table, err)
	}
	return nil
}

func (p *pgSerDe) Close() error {
	if p.sql1 != nil {
		p.sql1.Close()
	}
	return p.dbConn.Close()
}

// ConnectString returns connectString with password added, unless
// password is empty or connectString already carries one. URL style
// strings are converted to the key/value form first.
func ConnectString(connectString, password string) (string, error) {
	if password == "" {
		return connectString, nil
	}
	if strings.HasPrefix(connectString, "postgres://") || strings.HasPrefix(connectString, "postgresql://") {
		kv, err := pq.ParseURL(connectString)
		if err != nil {
			return "", fmt.Errorf("invalid db connect string: %w", err)
		}
		connectString = kv
	}
	for _, f := range strings.Fields(connectString) {
		if strings.HasPrefix(f, "password=") {
			return connectString, nil
		}
	}
	pw := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password)
	return strings.TrimSpace(connectString + " password='" + pw + "'"), nil
}
