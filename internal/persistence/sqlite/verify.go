// SPDX-License-Identifier: MIT

package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// VerifyIntegrity checks a SQLite database file for structural
// corruption. Mode "quick" runs PRAGMA quick_check, "full" runs the
// slower PRAGMA integrity_check. A healthy database yields (nil, nil);
// a damaged one yields the diagnostic rows SQLite reported. Files so
// damaged the pragma itself fails with SQLITE_CORRUPT or SQLITE_NOTADB
// also count as diagnostics, not operational errors.
func VerifyIntegrity(path string, mode string) ([]string, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open for verification: %w", err)
	}
	defer func() { _ = db.Close() }()

	pragma := "PRAGMA quick_check;"
	if mode == "full" {
		pragma = "PRAGMA integrity_check;"
	}

	rows, err := db.Query(pragma)
	if err != nil {
		if diag, ok := corruptionDiag(err); ok {
			return diag, nil
		}
		return nil, fmt.Errorf("sqlite: integrity pragma: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("sqlite: scan integrity row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		if diag, ok := corruptionDiag(err); ok {
			return append(results, diag...), nil
		}
		return nil, err
	}

	// success is exactly one row reading "ok"
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"no rows returned from integrity check"}, nil
	}
	return results, nil
}

// corruptionDiag maps a corruption-class driver error onto a diagnostic
// row. Reading a stomped page can fail the query itself instead of
// producing diagnostic rows.
func corruptionDiag(err error) ([]string, bool) {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return nil, false
	}
	switch se.Code() & 0xff {
	case sqlite3lib.SQLITE_CORRUPT, sqlite3lib.SQLITE_NOTADB:
		return []string{se.Error()}, true
	}
	return nil, false
}
