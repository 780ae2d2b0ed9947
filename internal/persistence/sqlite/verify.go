// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CheckMode selects the integrity pragma.
type CheckMode string

const (
	// QuickCheck skips index cross-checks; cheap enough for probes.
	QuickCheck CheckMode = "quick_check"
	// FullCheck runs integrity_check.
	FullCheck CheckMode = "integrity_check"
)

// VerifyIntegrity opens path read-only and runs the pragma for mode. It
// returns nil issues for a healthy database and the diagnostic rows
// otherwise. Unknown modes run QuickCheck.
func VerifyIntegrity(ctx context.Context, path string, mode CheckMode) ([]string, error) {
	if mode != FullCheck {
		mode = QuickCheck
	}
	db, err := sql.Open("sqlite", dsn(path, true, "busy_timeout(2000)"))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s for verify: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, "PRAGMA "+string(mode))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", mode, err)
	}
	defer func() { _ = rows.Close() }()

	var issues []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s row: %w", mode, err)
		}
		issues = append(issues, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s rows: %w", mode, err)
	}

	switch {
	case len(issues) == 1 && strings.EqualFold(issues[0], "ok"):
		return nil, nil
	case len(issues) == 0:
		return []string{mode.String() + " returned no rows"}, nil
	}
	return issues, nil
}

func (m CheckMode) String() string { return string(m) }
