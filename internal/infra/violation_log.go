// Package infra contains the adapters behind the domain interfaces: the
// encrypted violation log, the remote HTTP store, the platform helper link
// and the local process scanner.
package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.IsEncrypted

const violationDBName = "violations.db"

// ViolationLog implements domain.ViolationStore using a SQLCipher encrypted
// SQLite database. Encryption keeps the child from reading or editing the
// record with a file browser.
type ViolationLog struct {
	db     *sql.DB
	dbPath string
}

// NewViolationLog opens (or creates) the encrypted violation database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewViolationLog(dataDir string, key []byte) (*ViolationLog, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, violationDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	log := &ViolationLog{db: db, dbPath: dbPath}
	if err := log.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return log, nil
}

func (l *ViolationLog) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		package_name TEXT NOT NULL,
		type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		details TEXT DEFAULT '',
		device_id TEXT DEFAULT '',
		user_id TEXT DEFAULT '',
		severity INTEGER NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		guardian_notified INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_violations_timestamp ON violations(timestamp DESC);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Append durably records a violation. The insert must commit before this
// returns; there is no write-behind buffer.
func (l *ViolationLog) Append(v domain.PolicyViolation) error {
	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO violations
			(id, package_name, type, timestamp, details, device_id, user_id, severity, resolved, guardian_notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.PackageName, string(v.Type), v.Timestamp, v.Details,
		v.DeviceID, v.UserID, int(v.Severity), boolToInt(v.Resolved), boolToInt(v.GuardianNotified),
	)
	return err
}

// MarkNotified flips the guardian-notified flag for a stored violation.
func (l *ViolationLog) MarkNotified(id string) error {
	result, err := l.db.Exec(`UPDATE violations SET guardian_notified = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("violation %q not found", id)
	}
	return nil
}

// Recent returns up to limit violations, newest first.
func (l *ViolationLog) Recent(limit int) ([]domain.PolicyViolation, error) {
	rows, err := l.db.Query(`
		SELECT id, package_name, type, timestamp, details, device_id, user_id, severity, resolved, guardian_notified
		FROM violations ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PolicyViolation
	for rows.Next() {
		var v domain.PolicyViolation
		var vtype string
		var severity, resolved, notified int
		if err := rows.Scan(&v.ID, &v.PackageName, &vtype, &v.Timestamp, &v.Details,
			&v.DeviceID, &v.UserID, &severity, &resolved, &notified); err != nil {
			return nil, err
		}
		v.Type = domain.ViolationType(vtype)
		v.Severity = domain.Severity(severity)
		v.Resolved = resolved != 0
		v.GuardianNotified = notified != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

// Count returns the total number of stored violations and how many of them
// still await guardian notification.
func (l *ViolationLog) Count() (total, unnotified int, err error) {
	row := l.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN guardian_notified = 0 THEN 1 ELSE 0 END), 0)
		FROM violations`)
	if err := row.Scan(&total, &unnotified); err != nil {
		return 0, 0, fmt.Errorf("count violations: %w", err)
	}
	return total, unnotified, nil
}

// PruneBefore deletes violations older than the cutoff timestamp.
func (l *ViolationLog) PruneBefore(cutoffMs int64) (int64, error) {
	result, err := l.db.Exec(`DELETE FROM violations WHERE timestamp < ?`, cutoffMs)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Path returns the database file path.
func (l *ViolationLog) Path() string {
	return l.dbPath
}

// Close releases the database connection.
func (l *ViolationLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ domain.ViolationStore = (*ViolationLog)(nil)
