// Package sqlite writes ledger snapshots into a SQLite file.
package sqlite

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/sentinel/internal/database/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL,
	created_at TEXT NOT NULL,
	joined_at TEXT,
	first_seen TEXT NOT NULL,
	last_seen TEXT NOT NULL,
	total_messages INTEGER NOT NULL,
	reactions_given INTEGER NOT NULL,
	reactions_received INTEGER NOT NULL,
	voice_minutes INTEGER NOT NULL,
	current_streak INTEGER NOT NULL,
	longest_streak INTEGER NOT NULL,
	is_banned INTEGER NOT NULL
);
CREATE TABLE warnings (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL,
	case_id INTEGER NOT NULL,
	reason TEXT NOT NULL,
	issued_by TEXT NOT NULL,
	category TEXT NOT NULL,
	severity TEXT NOT NULL,
	action TEXT NOT NULL,
	timeout_seconds INTEGER NOT NULL,
	issued_at TEXT NOT NULL,
	expires_at TEXT
);
CREATE TABLE cases (
	id INTEGER PRIMARY KEY,
	type TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	reason TEXT NOT NULL,
	created_by TEXT NOT NULL,
	action TEXT NOT NULL,
	status TEXT NOT NULL,
	evidence TEXT NOT NULL,
	channel_id INTEGER NOT NULL,
	message_id INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE image_fingerprints (
	id INTEGER PRIMARY KEY,
	phash TEXT NOT NULL UNIQUE,
	dhash TEXT NOT NULL,
	ahash TEXT NOT NULL,
	times_posted INTEGER NOT NULL,
	is_spam INTEGER NOT NULL,
	spam_category TEXT NOT NULL,
	report_count INTEGER NOT NULL,
	first_seen_user_id INTEGER NOT NULL,
	first_seen_message_id INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE trust_scores (
	user_id INTEGER PRIMARY KEY,
	overall REAL NOT NULL,
	tier TEXT NOT NULL,
	calculated_at TEXT NOT NULL
);
CREATE TABLE reputation_scores (
	user_id INTEGER PRIMARY KEY,
	overall REAL NOT NULL,
	tier TEXT NOT NULL,
	expertise REAL NOT NULL,
	collaboration REAL NOT NULL,
	consistency REAL NOT NULL,
	leadership REAL NOT NULL,
	calculated_at TEXT NOT NULL
);
`

// Writer writes ledger rows into a fresh SQLite database.
type Writer struct {
	conn *sqlite.Conn
}

// Create replaces any file at path with an empty snapshot database.
func Create(path string) (*Writer, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove existing file %s: %w", path, err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Writer{conn: conn}, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.conn.Close()
}

// Users writes a batch of users.
func (w *Writer) Users(users []*types.User) error {
	return insert(w.conn, `INSERT INTO users (id, username, created_at, joined_at, first_seen, last_seen,
		total_messages, reactions_given, reactions_received, voice_minutes, current_streak, longest_streak, is_banned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, users, func(u *types.User) []any {
		return []any{
			int64(u.ID), u.Username, timestamp(u.CreatedAt), optional(u.JoinedAt), timestamp(u.FirstSeen),
			timestamp(u.LastSeen), u.TotalMessages, u.ReactionsGiven, u.ReactionsReceived, u.VoiceMinutes,
			u.CurrentStreak, u.LongestStreak, u.IsBanned,
		}
	})
}

// Warnings writes a batch of warnings.
func (w *Writer) Warnings(warnings []*types.Warning) error {
	return insert(w.conn, `INSERT INTO warnings (id, user_id, case_id, reason, issued_by, category, severity,
		action, timeout_seconds, issued_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		warnings, func(warn *types.Warning) []any {
			var expires any
			if warn.ExpiresAt != nil {
				expires = timestamp(*warn.ExpiresAt)
			}
			return []any{
				warn.ID, int64(warn.UserID), warn.CaseID, warn.Reason, warn.IssuedBy, warn.Category.String(),
				warn.Severity.String(), warn.Action.String(), warn.TimeoutDuration, timestamp(warn.IssuedAt), expires,
			}
		})
}

// Cases writes a batch of cases. Evidence is stored as JSON.
func (w *Writer) Cases(cases []*types.Case) error {
	evidence := make(map[int64]string, len(cases))
	for _, c := range cases {
		data, err := sonic.MarshalString(c.Evidence)
		if err != nil {
			return fmt.Errorf("failed to marshal evidence of case %d: %w", c.ID, err)
		}
		evidence[c.ID] = data
	}

	return insert(w.conn, `INSERT INTO cases (id, type, user_id, reason, created_by, action, status, evidence,
		channel_id, message_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cases, func(c *types.Case) []any {
			return []any{
				c.ID, c.Type.String(), int64(c.UserID), c.Reason, c.CreatedBy, c.Action.String(), c.Status.String(),
				evidence[c.ID], int64(c.ChannelID), int64(c.MessageID), timestamp(c.CreatedAt),
			}
		})
}

// Fingerprints writes a batch of image fingerprints.
func (w *Writer) Fingerprints(fps []*types.ImageFingerprint) error {
	return insert(w.conn, `INSERT INTO image_fingerprints (id, phash, dhash, ahash, times_posted, is_spam,
		spam_category, report_count, first_seen_user_id, first_seen_message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, fps, func(fp *types.ImageFingerprint) []any {
		return []any{
			fp.ID, fp.PHash, fp.DHash, fp.AHash, fp.TimesPosted, fp.IsSpam, fp.SpamCategory, fp.ReportCount,
			int64(fp.FirstSeenUserID), int64(fp.FirstSeenMessageID), timestamp(fp.CreatedAt),
		}
	})
}

// Trust writes a batch of trust scores.
func (w *Writer) Trust(scores []*types.TrustScore) error {
	return insert(w.conn, `INSERT INTO trust_scores (user_id, overall, tier, calculated_at) VALUES (?, ?, ?, ?)`,
		scores, func(s *types.TrustScore) []any {
			return []any{int64(s.UserID), s.Overall, s.Tier, timestamp(s.CalculatedAt)}
		})
}

// Reputation writes a batch of reputation scores.
func (w *Writer) Reputation(scores []*types.ReputationScore) error {
	return insert(w.conn, `INSERT INTO reputation_scores (user_id, overall, tier, expertise, collaboration,
		consistency, leadership, calculated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		scores, func(s *types.ReputationScore) []any {
			return []any{
				int64(s.UserID), s.Overall, s.Tier, s.Components.Expertise, s.Components.Collaboration,
				s.Components.Consistency, s.Components.Leadership, timestamp(s.CalculatedAt),
			}
		})
}

// insert writes rows in one transaction.
func insert[T any](conn *sqlite.Conn, query string, rows []T, args func(T) []any) (err error) {
	if len(rows) == 0 {
		return nil
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer endFn(&err)

	for _, row := range rows {
		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args(row)}); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optional(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return timestamp(t)
}
