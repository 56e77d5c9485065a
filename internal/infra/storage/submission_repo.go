package storage

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("not found")

type SubmissionRepo struct{ db *sql.DB }

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

// Enqueue inserta siempre como pending. Duplicados permitidos a propósito
// (un user puede mandar varios tracks en la misma sesión).
func (r *SubmissionRepo) Enqueue(ctx context.Context, guildID, userID, trackURL, subType string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
INSERT INTO submissions (guild_id, user_id, track_url, status, submission_type)
VALUES ($1,$2,$3,'pending',$4)
RETURNING submission_id
`, guildID, userID, trackURL, subType).Scan(&id)
	return id, err
}

// DequeueNext: el pending más viejo por submitted_at (FIFO). Los priorizados
// tienen submitted_at en epoch, así que salen siempre primero.
func (r *SubmissionRepo) DequeueNext(ctx context.Context, guildID, subType string) (Submission, error) {
	var s Submission
	err := r.db.QueryRowContext(ctx, `
SELECT submission_id, guild_id, user_id, track_url, status, submission_type, submitted_at, reviewer_id
  FROM submissions
 WHERE guild_id = $1 AND submission_type = $2 AND status = 'pending'
 ORDER BY submitted_at ASC, submission_id ASC
 LIMIT 1
`, guildID, subType).Scan(&s.ID, &s.GuildID, &s.UserID, &s.TrackURL, &s.Status, &s.Type, &s.SubmittedAt, &s.ReviewerID)
	if err == sql.ErrNoRows {
		return Submission{}, ErrNotFound
	}
	return s, err
}

func (r *SubmissionRepo) Get(ctx context.Context, id int64) (Submission, error) {
	var s Submission
	err := r.db.QueryRowContext(ctx, `
SELECT submission_id, guild_id, user_id, track_url, status, submission_type, submitted_at, reviewer_id
  FROM submissions
 WHERE submission_id = $1
`, id).Scan(&s.ID, &s.GuildID, &s.UserID, &s.TrackURL, &s.Status, &s.Type, &s.SubmittedAt, &s.ReviewerID)
	if err == sql.ErrNoRows {
		return Submission{}, ErrNotFound
	}
	return s, err
}

// Mark no valida la transición; eso es responsabilidad del caller.
// Sobre-escribir reviewer en una row ya reviewed es benigno.
func (r *SubmissionRepo) Mark(ctx context.Context, id int64, status string, reviewerID *string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE submissions
   SET status = $1, reviewer_id = $2
 WHERE submission_id = $3
`, status, reviewerID, id)
	return err
}

// Prioritize reescribe submitted_at al piso epoch: máxima prioridad FIFO.
// Idempotente (segunda llamada deja el mismo orden).
func (r *SubmissionRepo) Prioritize(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE submissions
   SET submitted_at = 'epoch'::timestamptz
 WHERE submission_id = $1
`, id)
	return err
}

// ClearUnreviewed borra todo lo no-reviewed del guild+tipo, para que los
// pending de una sesión no se filtren a la siguiente.
func (r *SubmissionRepo) ClearUnreviewed(ctx context.Context, guildID, subType string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM submissions
 WHERE guild_id = $1 AND submission_type = $2 AND status != 'reviewed'
`, guildID, subType)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *SubmissionRepo) QueueCount(ctx context.Context, guildID, subType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM submissions
 WHERE guild_id = $1 AND submission_type = $2 AND status = 'pending'
`, guildID, subType).Scan(&n)
	return n, err
}

func (r *SubmissionRepo) ReviewedCount(ctx context.Context, guildID, subType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM submissions
 WHERE guild_id = $1 AND submission_type = $2 AND status = 'reviewed'
`, guildID, subType).Scan(&n)
	return n, err
}

func (r *SubmissionRepo) UserCount(ctx context.Context, guildID, userID, subType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM submissions
 WHERE guild_id = $1 AND user_id = $2 AND submission_type = $3
`, guildID, userID, subType).Scan(&n)
	return n, err
}

// LatestPending: la submission pending más reciente del user (para el priority pass).
func (r *SubmissionRepo) LatestPending(ctx context.Context, guildID, userID, subType string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
SELECT submission_id FROM submissions
 WHERE guild_id = $1 AND user_id = $2 AND submission_type = $3 AND status = 'pending'
 ORDER BY submitted_at DESC, submission_id DESC
 LIMIT 1
`, guildID, userID, subType).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return id, err
}

// ReviewingUser: quién está siendo evaluado ahora (para el widget).
func (r *SubmissionRepo) ReviewingUser(ctx context.Context, guildID, subType string) (string, error) {
	var uid string
	err := r.db.QueryRowContext(ctx, `
SELECT user_id FROM submissions
 WHERE guild_id = $1 AND submission_type = $2 AND status = 'reviewing'
 ORDER BY submitted_at ASC
 LIMIT 1
`, guildID, subType).Scan(&uid)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return uid, err
}
