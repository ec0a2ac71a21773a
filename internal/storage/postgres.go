package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ptoscano/intakebot/core/logger"
	"github.com/ptoscano/intakebot/internal/survey"
)

// responseRow mirrors the survey_responses table.
type responseRow struct {
	ID          string    `db:"id"`
	UserID      int64     `db:"user_id"`
	DisplayName string    `db:"display_name"`
	Answers     []byte    `db:"answers"`
	CreatedAt   time.Time `db:"created_at"`
}

const insertResponse = `
	INSERT INTO survey_responses (id, user_id, display_name, answers, created_at)
	VALUES (:id, :user_id, :display_name, :answers, :created_at)`

// PostgresArchive stores completed questionnaires. The dialog treats the
// archive as optional; a failed insert is logged and forgotten.
type PostgresArchive struct {
	db *sqlx.DB
}

func NewPostgresArchive(db *sqlx.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

func (a *PostgresArchive) SaveResponse(ctx context.Context, res survey.Result) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	row := responseRow{
		ID:          uuid.NewString(),
		UserID:      res.UserID,
		DisplayName: res.DisplayName,
		Answers:     answers,
		CreatedAt:   time.Now().UTC(),
	}

	start := time.Now()
	if _, err := a.db.NamedExecContext(ctx, insertResponse, row); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}

	logger.Debug(ctx, "db", "response.archived",
		slog.String("response_id", row.ID),
		slog.Int64("user_id", res.UserID),
		slog.Duration("duration", logger.Took(start)))
	return nil
}
