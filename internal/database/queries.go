package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pdfsummarizer/internal/domain"
)

// GetUserSettingsWithDefault returns the stored settings, or text mode when the
// user never picked one.
func (d *Database) GetUserSettingsWithDefault(
	ctx context.Context,
	userID int64,
) (*domain.UserSettings, error) {
	query := `select user_id, input_mode
	from user_settings
	where user_id = ?`

	var (
		us   domain.UserSettings
		mode string
	)

	err := d.db.QueryRowContext(ctx, query, userID).Scan(&us.UserID, &mode)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.UserSettings{
			UserID: userID,
			Mode:   domain.ModeText,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	parsed, ok := domain.ParseMode(mode)
	if !ok {
		d.log.WarnContext(ctx, "Stored input mode is unknown so default will be used",
			"userID", userID,
			"mode", mode)

		parsed = domain.ModeText
	}
	us.Mode = parsed

	return &us, nil
}

func (d *Database) UpsertUserSettings(ctx context.Context, userSettings *domain.UserSettings) error {
	if _, ok := domain.ParseMode(string(userSettings.Mode)); !ok {
		return fmt.Errorf("unknown input mode %q", userSettings.Mode)
	}

	query := `insert into user_settings (user_id, input_mode)
	values (?, ?)
	on conflict (user_id) do update
	set input_mode = excluded.input_mode,
	updated_at = current_timestamp`

	_, err := d.db.ExecContext(ctx, query, userSettings.UserID, string(userSettings.Mode))

	return err
}
