package media

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domain "github.com/yungbote/draftcut-backend/internal/domain/media"
)

// mapError converts driver failures into media error codes.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var mErr *domain.Error
	if errors.As(err, &mErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.Wrap(domain.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Wrap(domain.CodeInternal, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domain.Wrap(domain.CodeValidation, op, err) // unique_violation
		case "23503":
			return domain.Wrap(domain.CodeNotFound, op, err) // foreign_key_violation
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return domain.Wrap(domain.CodeValidation, op, err)
	}
	return domain.Wrap(domain.CodeInternal, op, err)
}
