package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// mapError converts driver errors to domain errors. Context errors pass through.
func mapError(err error, entity, key string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, key, err)
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", entity, key, domain.ErrNotFound)
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s %s: %w: %w", entity, key, domain.ErrStoreUnavailable, err)
	}

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w: %w", entity, key, domain.ErrPersistence, domain.ErrAlreadyExists)
	}

	return fmt.Errorf("%s %s: %w: %w", entity, key, domain.ErrPersistence, err)
}
