package emulator

import (
	"context"
	"errors"

	"spcrud-cli/internal/store"
)

// Seed makes sure list exists and, when it was just created, fills it with titles.
// An existing list is left untouched so restarting `serve --seed` is idempotent.
func Seed(ctx context.Context, lists store.Lists, list string, titles ...string) error {
	err := lists.CreateList(ctx, list)
	if errors.Is(err, store.ErrListExists) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, t := range titles {
		if _, err := lists.AddItem(ctx, list, t); err != nil {
			return err
		}
	}
	return nil
}
