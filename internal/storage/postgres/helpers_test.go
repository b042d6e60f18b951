package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all directory rows. Tests only.
func (s *DirectoryStore) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE TABLE activities, entities CASCADE")
	if err != nil {
		return fmt.Errorf("postgres: failed to truncate directory: %w", err)
	}
	return nil
}
