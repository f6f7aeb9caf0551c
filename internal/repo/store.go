package repo

import (
	"fmt"

	"github.com/xxxsen/supportrag/internal/pkg/dbutil"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

// storeError scopes err to a corpus and marks connection failures.
func storeError(corpus, op string, err error) error {
	if err == nil {
		return nil
	}
	if dbutil.IsConnectionError(err) {
		err = fmt.Errorf("%w: %w", appErr.ErrStoreConnection, err)
	}
	return appErr.NewStoreError(corpus, op, err)
}
