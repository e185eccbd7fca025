package tasks

import (
	"errors"

	"github.com/desertthunder/aura/internal/repositories"
	"github.com/desertthunder/aura/internal/shared"
)

func isNotFound(err error) bool  { return errors.Is(err, repositories.ErrNotFound) }
func isDuplicate(err error) bool { return errors.Is(err, repositories.ErrDuplicate) }
func isStorage(err error) bool   { return errors.Is(err, shared.ErrStorage) }

// ErrListNotFound is returned by operations that require an existing live list.
var ErrListNotFound = errors.New("list not found")
