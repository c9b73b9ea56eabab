//go:build !arm && !arm64

package source

import (
	"context"
	"errors"
)

func watchPin(ctx context.Context, pin int, changed func(high bool)) error {
	return errors.New("hardware not supported")
}
