//go:build !linux && !windows
// +build !linux,!windows

package focus

import (
	"fmt"

	"go.uber.org/zap"
)

func newQuerier(logger *zap.Logger) (Querier, error) {
	return nil, fmt.Errorf("foreground tracking is not implemented for this platform")
}
