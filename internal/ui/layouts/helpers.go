package layouts

import (
	"context"

	"github.com/templui/taskboard/internal/ctxkeys"
)

const defaultAppName = "Task Manager"

func appName(ctx context.Context) string {
	if cfg := ctxkeys.Config(ctx); cfg != nil && cfg.AppName != "" {
		return cfg.AppName
	}
	return defaultAppName
}
