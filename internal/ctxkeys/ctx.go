package ctxkeys

import (
	"context"

	"github.com/templui/taskboard/internal/config"
	"github.com/templui/taskboard/internal/taskboard"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	ViewKey      contextKey = "view"
	ConfigKey    contextKey = "config"
	CSRFTokenKey contextKey = "csrf_token"
)

// View returns the browser's task board view, nil outside the View middleware.
func View(ctx context.Context) *taskboard.View {
	view, _ := ctx.Value(ViewKey).(*taskboard.View)
	return view
}

func WithView(ctx context.Context, view *taskboard.View) context.Context {
	return context.WithValue(ctx, ViewKey, view)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(CSRFTokenKey).(string)
	return token
}

func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFTokenKey, token)
}
