package workflow

import (
	"log/slog"

	"brainprep/internal/axes"
	"brainprep/internal/config"
	"brainprep/internal/conversion"
	"brainprep/internal/paths"
	"brainprep/internal/pngexport"
	"brainprep/internal/services"
	"brainprep/internal/skullstrip"
	"brainprep/internal/stage"
)

// DefaultHandlers builds the four preprocessing stages sharing one executor.
func DefaultHandlers(cfg *config.Config, exec services.Executor, logger *slog.Logger) []stage.Handler {
	if exec == nil {
		exec = services.NewExecutor()
	}
	resolver := paths.NewResolver(cfg)
	return []stage.Handler{
		conversion.NewHandler(cfg, resolver, exec, logger),
		skullstrip.NewHandler(cfg, resolver, exec, logger),
		axes.NewHandler(cfg, resolver, logger),
		pngexport.NewHandler(cfg, resolver, exec, logger),
	}
}
