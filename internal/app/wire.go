//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"genui/internal/domain"
)

func InitializeApplication(ctx context.Context, cfg domain.Config, opts RuntimeOptions, logger *zap.Logger) (*Application, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}
