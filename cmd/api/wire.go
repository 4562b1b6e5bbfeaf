//go:build wireinject

package main

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	"github.com/onkernel/docclassify/cmd/api/api"
	"github.com/onkernel/docclassify/cmd/api/config"
	"github.com/onkernel/docclassify/lib/documents"
	"github.com/onkernel/docclassify/lib/ocr"
	hotel "github.com/onkernel/docclassify/lib/otel"
	"github.com/onkernel/docclassify/lib/providers"
	"go.opentelemetry.io/otel/metric"
)

// application struct to hold initialized components
type application struct {
	Ctx             context.Context
	Logger          *slog.Logger
	Config          *config.Config
	Otel            *hotel.Provider
	Meter           metric.Meter
	OCREngine       ocr.Engine
	Rasterizer      ocr.Rasterizer
	DocumentManager documents.Manager
	ApiService      *api.ApiService
}

// initializeApp is the injector function
func initializeApp(cfg *config.Config) (*application, func(), error) {
	panic(wire.Build(
		providers.ProvideContext,
		providers.ProvideOtel,
		providers.ProvideMeter,
		providers.ProvideLogger,
		providers.ProvideOCREngine,
		providers.ProvideRasterizer,
		providers.ProvideExtractor,
		providers.ProvideClassifier,
		providers.ProvideStore,
		providers.ProvideDocumentManager,
		api.New,
		wire.Struct(new(application), "*"),
	))
}
