package main

import (
	"github.com/docshistory/histories-backend/internal/changetracker"
	"github.com/docshistory/histories-backend/internal/logging"
	"github.com/docshistory/histories-backend/internal/utils"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-signalcontext"

	server "github.com/docshistory/histories-backend/pkg/httpserver"
)

func main() {

	ctx, done := signalcontext.OnInterrupt()
	defer done()

	logger := logging.FromContext(ctx).Named("histories")

	var config server.Config
	if err := envconfig.Process(ctx, &config); err != nil {
		logger.Fatalf("could not load server config: %v", err)
	}

	historyConfig, err := utils.LoadHistoryConfig(ctx)
	if err != nil {
		logger.Fatalf("could not load history config: %v", err)
	}

	handler := server.NewHandler(ctx, changetracker.New(historyConfig))

	srv, err := server.NewServer(ctx, &config)
	if err != nil {
		logger.Fatalf("server.NewServer: %v", err)
	}
	logger.Infof("listening on :%s", srv.Port())

	if err := srv.ServeHTTPHandler(ctx, handler); err != nil {
		logger.Fatal(err)
	}

}
