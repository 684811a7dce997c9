package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/reswave/internal/logger"
	"github.com/spigell/reswave/internal/reswave"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// env bundles what every command needs before it talks to the backend.
type env struct {
	logger *zap.Logger
	config *Config
	output string
}

func setup() (context.Context, context.CancelFunc, *env) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	output := viper.GetString("output")
	if err := validateOutput(output); err != nil {
		l.Fatal("checking output format", zap.Error(err))
	}

	return ctx, stop, &env{logger: l, config: config, output: output}
}

func (e *env) apiClient() *reswave.Client {
	token, err := resolveToken(e.config)
	if err != nil {
		e.logger.Fatal(
			"loading reswave token",
			zap.Error(err),
			zap.String("hint", "set RESWAVE_TOKEN_FILE environment variable or the 'token-file' key in the configuration file"),
		)
	}

	client := reswave.New(e.logger, token, e.config.HTTP)
	if e.config.UserAgent != "" {
		client.UserAgent = e.config.UserAgent
	}
	if e.config.APIURL != "" {
		client.APIURL = e.config.APIURL
	}

	return client
}

func (e *env) render(v any) {
	if err := render(os.Stdout, e.output, v); err != nil {
		e.logger.Fatal("rendering output", zap.Error(err))
	}
}
