package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the reswave API is reachable",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		health()
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func health() {
	ctx, stop, e := setup()
	defer stop()

	status, err := e.apiClient().Health(ctx)
	if err != nil {
		fmt.Println(errorStyle.Render("Backend is not reachable"))
		e.logger.Fatal("checking health", zap.Error(err))
	}

	if e.output != outputText {
		e.render(status)
	} else {
		fmt.Println(headerStyle.Render(fmt.Sprintf("%s %s (api %s): %s", status.AppName, status.Version, status.APIVersion, status.Status)))
	}

	if !status.Healthy() {
		stop()
		os.Exit(1)
	}
}
