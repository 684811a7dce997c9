package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var testOptimizeCmd = &cobra.Command{
	Use:   "test-optimize <file.docx>",
	Short: "Upload a local DOCX to the test optimization endpoint and save the result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		testOptimize(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(testOptimizeCmd)

	testOptimizeCmd.Flags().StringP("out", "O", "", "output path (default is the server-provided filename)")
}

func testOptimize(cmd *cobra.Command, path string) {
	ctx, stop, e := setup()
	defer stop()

	out, _ := cmd.Flags().GetString("out")

	result, err := e.apiClient().TestOptimize(ctx, path)
	if err != nil {
		fmt.Println(errorStyle.Render("Optimization failed: " + filepath.Base(path)))
		e.logger.Fatal("test optimization", zap.String("path", path), zap.Error(err))
	}

	if out == "" {
		out = filepath.Base(result.Filename)
	}

	if err := os.WriteFile(out, result.Content, 0o644); err != nil {
		e.logger.Fatal("writing optimized document", zap.String("path", out), zap.Error(err))
	}

	fmt.Println(headerStyle.Render("Optimized document saved to " + out))
}
