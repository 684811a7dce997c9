package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/reswave/internal/reswave"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Work with resumes uploaded to the reswave API",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded resume versions, newest first",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		listFiles()
	},
}

var filesDownloadCmd = &cobra.Command{
	Use:   "download <file-id>",
	Short: "Download a file or one of its versions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		downloadFile(cmd, args[0])
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload PDF or DOCX resumes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		uploadFiles(args)
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesListCmd, filesDownloadCmd, filesUploadCmd)

	filesDownloadCmd.Flags().String("version", "", "version id to download instead of the current file")
	filesDownloadCmd.Flags().StringP("out", "O", "", "output path (default is the server-provided filename)")
}

func listFiles() {
	ctx, stop, e := setup()
	defer stop()

	files, err := e.apiClient().ListFiles(ctx)
	if err != nil {
		e.logger.Fatal("listing files", zap.Error(err))
	}

	versions := files.Versions()
	e.logger.Debug("got files", zap.Int("files", files.Len()), zap.Int("versions", versions.Len()))

	if e.output != outputText {
		e.render(versions.Items)
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%d files, %d versions", files.Len(), versions.Len())))
	for _, label := range versions.Labels() {
		fmt.Println(label)
	}
}

func downloadFile(cmd *cobra.Command, fileID string) {
	ctx, stop, e := setup()
	defer stop()

	versionID, _ := cmd.Flags().GetString("version")
	out, _ := cmd.Flags().GetString("out")

	download, err := e.apiClient().Download(ctx, fileID, versionID)
	if err != nil {
		e.logger.Fatal("downloading file", zap.String("file_id", fileID), zap.Error(err))
	}

	if out == "" {
		out = filepath.Base(download.Filename)
	}

	if err := os.WriteFile(out, download.Content, 0o644); err != nil {
		e.logger.Fatal("writing downloaded file", zap.String("path", out), zap.Error(err))
	}

	e.logger.Info("file downloaded",
		zap.String("file_id", fileID),
		zap.String("version_id", versionID),
		zap.String("path", out),
		zap.Int("size", len(download.Content)),
	)
}

func uploadFiles(paths []string) {
	ctx, stop, e := setup()
	defer stop()

	files, err := uploadAll(ctx, e.apiClient(), e.logger, paths)
	if err != nil {
		e.logger.Fatal("uploading files", zap.Error(err))
	}

	versions := files.Versions()
	if e.output != outputText {
		e.render(versions.Items)
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("uploaded %d files", files.Len())))
	for _, label := range versions.Labels() {
		fmt.Println(label)
	}
}

// uploadAll uploads paths in order and stops at the first failure.
func uploadAll(ctx context.Context, client *reswave.Client, log *zap.Logger, paths []string) (*reswave.Files, error) {
	files := &reswave.Files{}
	for _, path := range paths {
		file, err := client.Upload(ctx, path)
		if err != nil {
			return files, err
		}
		log.Info("file uploaded", zap.String("path", path), zap.Int("versions", len(file.Versions)))
		files.Items = append(files.Items, file)
	}

	return files, nil
}
