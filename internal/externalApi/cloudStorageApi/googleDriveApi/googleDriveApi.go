package googleDriveApi

import (
	"bytes"
	"context"
	"log/slog"
	"mime"
	"path/filepath"

	"github.com/portfolio-engine/config"
	"github.com/portfolio-engine/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type GoogleDriveApi struct {
	srv *drive.Service
	cfg *config.Config
}

func New(ctx context.Context, cfg *config.Config) *GoogleDriveApi {
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	if err != nil {
		slog.Error("failed on drive.NewService")
		panic(err)
	}
	return &GoogleDriveApi{srv: srv, cfg: cfg}
}

func (a *GoogleDriveApi) UploadFile(ctx context.Context, filename string, content []byte) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	fileMeta := &drive.File{
		Name:     filename,
		MimeType: mime.TypeByExtension(filepath.Ext(filename)),
	}

	if a.cfg.GoogleDrive.ReportsFolderID != "" {
		fileMeta.Parents = []string{a.cfg.GoogleDrive.ReportsFolderID}
	}

	_, err = a.srv.Files.
		Create(fileMeta).
		Media(bytes.NewReader(content)).
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on uploading file to google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}
