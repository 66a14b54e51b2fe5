package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const downloadLinkTemplate = "https://drive.google.com/file/d/%s/view"

// ReportFilePrefix marks files uploaded by this service, only they are subject to cleanup.
const ReportFilePrefix = "portfolio-analysis-"

type GoogleDriveApi struct {
	srv *drive.Service
	cfg *config.Config
	now func() time.Time
}

func New(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*GoogleDriveApi, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile)}
	}

	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &GoogleDriveApi{srv: srv, cfg: cfg, now: time.Now}, nil
}

// UploadFile stores the file, shares it for reading with anyone holding the link and returns that link.
func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	fileMeta := &drive.File{
		Name:     filename,
		MimeType: mime.TypeByExtension(filepath.Ext(filename)),
	}

	// Media uploads in chunks and retries failed chunks on its own
	uploadedFile, err := a.srv.Files.
		Create(fileMeta).
		Media(reader).
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on uploading file to google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	perm := &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}

	_, err = a.srv.Permissions.Create(uploadedFile.Id, perm).Context(ctx).Do()
	if err != nil {
		slog.Error("failed on creating permission to uploaded file in google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploadedFile.Id))

	return fmt.Sprintf(downloadLinkTemplate, uploadedFile.Id), nil
}

// DeleteOldFiles removes report files older than the configured TTL and returns how many were deleted.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) (int, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op))

	deadline := a.now().Add(-a.cfg.GoogleDrive.FileTTL)
	expired := make([]string, 0)
	totalFiles := 0

	err := a.srv.Files.List().
		Q(fmt.Sprintf("name contains '%s' and trashed = false", ReportFilePrefix)).
		Fields("nextPageToken, files(id, name, createdTime)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				totalFiles++
				if !isExpired(f, deadline) {
					continue
				}
				expired = append(expired, f.Id)
			}
			return nil
		})
	if err != nil {
		slog.Error("failed on getting files", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	deletedFiles := 0
	for _, fileID := range expired {
		if err := a.srv.Files.Delete(fileID).Context(ctx).Do(); err != nil {
			slog.Error(
				"failed delete file",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("err", err.Error()),
				slog.String("fileID", fileID),
			)
			continue
		}
		deletedFiles++
	}

	slog.Info("delete old files done", slog.String("rqID", rqID), slog.Int("deletedFiles", deletedFiles), slog.Int("remaining files", totalFiles-deletedFiles))

	return deletedFiles, nil
}

func isExpired(f *drive.File, deadline time.Time) bool {
	if !strings.HasPrefix(f.Name, ReportFilePrefix) {
		return false
	}

	createdTime, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		slog.Warn("failed parse time", slog.String("fileID", f.Id), slog.String("createdTime", f.CreatedTime))
		return false
	}

	return createdTime.Before(deadline)
}
