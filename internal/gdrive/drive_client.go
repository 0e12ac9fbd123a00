package gdrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/service"
)

// Google-native documents cannot be attached as-is; they are exported to
// the matching Office format.
var exportFormats = map[string]struct {
	mimeType  string
	extension string
}{
	"application/vnd.google-apps.document": {
		mimeType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		extension: ".docx",
	},
	"application/vnd.google-apps.spreadsheet": {
		mimeType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		extension: ".xlsx",
	},
	"application/vnd.google-apps.presentation": {
		mimeType:  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		extension: ".pptx",
	},
}

type driveClient struct {
	client *drive.Service
	logger *logger.Logger
}

func NewDriveClient(accessToken string, logger *logger.Logger) (service.DriveClient, error) {
	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken},
	}

	driveService, err := drive.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &driveClient{
		client: driveService,
		logger: logger,
	}, nil
}

type oauth2Transport struct {
	token string
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// SearchAttachments looks the query up by filename first, then by document
// content, and downloads the single best match. Every failure path returns
// an empty slice; a missing document must not block the reply.
func (d *driveClient) SearchAttachments(ctx context.Context, userEmail, query string) []*model.Attachment {
	query = sanitizeQuery(query)
	if query == "" {
		return nil
	}

	file := d.findBestMatch(ctx, fmt.Sprintf("name contains '%s' and trashed = false", query))
	if file == nil {
		file = d.findBestMatch(ctx, fmt.Sprintf("fullText contains '%s' and trashed = false", query))
	}
	if file == nil {
		d.logger.Info("No Drive match for query:", query)
		return nil
	}

	attachment, err := d.download(ctx, file)
	if err != nil {
		d.logger.Error("Failed to download Drive file:", file.Name, err)
		return nil
	}
	return []*model.Attachment{attachment}
}

// sanitizeQuery strips quotes that would break the Drive query syntax.
func sanitizeQuery(query string) string {
	query = strings.ReplaceAll(query, "'", "")
	query = strings.ReplaceAll(query, `"`, "")
	return strings.TrimSpace(query)
}

func (d *driveClient) findBestMatch(ctx context.Context, query string) *drive.File {
	list, err := d.client.Files.List().
		Q(query).
		OrderBy("modifiedTime desc").
		PageSize(3).
		Fields("files(id, name, mimeType, size)").
		Context(ctx).
		Do()
	if err != nil {
		d.logger.Error("Drive search failed:", err)
		return nil
	}
	if len(list.Files) == 0 {
		return nil
	}
	return list.Files[0]
}

func (d *driveClient) download(ctx context.Context, file *drive.File) (*model.Attachment, error) {
	filename := file.Name
	mimeType := file.MimeType

	var response *http.Response
	var err error
	if export, ok := exportFormats[file.MimeType]; ok {
		mimeType = export.mimeType
		if !strings.HasSuffix(strings.ToLower(filename), export.extension) {
			filename += export.extension
		}
		response, err = d.client.Files.Export(file.Id, export.mimeType).Context(ctx).Download()
	} else {
		response, err = d.client.Files.Get(file.Id).Context(ctx).Download()
	}
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	return &model.Attachment{
		Filename: filename,
		Data:     data,
		MimeType: mimeType,
	}, nil
}
