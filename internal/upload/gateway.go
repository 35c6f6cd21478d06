// Package upload sends documents to the backend's upload endpoint.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/model/event"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FieldName is the multipart field carrying the document.
const FieldName = "file"

const maxReplySize = 64 << 10

// Result is the outcome of one upload: exactly one of OK and Err is set.
type Result struct {
	OK  string
	Err string
}

// Failed reports whether the upload did not succeed.
func (r Result) Failed() bool {
	return r.Err != ""
}

func ok(fileName, message string) Result {
	if message == "" {
		message = fileName + " uploaded"
	}
	return Result{OK: message}
}

func failure(reason string) Result {
	if reason == "" {
		reason = "upload failed"
	}
	return Result{Err: reason}
}

// Gateway posts files to a fixed endpoint. It never retries.
type Gateway struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewGateway creates a gateway for endpoint. A nil client gets a default
// one with a 60s timeout.
func NewGateway(endpoint string, client *http.Client, logger *zap.Logger) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{endpoint: endpoint, client: client, logger: logger.Named("upload")}
}

// Upload sends data as fileName in a single multipart request.
func (g *Gateway) Upload(ctx context.Context, fileName string, data []byte) Result {
	body, contentType, err := encodeForm(fileName, data)
	if err != nil {
		return failure(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, body)
	if err != nil {
		return failure(err.Error())
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("upload request failed", zap.String("file", fileName), zap.Error(err))
		return failure(err.Error())
	}
	defer resp.Body.Close()

	var reply event.UploadReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplySize)).Decode(&reply); err != nil {
		g.logger.Warn("malformed upload reply", zap.String("file", fileName), zap.Int("status", resp.StatusCode), zap.Error(err))
		return failure(fmt.Errorf("decode upload reply: %w", err).Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Info("upload rejected", zap.String("file", fileName), zap.Int("status", resp.StatusCode), zap.String("reason", reply.Error))
		return failure(reply.Error)
	}

	g.logger.Info("upload accepted", zap.String("file", fileName), zap.Int("bytes", len(data)))
	return ok(fileName, reply.Message)
}

func encodeForm(fileName string, data []byte) (io.Reader, string, error) {
	if fileName == "" {
		return nil, "", errors.New("file name is required")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(FieldName, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, form.FormDataContentType(), nil
}
