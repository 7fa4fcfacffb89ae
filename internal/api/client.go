// Package api is the HTTP client for the file API.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/maneesh/filedrop/internal/config"
	"github.com/maneesh/filedrop/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Identity headers understood by the backend gateway.
const (
	headerUserID    = "X-User-Id"
	headerUserName  = "X-User-Name"
	headerUserEmail = "X-User-Email"
)

// Client talks to the file API. It never retries.
type Client struct {
	http    *resty.Client
	baseURL string
}

// New builds a client from the client configuration.
func New(cfg *config.ClientConfig) *Client {
	base := strings.TrimRight(cfg.ServerURL, "/")

	rc := resty.New().
		SetBaseURL(base).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Accept", "application/json").
		SetDebug(cfg.Debug)
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}
	if cfg.UserID != "" {
		rc.SetHeader(headerUserID, cfg.UserID)
		if cfg.Username != "" {
			rc.SetHeader(headerUserName, cfg.Username)
		}
		if cfg.Email != "" {
			rc.SetHeader(headerUserEmail, cfg.Email)
		}
	}

	return &Client{http: rc, baseURL: base}
}

// BaseURL returns the API origin the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL makes ref absolute against the API origin. Absolute refs are
// returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// UploadRequest is one multipart upload.
type UploadRequest struct {
	Name        string
	ContentType string
	Body        io.Reader
	Description string
	IsPublic    bool
}

type uploadResponse struct {
	Message string            `json:"message"`
	File    models.FileRecord `json:"file"`
}

type listResponse struct {
	Files      []models.FileRecord `json:"files"`
	TotalCount int                 `json:"total_count"`
}

type shareResponse struct {
	Message string             `json:"message"`
	Share   models.ShareRecord `json:"share"`
}

type errorBody struct {
	Error string `json:"error"`
}

// ShareOptions limits a share link. Nil fields use the backend defaults.
type ShareOptions struct {
	ExpiresDays  *int `json:"expires_days,omitempty"`
	MaxDownloads *int `json:"max_downloads,omitempty"`
}

// Upload sends one file as multipart fields file, description and is_public.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*models.FileRecord, error) {
	var out uploadResponse
	_, err := c.do(c.http.R().
		SetContext(ctx).
		SetMultipartField("file", req.Name, req.ContentType, req.Body).
		SetMultipartFormData(map[string]string{
			"description": req.Description,
			"is_public":   strconv.FormatBool(req.IsPublic),
		}).
		SetResult(&out),
		http.MethodPost, "/api/upload/")
	if err != nil {
		return nil, err
	}
	return &out.File, nil
}

// ListFiles returns the caller's files, newest first.
func (c *Client) ListFiles(ctx context.Context) ([]models.FileRecord, error) {
	return c.list(ctx, "/api/files/")
}

// ListPublicFiles returns every public file, newest first.
func (c *Client) ListPublicFiles(ctx context.Context) ([]models.FileRecord, error) {
	return c.list(ctx, "/api/public-files/")
}

func (c *Client) list(ctx context.Context, path string) ([]models.FileRecord, error) {
	var out listResponse
	if _, err := c.do(c.http.R().SetContext(ctx).SetResult(&out), http.MethodGet, path); err != nil {
		return nil, err
	}
	if out.Files == nil {
		out.Files = []models.FileRecord{}
	}
	return out.Files, nil
}

// DeleteFile removes one of the caller's files.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	_, err := c.do(c.http.R().SetContext(ctx).SetPathParam("id", id), http.MethodDelete, "/api/files/{id}/")
	return err
}

// ShareFile mints a share link for one of the caller's files.
func (c *Client) ShareFile(ctx context.Context, id string, opts ShareOptions) (*models.ShareRecord, error) {
	var out shareResponse
	_, err := c.do(c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(opts).
		SetResult(&out),
		http.MethodPost, "/api/files/{id}/share/")
	if err != nil {
		return nil, err
	}
	return &out.Share, nil
}

func (c *Client) do(req *resty.Request, method, path string) (*resty.Response, error) {
	var body errorBody
	resp, err := req.SetError(&body).Execute(method, path)
	if resp == nil || resp.RawResponse == nil {
		if err == nil {
			err = errors.New("no response")
		}
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	if resp.IsError() {
		return resp, &Error{
			Kind:    KindServer,
			Status:  resp.StatusCode(),
			Message: strings.TrimSpace(body.Error),
		}
	}
	if err != nil {
		return resp, &Error{Kind: KindDecode, Status: resp.StatusCode(), Err: err}
	}
	return resp, nil
}
