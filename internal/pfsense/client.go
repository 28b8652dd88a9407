// Package pfsense drives the pfSense web GUI: login, configuration download and restore.
//
// The GUI has no API for backups, so the client behaves like a browser: it keeps a cookie
// session, scrapes the CSRF token from each page and posts the same multipart forms the
// GUI submits.
package pfsense

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/http/cookiejar"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// LoginPath is the GUI login page.
	LoginPath = "/"
	// BackupPath is the Diagnostics > Backup & Restore page.
	BackupPath = "/diag_backup.php"

	csrfFieldName = "__csrf_magic"
)

var (
	csrfTokenPattern = regexp.MustCompile(`<input type='hidden' name='__csrf_magic' value="(.+?)" />`)
	loginFormPattern = regexp.MustCompile(`name=["']usernamefld["']`)
)

// Config configures a Client.
type Config struct {
	// BaseURL is the GUI origin, e.g. https://192.168.1.1.
	BaseURL            string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
	RetryMax           int
	Logger             *slog.Logger
}

// Download is a configuration file streamed from the firewall. Body must be closed.
type Download struct {
	Filename string
	Body     io.ReadCloser
}

// Client is a pfSense GUI session. A Client is safe for concurrent use, but pfSense
// sessions are per cookie so callers usually serialize logical operations.
type Client struct {
	baseURL  string
	username string
	password string
	http     *retryablehttp.Client
}

type noRetryKey struct{}

// NewClient builds a Client with a cookie jar and a pooled transport.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("pfsense base url is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := cleanhttp.DefaultPooledTransport()
	if cfg.InsecureSkipVerify {
		// pfSense ships a self-signed certificate.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.Timeout,
	}
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.CheckRetry = checkRetry
	// Hand the last response back so non-2xx statuses are reported by do.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil
	if cfg.Logger != nil {
		retryClient.Logger = cfg.Logger
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     retryClient,
	}, nil
}

// checkRetry applies the default policy unless the request opted out. Restores are not
// idempotent from the firewall's point of view.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if noRetry, _ := ctx.Value(noRetryKey{}).(bool); noRetry {
		return false, err
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// CSRFToken fetches page and extracts its __csrf_magic token.
func (c *Client) CSRFToken(ctx context.Context, page string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url(page), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(fmt.Errorf("failed to read %s: %w", page, err))
	}

	match := csrfTokenPattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("%w: %s", ErrCSRFTokenNotFound, page)
	}
	return string(match[1]), nil
}

// Login signs in with the configured credentials. A response that renders the login
// form again means the credentials were rejected.
func (c *Client) Login(ctx context.Context) error {
	token, err := c.CSRFToken(ctx, LoginPath)
	if err != nil {
		return err
	}

	resp, err := c.postForm(ctx, LoginPath, loginForm(token, c.username, c.password))
	if err != nil {
		return err
	}
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(fmt.Errorf("failed to read login response: %w", err))
	}
	if loginFormPattern.Match(body) {
		return ErrLoginFailed
	}
	return nil
}

// DownloadBackup asks the firewall for a configuration backup encrypted with password
// and returns the attachment stream.
func (c *Client) DownloadBackup(ctx context.Context, password string) (*Download, error) {
	token, err := c.CSRFToken(ctx, BackupPath)
	if err != nil {
		return nil, err
	}

	resp, err := c.postForm(ctx, BackupPath, downloadForm(token, password))
	if err != nil {
		return nil, err
	}

	filename, ok := attachmentFilename(resp.Header.Get("Content-Disposition"))
	if !ok {
		closeBody(resp)
		return nil, ErrNoAttachment
	}

	return &Download{Filename: filename, Body: resp.Body}, nil
}

// RestoreBackup uploads content and asks the firewall to decrypt it with password and
// restore it. The firewall reboots afterwards. The request is never retried.
func (c *Client) RestoreBackup(ctx context.Context, filename string, content io.Reader, password string) error {
	token, err := c.CSRFToken(ctx, BackupPath)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, noRetryKey{}, true)
	resp, err := c.postForm(ctx, BackupPath, restoreForm(token, filename, content, password))
	if err != nil {
		if errors.Is(err, ErrUnexpectedStatus) {
			return fmt.Errorf("%w: %w", ErrRestoreFailed, err)
		}
		return err
	}
	closeBody(resp)
	return nil
}

func (c *Client) postForm(ctx context.Context, page string, fields []formField) (*http.Response, error) {
	body, contentType, err := encodeForm(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode form: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url(page), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	return c.do(req)
}

func (c *Client) do(req *retryablehttp.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			closeBody(resp)
		}
		return nil, classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		closeBody(resp)
		return nil, fmt.Errorf("%w: %s %s returned %d",
			ErrUnexpectedStatus, req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) url(page string) string {
	return c.baseURL + page
}

// classify maps transport timeouts to ErrTimeout.
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// attachmentFilename extracts a safe base name from an attachment Content-Disposition.
func attachmentFilename(header string) (string, bool) {
	disposition, params, err := mime.ParseMediaType(header)
	if err != nil || disposition != "attachment" {
		return "", false
	}
	name := path.Base(strings.ReplaceAll(params["filename"], `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", false
	}
	return name, true
}
