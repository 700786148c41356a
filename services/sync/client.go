package syncsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/backup"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/services/metrics"
)

var (
	ErrNoRemoteData = errors.New("no remote data for this account")
	ErrRemote       = errors.New("remote sync failed")
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL  string
	account  string
	token    string
	driveURL string
	timeout  time.Duration

	http    *rest.Client
	logger  core.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

var _ session.Syncer = (*Client)(nil) // interface compliance check

// NewClient returns nil when remote sync is disabled in conf.
func NewClient(conf *core.Config, logger core.Logger, m *metrics.Metrics) *Client {
	if !conf.Sync.Enabled || conf.Sync.BaseURL == "" {
		return nil
	}
	timeout := conf.Sync.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(conf.Sync.BaseURL, "/"),
		account:  conf.Sync.Account,
		token:    conf.Sync.Token,
		driveURL: conf.Sync.DriveBackupURL,
		timeout:  timeout,
		http:     &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		logger:   logger,
		metrics:  m,
	}
}

func (c *Client) accountURL() string {
	return fmt.Sprintf("%s/accounts/%s", c.baseURL, url.PathEscape(c.account))
}

func (c *Client) headers() map[string]string {
	h := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

// send performs r bound to ctx.
func (c *Client) send(ctx context.Context, r rest.Request) (*rest.Response, error) {
	req, err := rest.BuildRequestObject(r)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	res, err := c.http.MakeRequest(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(res)
}

// Fetch downloads the account document.
func (c *Client) Fetch(ctx context.Context) (snap backup.Snapshot, err error) {
	defer func() { c.metrics.ObserveSync("fetch", err) }()

	res, err := c.send(ctx, rest.Request{
		Method:  rest.Get,
		BaseURL: c.accountURL(),
		Headers: c.headers(),
	})
	if err != nil {
		return backup.Snapshot{}, errors.Wrap(err, "fetching remote data")
	}
	if res.StatusCode == http.StatusNotFound {
		return backup.Snapshot{}, ErrNoRemoteData
	}
	if res.StatusCode >= http.StatusBadRequest {
		return backup.Snapshot{}, errors.Wrapf(ErrRemote, "fetch - status: %d - body: %s", res.StatusCode, res.Body)
	}
	if err = json.Unmarshal([]byte(res.Body), &snap); err != nil {
		return backup.Snapshot{}, errors.Wrap(err, "decoding remote data")
	}
	return snap, nil
}

// Save upserts the account document, then pushes the same document to the drive backup endpoint in the background.
// Two saves in quick succession may reach the drive endpoint out of order.
func (c *Client) Save(ctx context.Context, snap backup.Snapshot) (err error) {
	defer func() { c.metrics.ObserveSync("save", err) }()

	body, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding data")
	}
	res, err := c.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.accountURL(),
		Headers: c.headers(),
		Body:    body,
	})
	if err != nil {
		return errors.Wrap(err, "saving remote data")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Wrapf(ErrRemote, "save - status: %d - body: %s", res.StatusCode, res.Body)
	}

	if c.driveURL != "" {
		c.wg.Add(1)
		go c.driveBackup(body, core.Now())
	}
	return nil
}

func (c *Client) driveBackup(body []byte, savedAt time.Time) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	headers := c.headers()
	headers["X-Account"] = c.account
	headers["X-Saved-At"] = savedAt.Format(time.RFC3339)
	res, err := c.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.driveURL,
		Headers: headers,
		Body:    body,
	})
	switch {
	case err != nil:
		c.metrics.ObserveDriveBackupFailure()
		c.logger.Error(fmt.Sprintf("drive backup: %v", err), errors.Wrap(err, "drive backup"))
	case res.StatusCode >= http.StatusBadRequest:
		c.metrics.ObserveDriveBackupFailure()
		c.logger.Error(fmt.Sprintf("drive backup - status: %d - body: %s", res.StatusCode, res.Body))
	}
}

// Wait blocks until pending drive backups are done.
func (c *Client) Wait() {
	c.wg.Wait()
}
