// Package yamcs is the entry point for talking to a Yamcs server.
package yamcs

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/yamcs/yamcs-client-go/api/mdb"
	"github.com/yamcs/yamcs-client-go/api/processor"
	"github.com/yamcs/yamcs-client-go/api/storage"
	"github.com/yamcs/yamcs-client-go/internal/client"
	"github.com/yamcs/yamcs-client-go/model"
	rateLimiter "github.com/yamcs/yamcs-client-go/pkg/ratelimiter"
	"github.com/yamcs/yamcs-client-go/utils"
)

const (
	defaultRequestTimeout = 30 * time.Second

	linkStateEnabled  = "enabled"
	linkStateDisabled = "disabled"
)

// YamcsClient is a client for general Yamcs operations. Processor, mission
// database and storage clients are derived from it and share its session.
type YamcsClient struct {
	address            string
	tls                bool
	tlsConfig          *tls.Config
	credentials        *model.Credentials
	auth               model.AuthProvider
	userAgent          string
	onTokenUpdate      func(model.Credentials)
	httpClient         *http.Client
	timeout            time.Duration
	logger             zerolog.Logger
	rateLimiterSetting rateLimiter.RateLimiterSetting
	rateLimiter        rateLimiter.RateLimiter
	session            *client.Session
}

// NewClient initializes a YamcsClient. Without explicit credentials the
// authentication provider is consulted, which defaults to environment
// variables.
func NewClient(ctx context.Context, opts ...Option) (*YamcsClient, error) {
	yc := YamcsClient{
		address:   utils.GetEnv(utils.EnvAddress, utils.DefaultAddress),
		auth:      model.DefaultAuthenticator{},
		userAgent: utils.BuildUserAgent(),
		timeout:   utils.GetEnvAsDuration(utils.EnvRequestTimeout, defaultRequestTimeout),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(&yc); err != nil {
			return nil, err
		}
	}

	if yc.credentials == nil && yc.auth != nil {
		creds, err := yc.auth.GetCredentials()
		if err != nil {
			return nil, fmt.Errorf("error in getting credentials: %w", err)
		}
		yc.credentials = creds
	}

	var err error
	yc.rateLimiter, err = rateLimiter.New(yc.rateLimiterSetting)
	if err != nil {
		return nil, err
	}
	go yc.rateLimiter.Run(ctx)

	yc.session, err = client.NewSession(ctx, client.Config{
		Address:       yc.address,
		TLS:           yc.tls,
		TLSConfig:     yc.tlsConfig,
		HTTPClient:    yc.httpClient,
		Timeout:       yc.timeout,
		Credentials:   yc.credentials,
		UserAgent:     yc.userAgent,
		OnTokenUpdate: yc.onTokenUpdate,
		RateLimiter:   yc.rateLimiter,
		Logger:        yc.logger,
	})
	if err != nil {
		yc.rateLimiter.Shutdown(ctx)
		return nil, err
	}
	return &yc, nil
}

// Address of the server.
func (yc *YamcsClient) Address() string { return yc.session.Address() }

// Credentials returns the credentials currently in use, or nil.
func (yc *YamcsClient) Credentials() *model.Credentials { return yc.session.Credentials() }

// Close stops background work and releases connections.
func (yc *YamcsClient) Close(ctx context.Context) {
	yc.session.Close(ctx)
}

// GetProcessor returns a client for a processor of an instance.
func (yc *YamcsClient) GetProcessor(instance, processorName string) *processor.ProcessorClient {
	return processor.NewProcessorClient(yc.session, instance, processorName)
}

// GetMDB returns a client for the mission database of an instance.
func (yc *YamcsClient) GetMDB(instance string) *mdb.MDBClient {
	return mdb.NewMDBClient(yc.session, instance)
}

// GetStorage returns a client for the object store.
func (yc *YamcsClient) GetStorage() *storage.StorageClient {
	return storage.NewStorageClient(yc.session)
}

// GetServerInfo returns general server properties.
func (yc *YamcsClient) GetServerInfo(ctx context.Context) (*model.ServerInfo, error) {
	var info model.ServerInfo
	if err := yc.session.Get(ctx, "", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListInstances lists the instances of the server.
func (yc *YamcsClient) ListInstances(ctx context.Context) ([]model.Instance, error) {
	var resp struct {
		Instances []model.Instance `json:"instances"`
	}
	if err := yc.session.Get(ctx, "/instances", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Instances, nil
}

// ListProcessors lists the processors of an instance.
func (yc *YamcsClient) ListProcessors(ctx context.Context, instance string) ([]model.Processor, error) {
	var resp struct {
		Processors []model.Processor `json:"processors"`
	}
	if err := yc.session.Get(ctx, "/processors/"+url.PathEscape(instance), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Processors, nil
}

func linkPath(instance, link string) string {
	return "/links/" + url.PathEscape(instance) + "/" + url.PathEscape(link)
}

// ListDataLinks lists the data links of an instance.
func (yc *YamcsClient) ListDataLinks(ctx context.Context, instance string) ([]model.Link, error) {
	var resp struct {
		Links []model.Link `json:"links"`
	}
	if err := yc.session.Get(ctx, "/links/"+url.PathEscape(instance), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Links, nil
}

// GetDataLink returns a single data link.
func (yc *YamcsClient) GetDataLink(ctx context.Context, instance, link string) (*model.Link, error) {
	var l model.Link
	if err := yc.session.Get(ctx, linkPath(instance, link), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

type editLinkRequest struct {
	State string `json:"state"`
}

func (yc *YamcsClient) setLinkState(ctx context.Context, instance, link, state string) error {
	if err := yc.session.Patch(ctx, linkPath(instance, link), editLinkRequest{State: state}, nil); err != nil {
		return err
	}
	yc.logger.Info().Str("instance", instance).Str("link", link).Str("state", state).Msg("link state changed")
	return nil
}

// EnableDataLink enables a data link.
func (yc *YamcsClient) EnableDataLink(ctx context.Context, instance, link string) error {
	return yc.setLinkState(ctx, instance, link, linkStateEnabled)
}

// DisableDataLink disables a data link.
func (yc *YamcsClient) DisableDataLink(ctx context.Context, instance, link string) error {
	return yc.setLinkState(ctx, instance, link, linkStateDisabled)
}

// EnableDataLinks enables multiple links. Failures do not stop the others and
// are returned combined.
func (yc *YamcsClient) EnableDataLinks(ctx context.Context, instance string, links []string) error {
	var errs error
	for _, link := range links {
		if err := yc.EnableDataLink(ctx, instance, link); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", link, err))
		}
	}
	return errs
}

// DisableDataLinks disables multiple links. Failures do not stop the others
// and are returned combined.
func (yc *YamcsClient) DisableDataLinks(ctx context.Context, instance string, links []string) error {
	var errs error
	for _, link := range links {
		if err := yc.DisableDataLink(ctx, instance, link); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", link, err))
		}
	}
	return errs
}
