// Package mdb reads the mission database of a Yamcs instance.
package mdb

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/yamcs/yamcs-client-go/internal/client"
	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

const defaultPageSize = 200

// MDBClient reads the mission database of one instance.
type MDBClient struct {
	session  *client.Session
	instance string
}

// NewMDBClient binds session to instance.
func NewMDBClient(session *client.Session, instance string) *MDBClient {
	return &MDBClient{session: session, instance: instance}
}

func (c *MDBClient) path(kind string) string {
	return "/mdb/" + url.PathEscape(c.instance) + "/" + kind
}

type page struct {
	ContinuationToken string `json:"continuationToken,omitempty"`
}

// list follows continuation tokens until all pages are read. collect is
// called with the raw body of every page.
func (c *MDBClient) list(ctx context.Context, kind string, opts []ListOption, collect func([]byte) error) error {
	req := listRequest{pageSize: defaultPageSize}
	for _, opt := range opts {
		if err := opt(&req); err != nil {
			return err
		}
	}
	query := url.Values{"limit": {strconv.Itoa(req.pageSize)}}
	if req.search != "" {
		query.Set("q", req.search)
	}
	if req.system != "" {
		query.Set("system", req.system)
	}

	for {
		var raw json.RawMessage
		if err := c.session.Get(ctx, c.path(kind), query, &raw); err != nil {
			return err
		}
		if err := collect(raw); err != nil {
			return err
		}
		var p page
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.ContinuationToken == "" {
			return nil
		}
		query.Set("next", p.ContinuationToken)
	}
}

// ListParameters lists all parameters.
func (c *MDBClient) ListParameters(ctx context.Context, opts ...ListOption) ([]model.ParameterInfo, error) {
	var out []model.ParameterInfo
	err := c.list(ctx, "parameters", opts, func(raw []byte) error {
		var resp struct {
			Parameters []model.ParameterInfo `json:"parameters"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		out = append(out, resp.Parameters...)
		return nil
	})
	return out, err
}

// GetParameter gets a single parameter by fully-qualified name or alias.
func (c *MDBClient) GetParameter(ctx context.Context, name string) (*model.ParameterInfo, error) {
	var info model.ParameterInfo
	if err := c.session.Get(ctx, c.path("parameters")+utils.AdaptNameForREST(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListContainers lists all containers.
func (c *MDBClient) ListContainers(ctx context.Context, opts ...ListOption) ([]model.ContainerInfo, error) {
	var out []model.ContainerInfo
	err := c.list(ctx, "containers", opts, func(raw []byte) error {
		var resp struct {
			Containers []model.ContainerInfo `json:"containers"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		out = append(out, resp.Containers...)
		return nil
	})
	return out, err
}

// GetContainer gets a single container by fully-qualified name or alias.
func (c *MDBClient) GetContainer(ctx context.Context, name string) (*model.ContainerInfo, error) {
	var info model.ContainerInfo
	if err := c.session.Get(ctx, c.path("containers")+utils.AdaptNameForREST(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListCommands lists all commands.
func (c *MDBClient) ListCommands(ctx context.Context, opts ...ListOption) ([]model.CommandInfo, error) {
	var out []model.CommandInfo
	err := c.list(ctx, "commands", opts, func(raw []byte) error {
		var resp struct {
			Commands []model.CommandInfo `json:"commands"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		out = append(out, resp.Commands...)
		return nil
	})
	return out, err
}

// GetCommand gets a single command by fully-qualified name or alias.
func (c *MDBClient) GetCommand(ctx context.Context, name string) (*model.CommandInfo, error) {
	var info model.CommandInfo
	if err := c.session.Get(ctx, c.path("commands")+utils.AdaptNameForREST(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListSpaceSystems lists all space systems.
func (c *MDBClient) ListSpaceSystems(ctx context.Context, opts ...ListOption) ([]model.SpaceSystemInfo, error) {
	var out []model.SpaceSystemInfo
	err := c.list(ctx, "space-systems", opts, func(raw []byte) error {
		var resp struct {
			SpaceSystems []model.SpaceSystemInfo `json:"spaceSystems"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		out = append(out, resp.SpaceSystems...)
		return nil
	})
	return out, err
}
