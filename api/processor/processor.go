package processor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yamcs/yamcs-client-go/internal/client"
	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

var commandSequence atomic.Int32

// nextCommandSequence is shared by all processor clients of the process.
func nextCommandSequence() int32 {
	return commandSequence.Add(1)
}

var defaultOrigin = func() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return uuid.NewString()
}()

// ProcessorClient groups operations linked to a specific processor.
type ProcessorClient struct {
	session   *client.Session
	instance  string
	processor string
	logger    zerolog.Logger
}

// NewProcessorClient binds session to instance and processor.
func NewProcessorClient(session *client.Session, instance, processor string) *ProcessorClient {
	return &ProcessorClient{
		session:   session,
		instance:  instance,
		processor: processor,
		logger: session.Logger().With().
			Str("instance", instance).
			Str("processor", processor).
			Logger(),
	}
}

// Instance this client is bound to.
func (c *ProcessorClient) Instance() string { return c.instance }

// Processor this client is bound to.
func (c *ProcessorClient) Processor() string { return c.processor }

func (c *ProcessorClient) path(format string, args ...interface{}) string {
	prefix := "/processors/" + url.PathEscape(c.instance) + "/" + url.PathEscape(c.processor)
	return prefix + fmt.Sprintf(format, args...)
}

func buildGetQuery(opts []GetOption) (url.Values, error) {
	req := getRequest{fromCache: true, timeout: defaultValueTimeout}
	for _, opt := range opts {
		if err := opt(&req); err != nil {
			return nil, err
		}
	}
	return url.Values{
		"fromCache": {strconv.FormatBool(req.fromCache)},
		"timeout":   {strconv.FormatInt(req.timeout.Milliseconds(), 10)},
	}, nil
}

// GetParameterValue retrieves the current value of a parameter. The name is
// either a fully-qualified XTCE name or an alias in the format NAMESPACE/NAME.
// It returns nil when the server knows no value.
func (c *ProcessorClient) GetParameterValue(ctx context.Context, name string, opts ...GetOption) (*model.ParameterValue, error) {
	query, err := buildGetQuery(opts)
	if err != nil {
		return nil, err
	}
	var pval model.ParameterValue
	if err := c.session.Get(ctx, c.path("/parameters%s", utils.AdaptNameForREST(name)), query, &pval); err != nil {
		return nil, err
	}
	if !pval.HasValue() {
		return nil, nil
	}
	return &pval, nil
}

type bulkGetRequest struct {
	ID []model.NamedObjectID `json:"id"`
}

type bulkGetResponse struct {
	Value []model.ParameterValue `json:"value"`
}

// GetParameterValues retrieves the current values of multiple parameters. The
// result matches the length and order of names, with nil for parameters
// without a value.
func (c *ProcessorClient) GetParameterValues(ctx context.Context, names []string, opts ...GetOption) ([]*model.ParameterValue, error) {
	query, err := buildGetQuery(opts)
	if err != nil {
		return nil, err
	}
	ids, err := utils.BuildNamedObjectIDs(names)
	if err != nil {
		return nil, err
	}
	var resp bulkGetResponse
	err = c.session.DoJSON(ctx, http.MethodPost, c.path("/parameters/mget"), query, bulkGetRequest{ID: ids}, &resp)
	if err != nil {
		return nil, err
	}

	pvals := make([]*model.ParameterValue, len(ids))
	for i, id := range ids {
		for j := range resp.Value {
			if resp.Value[j].ID == id {
				pvals[i] = &resp.Value[j]
				break
			}
		}
	}
	return pvals, nil
}

// SetParameterValue sets the value of a software parameter.
func (c *ProcessorClient) SetParameterValue(ctx context.Context, name string, value interface{}) error {
	v, err := utils.BuildValue(value)
	if err != nil {
		return err
	}
	return c.session.Put(ctx, c.path("/parameters%s", utils.AdaptNameForREST(name)), v, nil)
}

type setParameterValue struct {
	ID    model.NamedObjectID `json:"id"`
	Value model.Value         `json:"value"`
}

type bulkSetRequest struct {
	Request []setParameterValue `json:"request"`
}

// SetParameterValues sets the values of multiple parameters in one request.
func (c *ProcessorClient) SetParameterValues(ctx context.Context, values map[string]interface{}) error {
	req := bulkSetRequest{Request: make([]setParameterValue, 0, len(values))}
	for _, name := range sortedKeys(values) {
		id, err := utils.BuildNamedObjectID(name)
		if err != nil {
			return err
		}
		v, err := utils.BuildValue(values[name])
		if err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		req.Request = append(req.Request, setParameterValue{ID: id, Value: v})
	}
	return c.session.Post(ctx, c.path("/parameters/mset"), req, nil)
}

type argumentAssignment struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type issueCommandRequest struct {
	SequenceNumber int32                `json:"sequenceNumber"`
	Origin         string               `json:"origin"`
	DryRun         bool                 `json:"dryRun"`
	Comment        string               `json:"comment,omitempty"`
	Assignment     []argumentAssignment `json:"assignment,omitempty"`
}

// IssueCommand issues a command. Argument values are sent in their string
// form.
func (c *ProcessorClient) IssueCommand(ctx context.Context, name string, args map[string]interface{}, opts ...CommandOption) (*IssuedCommand, error) {
	req := issueCommandRequest{
		SequenceNumber: nextCommandSequence(),
		Origin:         defaultOrigin,
	}
	for _, opt := range opts {
		if err := opt(&req); err != nil {
			return nil, err
		}
	}
	for _, key := range sortedKeys(args) {
		req.Assignment = append(req.Assignment, argumentAssignment{Name: key, Value: stringify(args[key])})
	}

	var issued model.IssuedCommand
	if err := c.session.Post(ctx, c.path("/commands%s", utils.AdaptNameForREST(name)), req, &issued); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("command", name).Int32("seq", req.SequenceNumber).Bool("dry_run", req.DryRun).Msg("command issued")
	return &IssuedCommand{IssuedCommand: issued, client: c}, nil
}

type listAlarmsResponse struct {
	Alarm []model.Alarm `json:"alarm"`
}

// ListAlarms lists the active alarms of this processor. Zero times leave the
// corresponding bound open. start is inclusive, stop exclusive.
func (c *ProcessorClient) ListAlarms(ctx context.Context, start, stop time.Time) ([]model.Alarm, error) {
	query := url.Values{"order": {"asc"}}
	if !start.IsZero() {
		query.Set("start", utils.ToISOString(start))
	}
	if !stop.IsZero() {
		query.Set("stop", utils.ToISOString(stop))
	}
	var resp listAlarmsResponse
	if err := c.session.Get(ctx, c.path("/alarms"), query, &resp); err != nil {
		return nil, err
	}
	return resp.Alarm, nil
}

type editAlarmRequest struct {
	State   string `json:"state"`
	Comment string `json:"comment,omitempty"`
}

// AcknowledgeAlarm acknowledges an active alarm.
func (c *ProcessorClient) AcknowledgeAlarm(ctx context.Context, alarm *model.Alarm, comment string) error {
	seq, ok := alarm.SequenceNumber()
	if !ok {
		return fmt.Errorf("alarm of %s has no sequence number", alarm.Name())
	}
	uri := c.path("/parameters%s/alarms/%d", utils.AdaptNameForREST(alarm.Name()), seq)
	return c.session.Put(ctx, uri, editAlarmRequest{State: "acknowledged", Comment: comment}, nil)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
