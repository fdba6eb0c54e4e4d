package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamcs/yamcs-client-go/internal/websocket"
	"github.com/yamcs/yamcs-client-go/internal/websocket/wstest"
	"github.com/yamcs/yamcs-client-go/model"
)

// execute runs the CLI with an isolated config directory.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := &cli{in: strings.NewReader(stdin), out: &out, errOut: &errOut}
	cmd := c.newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	c.closeLog()
	return out.String(), err
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(model.EnvUsername, "")
	t.Setenv(model.EnvPassword, "")
	t.Setenv(model.EnvAccessToken, "")
}

func TestConfigProperties(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "config", "set", "address", "localhost:8090")
	require.NoError(t, err)
	_, err = execute(t, "", "config", "set", "instance", "simulator")
	require.NoError(t, err)
	_, err = execute(t, "", "config", "set", "tls", "yes")
	assert.Error(t, err)
	_, err = execute(t, "", "config", "set", "color", "blue")
	assert.Error(t, err)

	out, err := execute(t, "", "config", "get", "instance")
	require.NoError(t, err)
	assert.Equal(t, "simulator\n", out)

	out, err = execute(t, "", "config", "list")
	require.NoError(t, err)
	assert.Equal(t, "[core]\naddress = localhost:8090\ninstance = simulator\n", out)

	_, err = execute(t, "", "config", "unset", "instance")
	require.NoError(t, err)
	out, err = execute(t, "", "config", "get", "instance")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMissingInstance(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "--address", "localhost:1", "links", "list")
	assert.ErrorContains(t, err, "no instance specified")
}

func TestErrorMessage(t *testing.T) {
	err := &model.APIError{StatusCode: http.StatusUnauthorized}
	assert.Equal(t, unauthorizedMessage, errorMessage(err))
	assert.Equal(t, "boom", errorMessage(errors.New("boom")))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"true", true},
		{"FALSE", false},
		{"1", int64(1)},
		{"0", int64(0)},
		{"t", "t"},
		{"42", int64(42)},
		{"-1.5", -1.5},
		{"on", "on"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}

func TestParseAssignments(t *testing.T) {
	args, err := parseAssignments([]string{"voltage_num=1", "voltage_level=3.5", "label=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"voltage_num":   int64(1),
		"voltage_level": 3.5,
		"label":         "a=b",
	}, args)

	_, err = parseAssignments([]string{"novalue"})
	assert.Error(t, err)
}

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		in     string
		want   objectURL
		wantOK bool
	}{
		{"displays://a.txt", objectURL{bucket: "displays", object: "a.txt"}, true},
		{"displays://dir/a.txt", objectURL{bucket: "displays", object: "dir/a.txt"}, true},
		{"displays://", objectURL{bucket: "displays"}, true},
		{"a.txt", objectURL{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseObjectURL(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeYamcs struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	patched  []string
	denyAuth bool
}

func (f *fakeYamcs) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyAuth {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	const bucket = "/api/buckets/simulator/displays"
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/api/buckets/simulator":
		w.Write([]byte(`{"buckets":[{"name":"displays"},{"name":"user.admin"}]}`))
	case r.Method == http.MethodGet && path == bucket:
		if r.URL.Query().Get("delimiter") == "/" {
			w.Write([]byte(`{"prefix":["sub/"],"object":[{"name":"a.txt","size":"3","created":"2019-01-01T00:00:00.000Z"}]}`))
			return
		}
		w.Write([]byte(`{"object":[{"name":"a.txt","size":"3"},{"name":"sub/b.txt","size":"4"}]}`))
	case r.Method == http.MethodPost && path == bucket:
		name, data, err := readUpload(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[name] = data
	case r.Method == http.MethodGet && strings.HasPrefix(path, bucket+"/"):
		data, ok := f.objects[strings.TrimPrefix(path, bucket+"/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	case r.Method == http.MethodDelete && strings.HasPrefix(path, bucket+"/"):
		f.deleted = append(f.deleted, strings.TrimPrefix(path, bucket+"/"))
	case r.Method == http.MethodGet && path == "/api/links/simulator":
		w.Write([]byte(`{"links":[{"instance":"simulator","name":"tm_realtime","type":"UdpTmDataLink","status":"OK","dataInCount":"12","dataOutCount":"0"}]}`))
	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/api/links/simulator/"):
		body, _ := io.ReadAll(r.Body)
		f.patched = append(f.patched, strings.TrimPrefix(path, "/api/links/simulator/")+" "+string(body))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// readUpload keeps slashes in the uploaded file name, which
// multipart.Part.FileName would strip.
func readUpload(r *http.Request) (string, []byte, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, err
	}
	part, err := mr.NextPart()
	if err != nil {
		return "", nil, err
	}
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", nil, err
	}
	data, err := io.ReadAll(part)
	return params["filename"], data, err
}

func newFakeYamcs(t *testing.T) (*fakeYamcs, string) {
	t.Helper()
	isolate(t)
	f := &fakeYamcs{objects: map[string][]byte{"a.txt": []byte("abc"), "sub/b.txt": []byte("defg")}}
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	return f, strings.TrimPrefix(ts.URL, "http://")
}

func TestLinks(t *testing.T) {
	f, address := newFakeYamcs(t)

	out, err := execute(t, "", "--address", address, "--instance", "simulator", "links", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"NAME", "CLASS", "STATUS", "IN", "OUT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"tm_realtime", "UdpTmDataLink", "OK", "12", "0"}, strings.Fields(lines[1]))

	_, err = execute(t, "", "--address", address, "--instance", "simulator", "links", "disable", "tm_realtime", "tc_sim")
	require.NoError(t, err)
	assert.Equal(t, []string{`tm_realtime {"state":"disabled"}`, `tc_sim {"state":"disabled"}`}, f.patched)
}

func TestUnauthorized(t *testing.T) {
	f, address := newFakeYamcs(t)
	f.mu.Lock()
	f.denyAuth = true
	f.mu.Unlock()

	_, err := execute(t, "", "--address", address, "--instance", "simulator", "links", "list")
	require.Error(t, err)
	assert.Equal(t, unauthorizedMessage, errorMessage(err))
}

func TestStorageList(t *testing.T) {
	_, address := newFakeYamcs(t)
	base := []string{"--address", address, "--instance", "simulator", "storage"}

	out, err := execute(t, "", append(base, "ls")...)
	require.NoError(t, err)
	assert.Equal(t, "displays\nuser.admin\n", out)

	out, err = execute(t, "", append(base, "ls", "displays")...)
	require.NoError(t, err)
	assert.Equal(t, "displays://sub/\ndisplays://a.txt\n", out)

	out, err = execute(t, "", append(base, "list", "displays", "-r")...)
	require.NoError(t, err)
	assert.Equal(t, "displays://a.txt\ndisplays://sub/b.txt\n", out)

	out, err = execute(t, "", append(base, "ls", "-l", "displays")...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"0", "displays://sub/"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"3", "2019-01-01T00:00:00.000Z", "displays://a.txt"}, strings.Fields(lines[1]))
}

func TestStorageObjects(t *testing.T) {
	f, address := newFakeYamcs(t)
	base := []string{"--address", address, "--instance", "simulator", "storage"}

	out, err := execute(t, "", append(base, "cat", "displays://a.txt", "displays://sub/b.txt")...)
	require.NoError(t, err)
	assert.Equal(t, "abcdefg", out)

	_, err = execute(t, "", append(base, "cat", "a.txt")...)
	assert.True(t, errors.Is(err, errObjectFormat))
	_, err = execute(t, "", append(base, "rm", "a.txt")...)
	assert.True(t, errors.Is(err, errObjectFormat))

	dir := t.TempDir()
	_, err = execute(t, "", append(base, "cp", "displays://sub/b.txt", dir)...)
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "defg", string(content))

	local := filepath.Join(dir, "local.txt")
	require.NoError(t, os.WriteFile(local, []byte("xyz"), 0o644))
	_, err = execute(t, "", append(base, "mv", local, "displays://")...)
	require.NoError(t, err)
	_, err = os.Stat(local)
	assert.True(t, os.IsNotExist(err))

	_, err = execute(t, "", append(base, "cp", "displays://a.txt", "displays://sub/b.txt", "displays://copies/")...)
	require.NoError(t, err)

	_, err = execute(t, "", append(base, "cp", "displays://a.txt", "displays://sub/b.txt", "displays://single")...)
	assert.Error(t, err)

	_, err = execute(t, "", append(base, "rm", "displays://a.txt", "displays://sub/b.txt")...)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []byte("xyz"), f.objects["local.txt"])
	assert.Equal(t, []byte("abc"), f.objects["copies/a.txt"])
	assert.Equal(t, []byte("defg"), f.objects["copies/b.txt"])
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, f.deleted)
}

const issuedCommandJSON = `{"commandQueueEntry":{"cmdId":{"generationTime":"1546300800000","origin":"host","sequenceNumber":1,"commandName":"/YSS/SIMULATOR/SWITCH_VOLTAGE_ON"},"username":"operator"},"source":"SWITCH_VOLTAGE_ON(voltage_num: 1)"}`

func historyAttr(name, value string) map[string]interface{} {
	return map[string]interface{}{"name": name, "value": map[string]interface{}{"type": "STRING", "stringValue": value}}
}

func historyEntry(attrs ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"commandId": map[string]interface{}{
			"generationTime": "1546300800000",
			"origin":         "host",
			"sequenceNumber": 1,
			"commandName":    "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON",
		},
		"attr": attrs,
	}
}

// newCommandingServer answers command issues over REST and streams history
// over the WebSocket. history runs once the command was issued.
func newCommandingServer(t *testing.T, history func(c *wstest.Conn, seq int32)) (string, <-chan *wstest.Request) {
	t.Helper()
	isolate(t)
	issued := make(chan struct{}, 1)
	requests := make(chan *wstest.Request, 1)
	rest := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "/commands/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(issuedCommandJSON))
		issued <- struct{}{}
	})
	srv := wstest.NewServerWithFallback("/_websocket/", rest, func(c *wstest.Conn) {
		req, err := c.ReadRequest()
		if err != nil {
			return
		}
		requests <- req
		_ = c.Reply(req.Seq, "", nil)
		select {
		case <-issued:
		case <-time.After(5 * time.Second):
			return
		}
		if history != nil {
			history(c, req.Seq)
		}
	})
	t.Cleanup(srv.Close)
	return srv.Address(), requests
}

func TestIssueAndWait(t *testing.T) {
	tests := []struct {
		name    string
		history func(c *wstest.Conn, seq int32)
		flags   []string
		wantErr string
		failed  bool
	}{
		{
			name: "completed",
			history: func(c *wstest.Conn, seq int32) {
				_ = c.Data(seq, websocket.DataTypeCommandHistory, historyEntry(historyAttr("CommandComplete", "OK")))
				c.Drain()
			},
		},
		{
			name: "failed",
			history: func(c *wstest.Conn, seq int32) {
				_ = c.Data(seq, websocket.DataTypeCommandHistory, historyEntry(
					historyAttr("CommandFailed", "Verifier timeout"),
					historyAttr("CommandComplete", "NOK"),
				))
				c.Drain()
			},
			wantErr: "Verifier timeout",
			failed:  true,
		},
		{
			name:    "history closed",
			history: func(c *wstest.Conn, seq int32) {},
			failed:  true,
		},
		{
			name:    "timeout",
			history: func(c *wstest.Conn, seq int32) { c.Drain() },
			flags:   []string{"--timeout", "200ms"},
			wantErr: "did not complete within 200ms",
			failed:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address, requests := newCommandingServer(t, tt.history)
			args := append([]string{"--address", address, "--instance", "simulator",
				"commands", "issue", "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON", "-a", "voltage_num=1", "--wait"}, tt.flags...)
			out, err := execute(t, "", args...)

			req := <-requests
			assert.Equal(t, "cmdhistory", req.Resource)
			assert.NotContains(t, string(req.Data), "commandId")

			if !tt.failed {
				require.NoError(t, err)
				assert.Contains(t, out, "SWITCH_VOLTAGE_ON")
				return
			}
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
