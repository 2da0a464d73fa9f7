package docgen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	val string
	err error
}

func (f *fakeGetter) GetParameter(context.Context, string) (string, error) {
	return f.val, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeGetter{val: `{"token":"sk-test"}`},
		"/agenda-agent",
		"asst_agenda",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
		WithPolling(5*time.Millisecond, 500*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

// assistantServer simulates the threads/runs/messages endpoints. Run statuses
// are served in sequence, one per poll.
type assistantServer struct {
	mu          sync.Mutex
	runStatuses []string
	statusIdx   int
	reply       string
	lastMessage string
}

func (a *assistantServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		require.Equal(t, "assistants=v2", r.Header.Get("OpenAI-Beta"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/threads":
			_, _ = w.Write([]byte(`{"id":"th-1"}`))

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/messages"):
			raw, _ := io.ReadAll(r.Body)
			var body map[string]any
			_ = json.Unmarshal(raw, &body)
			a.lastMessage, _ = body["content"].(string)
			_, _ = w.Write([]byte(`{"id":"msg-1"}`))

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/runs"):
			raw, _ := io.ReadAll(r.Body)
			require.Contains(t, string(raw), `"assistant_id":"asst_agenda"`)
			_, _ = w.Write([]byte(`{"id":"run-1","status":"` + a.nextStatus() + `"}`))

		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/runs/"):
			_, _ = w.Write([]byte(`{"id":"run-1","status":"` + a.nextStatus() + `"}`))

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/messages"):
			_, _ = w.Write([]byte(`{"data":[{"role":"assistant","content":[{"type":"text","text":{"value":"` + a.reply + `"}}]}]}`))

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (a *assistantServer) nextStatus() string {
	if a.statusIdx >= len(a.runStatuses) {
		return a.runStatuses[len(a.runStatuses)-1]
	}
	s := a.runStatuses[a.statusIdx]
	a.statusIdx++
	return s
}

func TestNewClient_Validation(t *testing.T) {
	g := &fakeGetter{}
	_, err := NewClient(nil, "/agenda-agent", "asst")
	require.ErrorContains(t, err, "nil")

	_, err = NewClient(g, " ", "asst")
	require.ErrorContains(t, err, "prefix")

	_, err = NewClient(g, "/agenda-agent", " ")
	require.ErrorContains(t, err, "assistant id")
}

func TestCreateThread(t *testing.T) {
	as := &assistantServer{runStatuses: []string{"completed"}}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	id, err := c.CreateThread(context.Background())
	require.NoError(t, err)
	require.Equal(t, "th-1", id)
}

func TestCreateThread_EmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.CreateThread(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty thread id")
}

func TestGenerate_PollsRunToCompletion(t *testing.T) {
	as := &assistantServer{
		runStatuses: []string{"queued", "in_progress", "completed"},
		reply:       "Document saved as Agenda-ADS-Contoso.docx",
	}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.Generate(context.Background(), "th-1", "| Time | Topic |")
	require.NoError(t, err)
	require.Equal(t, "Document saved as Agenda-ADS-Contoso.docx", out)

	// The agenda is framed by the fixed document instructions.
	require.Contains(t, as.lastMessage, "DO NOT CREATE A NEW TABLE")
	require.Contains(t, as.lastMessage, "| Time | Topic |")
}

func TestGenerate_RunFails(t *testing.T) {
	as := &assistantServer{runStatuses: []string{"queued", "failed"}}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Generate(context.Background(), "th-1", "agenda")
	require.Error(t, err)
	require.Contains(t, err.Error(), `status "failed"`)
}

func TestGenerate_PollTimeout(t *testing.T) {
	as := &assistantServer{runStatuses: []string{"in_progress"}}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.pollTimeout = 30 * time.Millisecond

	_, err := c.Generate(context.Background(), "th-1", "agenda")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not complete")
}

func TestGenerate_EmptyThreadID(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":"sk-test"}`}, "/agenda-agent", "asst_agenda")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), " ", "agenda")
	require.Error(t, err)
	require.Contains(t, err.Error(), "thread id")
}

func TestGenerate_NoAssistantReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages") && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"data":[{"role":"user","content":[]}]}`))
		case strings.HasSuffix(r.URL.Path, "/runs"):
			_, _ = w.Write([]byte(`{"id":"run-1","status":"completed"}`))
		default:
			_, _ = w.Write([]byte(`{"id":"x"}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Generate(context.Background(), "th-1", "agenda")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no assistant reply")
}

func TestGenerate_TokenFetchError(t *testing.T) {
	c, err := NewClient(&fakeGetter{err: errors.New("ssm unavailable")}, "/agenda-agent", "asst_agenda")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "th-1", "agenda")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}
