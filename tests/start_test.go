//go:build integration
// +build integration

package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	settings "github.com/asecurityteam/settings/v2"
	"github.com/stretchr/testify/require"

	lexful "github.com/lexful/lexful"
	"github.com/lexful/lexful/dialog"
	"github.com/lexful/lexful/lexv2"
)

type logLine struct {
	Message string `logevent:"message,default=log-line"`
}

// greeting exercises the log and stat context plumbing on top of a normal
// close response so a panic in either surfaces as a failed invocation.
func greeting(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	lexful.LoggerFromContext(ctx).Info(logLine{})
	lexful.StatFromContext(ctx).Count("stat", 1)
	return dialog.Close(req, lexv2.PlainText{Content: "Hello ƛ!"}), nil
}

func testEvent(intent string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"messageVersion":   "1.0",
		"invocationSource": "FulfillmentCodeHook",
		"sessionId":        "integration-session",
		"bot":              map[string]string{"name": "testbot", "localeId": "en_US"},
		"sessionState": map[string]interface{}{
			"intent": map[string]string{"name": intent, "state": "InProgress"},
		},
	})
	return b
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	fetcher := &lexful.StaticFetcher{Handlers: map[string]lexful.IntentHandler{
		"greeting": lexful.IntentFunc(greeting),
	}}
	bot := lexful.NewBot(fetcher, lexful.DefaultConfig())
	// These tests are not safe to run in parallel but the subtest is parallel
	// by default unless we modify the `go test` command to include special values.
	// To work around this we've introduced a mutex to ensure only one test is
	// running concurrently. Ordering of the tests does not matter.
	mut := &sync.Mutex{}

	// makeBotCall posts a code-hook event to the invoke endpoint until either
	// a closed response comes back or the loop times out. The retry loop is to
	// account for arbitrary start-up time of the server in the background.
	var makeBotCall = func(t *testing.T, port string) error {
		stop := time.Now().Add(5 * time.Second)
		for time.Now().Before(stop) {
			time.Sleep(100 * time.Millisecond)
			resp, err := http.DefaultClient.Post(
				fmt.Sprintf("http://localhost:%s/bot/invocations", port),
				"application/json",
				bytes.NewReader(testEvent("Greeting")),
			)
			if err != nil {
				t.Log(err.Error())
				continue
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				t.Log(resp.StatusCode)
				t.Log(string(b))
				continue
			}
			var out lexv2.Response
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Log(err.Error())
				continue
			}
			if out.SessionState.DialogAction == nil || out.SessionState.DialogAction.Type != lexv2.DialogActionClose {
				t.Logf("%+v", out)
				continue
			}
			return nil
		}
		return errors.New("failed to invoke bot")
	}

	for _, testCase := range []struct {
		Name    string
		StartFN func(context.Context, settings.Source, *lexful.Bot) error
	}{
		{
			Name:    "http",
			StartFN: lexful.StartHTTP,
		},
		{
			Name:    "http_mock",
			StartFN: lexful.StartHTTPMock,
		},
	} {
		t.Run(testCase.Name, func(t *testing.T) {
			mut.Lock()
			defer mut.Unlock()

			port, err := getPort()
			require.NoError(t, err)

			// Rather than mock out the settings.Source, it ends up being easier
			// to manage and slightly more realistic to use the ENV source but
			// populated with a static ENV list. These ENV vars are exactly the
			// ones that users would set when running the system.
			source, err := settings.NewEnvSource([]string{
				"LEXFUL_RUNTIME_HTTPSERVER_ADDRESS=localhost:" + port,
				"LEXFUL_RUNTIME_LOGGER_OUTPUT=NULL",
				"LEXFUL_RUNTIME_STATS_OUTPUT=NULL",
			})
			require.Nil(t, err)

			exit := make(chan error)
			go func() {
				exit <- testCase.StartFN(ctx, source, bot)
			}()
			require.NoError(t, makeBotCall(t, port))
			// The runtime establishes a signal handler for the entire
			// process. This means we have the process signal itself and
			// the runtime will intercept the call. This enables us to test
			// the signal based shutdown behavior.
			proc, _ := os.FindProcess(os.Getpid())
			_ = proc.Signal(os.Interrupt)
			select {
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for exit")
			case err := <-exit:
				require.Nil(t, err)
			}
		})
	}
}
