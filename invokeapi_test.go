package lexful

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (*nopLogger) Debug(event interface{})                 {}
func (*nopLogger) Info(event interface{})                  {}
func (*nopLogger) Warn(event interface{})                  {}
func (*nopLogger) Error(event interface{})                 {}
func (*nopLogger) SetField(name string, value interface{}) {}
func (logger *nopLogger) Copy() Logger {
	return logger
}

var testLogger = &nopLogger{}

func testLogFn(context.Context) Logger { return testLogger }

type nopStat struct{}

func (*nopStat) Gauge(stat string, value float64, tags ...string)        {}
func (*nopStat) Count(stat string, count float64, tags ...string)        {}
func (*nopStat) Histogram(stat string, value float64, tags ...string)    {}
func (*nopStat) Timing(stat string, value time.Duration, tags ...string) {}
func (*nopStat) AddTags(tags ...string)                                  {}
func (*nopStat) GetTags() []string {
	return []string{}
}

var testStat = &nopStat{}

func testStatFn(context.Context) Stat { return testStat }

var testName = "TestIntent"

type testCtxKey string

var (
	ctxKey  testCtxKey = "key"
	ctxKey2 testCtxKey = "key2"
)

type URLParam string

func (p URLParam) Get(context.Context, string) string {
	return string(p)
}

func TestBackgroundContext(t *testing.T) {
	original, cancelOriginal := context.WithCancel(context.Background())
	original = context.WithValue(original, ctxKey, "value")
	defer cancelOriginal()

	var bg context.Context = &bgContext{
		Context: context.Background(),
		Values:  original,
	}
	bg = context.WithValue(bg, ctxKey2, "value2")
	bg, cancelBg := context.WithCancel(bg)
	defer cancelBg()

	v := bg.Value(ctxKey)
	assert.IsType(t, "", v, "bgContext did not preserve values")
	assert.Equal(t, v, "value")
	v = bg.Value(ctxKey2)
	assert.IsType(t, "", v, "bgContext did not expose new values")
	assert.Equal(t, v, "value2")

	cancelOriginal()
	select {
	case <-bg.Done():
		assert.Fail(t, "bgContext was prematurely canceled")
	default:
	}

	cancelBg()
	select {
	case <-bg.Done():
	default:
		assert.Fail(t, "bgContext did respect it's own cancelation")
	}
}

func Test_statusFromError(t *testing.T) {
	type args struct {
		err error
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "nil",
			args: args{err: nil},
			want: http.StatusOK,
		},
		{
			name: "*json.SyntaxError",
			args: args{err: &json.SyntaxError{}},
			want: http.StatusBadRequest,
		},
		{
			name: "*json.InvalidUnmarshalError",
			args: args{err: &json.InvalidUnmarshalError{}},
			want: http.StatusBadRequest,
		},
		{
			name: "*json.UnmarshalTypeError",
			args: args{err: &json.UnmarshalTypeError{}},
			want: http.StatusBadRequest,
		},
		{
			name: "wrapped decode error",
			args: args{err: errors.Join(errors.New("decode"), &json.SyntaxError{})},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown",
			args: args{err: errors.New(testName)},
			want: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFromError(tt.args.err); got != tt.want {
				t.Errorf("statusFromError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_responseFromError(t *testing.T) {
	type args struct {
		err error
	}
	tests := []struct {
		name string
		args args
		want lambdaError
	}{
		{
			name: "non-pointer",
			args: args{err: NotFoundError{Intent: testName}},
			want: lambdaError{
				Message:    NotFoundError{Intent: testName}.Error(),
				Type:       "NotFoundError",
				StackTrace: errResponseStackTrace,
			},
		},
		{
			name: "pointer",
			args: args{err: &NotFoundError{Intent: testName}},
			want: lambdaError{
				Message:    NotFoundError{Intent: testName}.Error(),
				Type:       "NotFoundError",
				StackTrace: errResponseStackTrace,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := responseFromError(tt.args.err); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("responseFromError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvokeInvalidInvocationType(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bot := NewMockInvoker(ctrl)
	handler := &Invoke{
		Bot:    bot,
		LogFn:  testLogFn,
		StatFn: testStatFn,
	}
	w := httptest.NewRecorder()
	r, _ := http.NewRequest(http.MethodPost, "/bot/invocations", http.NoBody)
	r.Header.Set(invocationTypeHeader, "unknown")

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var lErr lambdaError
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &lErr))
	assert.Equal(t, "InvalidParameterValueException", lErr.Type)
}

func TestInvokeDryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bot := NewMockInvoker(ctrl)
	handler := &Invoke{
		Bot:    bot,
		LogFn:  testLogFn,
		StatFn: testStatFn,
	}
	w := httptest.NewRecorder()
	r, _ := http.NewRequest(http.MethodPost, "/bot/invocations", http.NoBody)
	r.Header.Set(invocationTypeHeader, invocationTypeDryRun)

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestInvokeEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	done := make(chan interface{})
	bot := NewMockInvoker(ctrl)
	handler := &Invoke{
		Bot:    bot,
		LogFn:  testLogFn,
		StatFn: testStatFn,
	}
	w := httptest.NewRecorder()
	input := []byte("data")
	output := []byte("response")
	r, _ := http.NewRequest(http.MethodPost, "/bot/invocations", bytes.NewReader(input))
	r.Header.Set(invocationTypeHeader, invocationTypeEvent)

	bot.EXPECT().Invoke(gomock.Any(), input).Do(func(context.Context, []byte) {
		close(done)
	}).Return(output, nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusAccepted, w.Code)
	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "event was not executed in the background")
	}
}

func TestInvokeRequestResponseBadInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bot := NewMockInvoker(ctrl)
	handler := &Invoke{
		Bot:    bot,
		LogFn:  testLogFn,
		StatFn: testStatFn,
	}
	w := httptest.NewRecorder()
	input := []byte("not json")
	r, _ := http.NewRequest(http.MethodPost, "/bot/invocations", bytes.NewReader(input))

	bot.EXPECT().Invoke(gomock.Any(), input).Return(nil, &json.SyntaxError{})
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, invocationErrorTypeHandled, w.Header().Get(invocationErrorHeader))
}

func TestInvokeRequestResponseBotError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bot := NewMockInvoker(ctrl)
	handler := &Invoke{
		Bot:    bot,
		LogFn:  testLogFn,
		StatFn: testStatFn,
	}
	w := httptest.NewRecorder()
	input := []byte("data")
	r, _ := http.NewRequest(http.MethodPost, "/bot/invocations", bytes.NewReader(input))

	bot.EXPECT().Invoke(gomock.Any(), input).Return(nil, errors.New("fail"))
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, invocationErrorTypeUnhandled, w.Header().Get(invocationErrorHeader))
}

func TestInvokeRequestResponseSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bot := NewMockInvoker(ctrl)
	handler := &Invoke{
		Bot:    bot,
		LogFn:  testLogFn,
		StatFn: testStatFn,
	}
	w := httptest.NewRecorder()
	input := []byte("data")
	output := []byte("response")
	r, _ := http.NewRequest(http.MethodPost, "/bot/invocations", bytes.NewReader(input))

	bot.EXPECT().Invoke(gomock.Any(), input).Return(output, nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, output, w.Body.Bytes())
	assert.Equal(t, "latest", w.Header().Get(invocationVersionHeader))
}

func TestIntentInvokeNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fetcher := NewMockFetcher(ctrl)
	handler := &IntentInvoke{
		Fetcher:    fetcher,
		LogFn:      testLogFn,
		StatFn:     testStatFn,
		URLParamFn: URLParam(testName).Get,
	}
	w := httptest.NewRecorder()
	r, _ := http.NewRequest(http.MethodPost, "/bot/intents/"+testName+"/invocations", http.NoBody)

	fetcher.EXPECT().Fetch(gomock.Any(), testName).Return(nil, NotFoundError{Intent: testName})
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntentInvokeFetchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fetcher := NewMockFetcher(ctrl)
	handler := &IntentInvoke{
		Fetcher:    fetcher,
		LogFn:      testLogFn,
		StatFn:     testStatFn,
		URLParamFn: URLParam(testName).Get,
	}
	w := httptest.NewRecorder()
	r, _ := http.NewRequest(http.MethodPost, "/bot/intents/"+testName+"/invocations", http.NoBody)

	fetcher.EXPECT().Fetch(gomock.Any(), testName).Return(nil, errors.New("fail"))
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIntentInvokeSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fetcher := NewMockFetcher(ctrl)
	intent := NewMockIntentHandler(ctrl)
	handler := &IntentInvoke{
		Fetcher:    fetcher,
		LogFn:      testLogFn,
		StatFn:     testStatFn,
		URLParamFn: URLParam(testName).Get,
	}
	w := httptest.NewRecorder()
	input := []byte(`{"sessionState": {"intent": {"name": "` + testName + `"}}}`)
	r, _ := http.NewRequest(http.MethodPost, "/bot/intents/"+testName+"/invocations", bytes.NewReader(input))

	fetcher.EXPECT().Fetch(gomock.Any(), testName).Return(intent, nil)
	intent.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(closeResponse("done"), nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		SessionState struct {
			DialogAction struct {
				Type string `json:"type"`
			} `json:"dialogAction"`
		} `json:"sessionState"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Close", resp.SessionState.DialogAction.Type)
}

func TestIntentInvokeMalformedEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fetcher := NewMockFetcher(ctrl)
	intent := NewMockIntentHandler(ctrl)
	handler := &IntentInvoke{
		Fetcher:    fetcher,
		LogFn:      testLogFn,
		StatFn:     testStatFn,
		URLParamFn: URLParam(testName).Get,
	}
	w := httptest.NewRecorder()
	input := []byte("not json")
	r, _ := http.NewRequest(http.MethodPost, "/bot/intents/"+testName+"/invocations", bytes.NewReader(input))

	fetcher.EXPECT().Fetch(gomock.Any(), testName).Return(intent, nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
