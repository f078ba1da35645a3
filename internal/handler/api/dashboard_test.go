package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
	"GridPulse/internal/service/board"
	"GridPulse/internal/service/cache"
	"GridPulse/internal/service/ratelimit"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type fakeController struct {
	settings models.Settings
	resets   int
}

func (f *fakeController) Settings(context.Context) (models.Settings, error) { return f.settings, nil }

func (f *fakeController) UpdateSettings(_ context.Context, req models.SettingsRequest) (models.Settings, error) {
	next := req.Apply(f.settings)
	if err := next.Validate(f.Bounds()); err != nil {
		return f.settings, err
	}
	f.settings = next
	return next, nil
}

func (f *fakeController) Reset(context.Context) error {
	f.resets++
	return nil
}

func (f *fakeController) Bounds() models.SettingsBounds {
	return models.SettingsBounds{ThresholdMin: 1, ThresholdMax: 5}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func setup(opts ...DashboardOption) (*echo.Echo, *fakeController, *board.Board) {
	ctrl := &fakeController{settings: models.DefaultSettings()}
	b := board.New()
	e := echo.New()
	NewDashboardHandler(nil, ctrl, b, opts...).RegisterRoutes(e)
	return e, ctrl, b
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func sampleFrame() *models.Frame {
	return &models.Frame{
		Tick:     7,
		Snapshot: models.Snapshot{HasData: true, Observed: 1.2, Forecast: 1.9, Classification: models.Elevated, Samples: 3},
		Settings: models.DefaultSettings(),
		History: models.History{
			Observed: []float64{1.0, 1.1, 1.2},
			Forecast: []float64{1.5, 1.7, 1.9},
		},
		Status: models.Status{InferenceAvailable: true, IngressConnected: true},
	}
}

func TestSnapshotBeforeAndAfterFirstFrame(t *testing.T) {
	e, _, b := setup()

	rec, _ := do(t, e, http.MethodGet, "/api/snapshot", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("before first frame status = %d", rec.Code)
	}

	_ = b.Render(context.Background(), sampleFrame())
	rec, env := do(t, e, http.MethodGet, "/api/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var f models.Frame
	if err := json.Unmarshal(env.Data, &f); err != nil || f.Tick != 7 || f.Snapshot.Classification != models.Elevated {
		t.Fatalf("frame = %+v err = %v", f, err)
	}
}

func TestSnapshotPrefersCache(t *testing.T) {
	sink := cache.NewSnapshotSink(cache.NewTTLCache(), "k", time.Minute)
	e, _, b := setup(WithFrameCache(sink))

	_ = b.Render(context.Background(), sampleFrame())
	cached := sampleFrame()
	cached.Tick = 99
	_ = sink.Render(context.Background(), cached)

	_, env := do(t, e, http.MethodGet, "/api/snapshot", "")
	var f models.Frame
	_ = json.Unmarshal(env.Data, &f)
	if f.Tick != 99 {
		t.Fatalf("tick = %d, want cached frame", f.Tick)
	}
}

func TestHistoryTail(t *testing.T) {
	e, _, b := setup()

	_, env := do(t, e, http.MethodGet, "/api/history", "")
	var empty historyResponse
	_ = json.Unmarshal(env.Data, &empty)
	if empty.Count != 0 || empty.Observed == nil {
		t.Fatalf("empty history = %+v", empty)
	}

	_ = b.Render(context.Background(), sampleFrame())
	_, env = do(t, e, http.MethodGet, "/api/history?last=2", "")
	var res historyResponse
	_ = json.Unmarshal(env.Data, &res)
	if res.Count != 2 || res.Observed[0] != 1.1 || res.Forecast[1] != 1.9 {
		t.Fatalf("history = %+v", res)
	}

	rec, _ := do(t, e, http.MethodGet, "/api/history?last=-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative last status = %d", rec.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	e, ctrl, _ := setup()

	rec, env := do(t, e, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"threshold_max":5`) {
		t.Fatalf("get settings = %d %s", rec.Code, env.Data)
	}

	cases := []struct {
		name string
		body string
		code int
	}{
		{"valid", `{"alert_threshold":3.2}`, http.StatusOK},
		{"out of bounds", `{"alert_threshold":8}`, http.StatusUnprocessableEntity},
		{"negative price", `{"price_per_unit":-1}`, http.StatusBadRequest},
		{"empty", `{}`, http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := do(t, e, http.MethodPut, "/api/settings", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tc.code, rec.Body)
			}
		})
	}
	if ctrl.settings.AlertThreshold != 3.2 || ctrl.settings.PricePerUnit != models.DefaultPricePerUnit {
		t.Fatalf("settings = %+v", ctrl.settings)
	}
}

func TestResetIsRateLimited(t *testing.T) {
	e, ctrl, _ := setup(WithControlLimiter(ratelimit.New(2, 0.001)))

	for i := 0; i < 2; i++ {
		if rec, _ := do(t, e, http.MethodPost, "/api/reset", ""); rec.Code != http.StatusOK {
			t.Fatalf("reset %d status = %d", i, rec.Code)
		}
	}
	if rec, _ := do(t, e, http.MethodPost, "/api/reset", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third reset status = %d", rec.Code)
	}
	if ctrl.resets != 2 {
		t.Fatalf("resets = %d", ctrl.resets)
	}
}

func TestHealth(t *testing.T) {
	e, _, b := setup()
	f := sampleFrame()
	f.Status.InferenceAvailable = false
	_ = b.Render(context.Background(), f)

	rec, env := do(t, e, http.MethodGet, "/health", "")
	var h healthResponse
	_ = json.Unmarshal(env.Data, &h)
	if rec.Code != http.StatusOK || h.Status != "degraded" || h.LastTick != 7 {
		t.Fatalf("health = %d %+v", rec.Code, h)
	}
}

type ingressState bool

func (s ingressState) Connected() bool { return bool(s) }

func TestHealthBeforeFirstFrame(t *testing.T) {
	cases := []struct {
		name      string
		connected bool
		want      string
	}{
		{"ingress up", true, "ok"},
		{"ingress down", false, "degraded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _, _ := setup(WithIngress(ingressState(tc.connected)))
			rec, env := do(t, e, http.MethodGet, "/health", "")
			var h healthResponse
			_ = json.Unmarshal(env.Data, &h)
			if rec.Code != http.StatusOK || h.Status != tc.want || h.IngressConnected != tc.connected {
				t.Fatalf("health = %d %+v, want status %s", rec.Code, h, tc.want)
			}
		})
	}
}

func TestStreamPushesFrames(t *testing.T) {
	e, _, b := setup()
	_ = b.Render(context.Background(), sampleFrame())

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first models.Frame
	if err := conn.ReadJSON(&first); err != nil || first.Tick != 7 {
		t.Fatalf("first frame = %+v err = %v", first, err)
	}

	// the handler subscribes before sending the latest frame, so this one is delivered
	next := sampleFrame()
	next.Tick = 8
	_ = b.Render(context.Background(), next)

	var second models.Frame
	if err := conn.ReadJSON(&second); err != nil || second.Tick != 8 {
		t.Fatalf("second frame = %+v err = %v", second, err)
	}
}
