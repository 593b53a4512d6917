package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/reframe/internal/filestore"
	"github.com/xxxsen/reframe/internal/model"
	"github.com/xxxsen/reframe/internal/pkg/secret"
	"github.com/xxxsen/reframe/internal/repo"
	"github.com/xxxsen/reframe/internal/service"
	"github.com/xxxsen/reframe/internal/testutil"
	"github.com/xxxsen/reframe/internal/textclf"
)

const (
	testKey    = "model.json.gz"
	testSecret = "s3cret"
)

type testServer struct {
	engine     *gin.Engine
	feedback   *service.FeedbackService
	registry   *service.RegistryService
	classifier *service.ClassifierService
	store      filestore.Store
}

func writeArtifact(t *testing.T, store filestore.Store) {
	t.Helper()
	x := []string{
		"I always fail at everything", "I never do anything right", "I always ruin everything",
		"The weather is nice today", "We walked in the park", "The coffee was warm",
	}
	y := []string{
		"All-or-Nothing Thinking", "All-or-Nothing Thinking", "All-or-Nothing Thinking",
		model.NoDistortion, model.NoDistortion, model.NoDistortion,
	}
	params := textclf.DefaultParams()
	params.Vectorizer.MinDF = 1
	params.Vectorizer.MaxDF = 1
	params.Classifier.C = 10
	p, err := textclf.Fit(x, y, params)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))
	require.NoError(t, store.Save(context.Background(), testKey, &buf))
}

func newTestServer(t *testing.T, withArtifact bool) *testServer {
	gin.SetMode(gin.TestMode)
	db := testutil.OpenTestDB(t)
	feedbackRepo := repo.NewFeedbackRepo(db, testutil.Driver)
	versionRepo := repo.NewModelVersionRepo(db, testutil.Driver)
	store := filestore.NewLocal(t.TempDir())

	classifier := service.NewClassifierService(store, service.ClassifierOptions{ArtifactKey: testKey, MaxChars: 200})
	if withArtifact {
		writeArtifact(t, store)
		require.NoError(t, classifier.Load(context.Background()))
	}
	feedback := service.NewFeedbackService(feedbackRepo, 50)
	registry := service.NewRegistryService(db, versionRepo)

	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1"), RouterDeps{
		Predict:  NewPredictHandler(classifier),
		Feedback: NewFeedbackHandler(feedback),
		Versions: NewVersionHandler(registry),
		Model:    NewModelHandler(classifier),
		APIKey:   secret.NewVerifier(testSecret, ""),
	})
	return &testServer{engine: engine, feedback: feedback, registry: registry, classifier: classifier, store: store}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func TestPredictEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	w := s.do(http.MethodPost, "/api/v1/predict", `{"text":"I always fail at everything. The weather is nice today."}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Results []model.PredictionResult `json:"results"`
	}
	decode(t, w, &out)
	require.Len(t, out.Results, 2)
	require.Equal(t, "I always fail at everything.", out.Results[0].Input)
	require.Equal(t, "All-or-Nothing Thinking", out.Results[0].Label)
	require.Contains(t, w.Body.String(), `"prediction"`)
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))

	tests := []struct {
		name string
		body string
	}{
		{name: "empty text", body: `{"text":"  "}`},
		{name: "missing text", body: `{}`},
		{name: "malformed", body: `{"text":`},
		{name: "too large", body: `{"text":"` + strings.Repeat("a", 201) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v1/predict", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]string
			decode(t, w, &body)
			require.NotEmpty(t, body["error"])
		})
	}
}

func TestPredictWithoutModel(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodPost, "/api/v1/predict", `{"text":"I always fail."}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"model_loaded":false`)
}

func TestFeedbackEndpoint(t *testing.T) {
	s := newTestServer(t, true)
	body := `{"text":"If I fail this test my life is over.","predicted_distortion":"All-or-Nothing Thinking","user_correction":"Catastrophizing","is_accepted":false,"confidence":0.55}`

	w := s.do(http.MethodPost, "/api/v1/feedback", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/api/v1/feedback", body, "X-API-Key", "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/feedback", body, "X-API-Key", testSecret)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		FeedbackID int64 `json:"feedback_id"`
	}
	decode(t, w, &out)
	require.Positive(t, out.FeedbackID)

	stored, err := s.feedback.Get(context.Background(), out.FeedbackID)
	require.NoError(t, err)
	require.Equal(t, "Catastrophizing", *stored.UserCorrection)
	require.False(t, stored.Consumed)

	w = s.do(http.MethodPost, "/api/v1/feedback", `{"text":"`+strings.Repeat("x", 51)+`"}`, "X-API-Key", testSecret)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/v1/feedback", `{"text":"x","is_accepted":false}`, "X-API-Key", testSecret)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/feedback/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.FeedbackStats
	decode(t, w, &stats)
	require.Equal(t, int64(1), stats.Total)
	require.Equal(t, int64(1), stats.UnconsumedCorrections)

	w = s.do(http.MethodGet, "/api/v1/feedback?limit=10", "", "X-API-Key", testSecret)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Catastrophizing")
}

func TestVersionEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	w := s.do(http.MethodGet, "/api/v1/versions/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"version":1}`, w.Body.String())

	_, err := s.registry.RecordVersion(context.Background(), service.VersionInput{TrainingSampleCount: 12, Accuracy: 0.75, Notes: "first"})
	require.NoError(t, err)
	_, err = s.registry.RecordVersion(context.Background(), service.VersionInput{TrainingSampleCount: 14, Accuracy: 0.8})
	require.NoError(t, err)

	w = s.do(http.MethodGet, "/api/v1/versions/latest", "")
	require.JSONEq(t, `{"version":2}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/versions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Versions []model.ModelVersion `json:"versions"`
	}
	decode(t, w, &list)
	require.Len(t, list.Versions, 2)
	require.Equal(t, 2, list.Versions[0].VersionNumber)

	w = s.do(http.MethodGet, "/api/v1/versions/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"notes":"first"`)

	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/versions/9", "").Code)
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/versions/abc", "").Code)
}

func TestModelEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	w := s.do(http.MethodGet, "/api/v1/model", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info model.ModelInfo
	decode(t, w, &info)
	require.Equal(t, testKey, info.ArtifactKey)
	require.Equal(t, uint64(1), info.Generation)

	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/model/reload", "").Code)
	w = s.do(http.MethodPost, "/api/v1/model/reload", "", "X-API-Key", testSecret)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &info)
	require.Equal(t, uint64(2), info.Generation)

	w = s.do(http.MethodGet, "/api/v1/distortions", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Mind Reading")
}
