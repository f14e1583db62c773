package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/auth"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/images"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/pipeline"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/predict"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/users"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/vision"
)

type stubPredictor struct {
	vec []float32
}

func (s stubPredictor) Predict(vision.Tensor) ([]float32, error) {
	return s.vec, nil
}

type memUploader struct{}

func (memUploader) Upload(_ context.Context, _ []byte, name string) (string, error) {
	return "https://bucket.test/" + name, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&users.User{}, &images.Image{}))

	userRepo := users.NewRepository(db)
	imageRepo := images.NewRepository(db)
	authSvc := auth.NewService(userRepo)
	orchestrator := predict.NewOrchestrator(
		stubPredictor{vec: []float32{0.8, 0.2}},
		stubPredictor{vec: []float32{0.1, 0.9}},
	)
	p := pipeline.New(authSvc, userRepo, imageRepo, vision.NewNormalizer(16), orchestrator, memUploader{})
	handler := NewHandler(authSvc, p)

	r := gin.New()
	r.GET("/", handler.Info)
	r.GET("/sign-up", handler.InfoPage("Sign up service."))
	r.POST("/sign-up", handler.SignUp)
	r.GET("/login", handler.InfoPage("Login service."))
	r.POST("/login", handler.Login)
	r.GET("/predict", handler.InfoPage("Prediction service."))
	r.POST("/predict", handler.Predict)
	r.GET("/history", handler.InfoPage("History service."))
	r.POST("/history", handler.History)
	return r
}

func postForm(t *testing.T, r *gin.Engine, path string, form url.Values) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func encodedTestImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 50), G: 80, B: uint8(y * 50), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func signUp(t *testing.T, r *gin.Engine) {
	t.Helper()
	w, body := postForm(t, r, "/sign-up", url.Values{
		"email":            {"a@b.com"},
		"firstName":        {"Ann"},
		"password":         {"abcde"},
		"repeatedPassword": {"abcde"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "success", body["result"])
}

func TestInfoPagesOnGet(t *testing.T) {
	r := newTestRouter(t)

	pages := map[string]string{
		"/":        "skin lesion classification",
		"/sign-up": "Sign up service.",
		"/login":   "Login service.",
		"/predict": "Prediction service.",
		"/history": "History service.",
	}
	for path, want := range pages {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "GET %s", path)
		assert.Contains(t, w.Body.String(), want, "GET %s", path)
	}
}

func TestSignUpAndLoginFlow(t *testing.T) {
	r := newTestRouter(t)
	signUp(t, r)

	w, body := postForm(t, r, "/login", url.Values{
		"email":    {"a@b.com"},
		"password": {"abcde"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["result"])

	_, body = postForm(t, r, "/login", url.Values{
		"email":    {"a@b.com"},
		"password": {"wrong"},
	})
	assert.Equal(t, "fail", body["result"])
	assert.Equal(t, "incorrect password", body["reason"])
}

func TestSignUpDuplicate(t *testing.T) {
	r := newTestRouter(t)
	signUp(t, r)

	_, body := postForm(t, r, "/sign-up", url.Values{
		"email":            {"a@b.com"},
		"firstName":        {"Ann"},
		"password":         {"abcde"},
		"repeatedPassword": {"abcde"},
	})
	assert.Equal(t, "fail", body["result"])
	assert.Equal(t, "email already exists", body["reason"])
}

func TestPredictAuthenticated(t *testing.T) {
	r := newTestRouter(t)
	signUp(t, r)

	w, body := postForm(t, r, "/predict", url.Values{
		"email":    {"a@b.com"},
		"password": {"abcde"},
		"base64":   {encodedTestImage(t)},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["result"])

	prediction, ok := body["prediction"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, prediction["binary"], 2)
	assert.Len(t, prediction["multiclass"], 2)
}

func TestPredictUnauthenticated(t *testing.T) {
	r := newTestRouter(t)
	signUp(t, r)

	w, body := postForm(t, r, "/predict", url.Values{
		"email":    {"a@b.com"},
		"password": {"wrong"},
		"base64":   {encodedTestImage(t)},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fail", body["result"])
	assert.Equal(t, map[string]interface{}{}, body["prediction"])
}

func TestPredictBadPayload(t *testing.T) {
	r := newTestRouter(t)
	signUp(t, r)

	w, body := postForm(t, r, "/predict", url.Values{
		"email":    {"a@b.com"},
		"password": {"abcde"},
		"base64":   {"garbage"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "fail", body["result"])
}

func TestHistoryEndpoint(t *testing.T) {
	r := newTestRouter(t)
	signUp(t, r)

	_, _ = postForm(t, r, "/predict", url.Values{
		"email":    {"a@b.com"},
		"password": {"abcde"},
		"base64":   {encodedTestImage(t)},
	})

	_, body := postForm(t, r, "/history", url.Values{
		"email":    {"a@b.com"},
		"password": {"abcde"},
	})
	assert.Equal(t, "success", body["result"])

	imgs, ok := body["images"].(map[string]interface{})
	require.True(t, ok)
	require.Len(t, imgs, 1)
	for name, entry := range imgs {
		e := entry.(map[string]interface{})
		assert.Equal(t, "https://bucket.test/"+name, e["url"])
		assert.NotEmpty(t, e["prediction"])
	}
}
