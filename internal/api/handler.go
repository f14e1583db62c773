package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/auth"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/pipeline"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/vision"
)

// Handler exposes the four service endpoints. Every POST re-authenticates
// from the form fields; there is no session state.
type Handler struct {
	auth     *auth.Service
	pipeline *pipeline.Pipeline
}

func NewHandler(authSvc *auth.Service, p *pipeline.Pipeline) *Handler {
	return &Handler{auth: authSvc, pipeline: p}
}

func resultString(r auth.Result) string {
	if r.OK {
		return "success"
	}
	return "fail"
}

func (h *Handler) Info(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8",
		[]byte("<h1>Go back-end server API for skin lesion classification.</h1>"))
}

// InfoPage serves the informational line shown on GET for each service
// route; the actual work happens on POST.
func (h *Handler) InfoPage(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte("<h1>Go back-end server API for skin lesion classification. "+service+"</h1>"))
	}
}

func (h *Handler) SignUp(c *gin.Context) {
	email := c.PostForm("email")
	firstName := c.PostForm("firstName")
	password := c.PostForm("password")
	repeatedPassword := c.PostForm("repeatedPassword")

	res, err := h.auth.Register(c.Request.Context(), email, firstName, password, repeatedPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": resultString(res), "reason": res.Reason})
}

func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	res, err := h.auth.VerifyLogin(c.Request.Context(), email, password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": resultString(res), "reason": res.Reason})
}

func (h *Handler) Predict(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	encoded := c.PostForm("base64")

	outcome, err := h.pipeline.SubmitPrediction(c.Request.Context(), email, password, encoded)
	if err != nil {
		if errors.Is(err, vision.ErrDecode) {
			c.JSON(http.StatusBadRequest, gin.H{"result": "fail", "reason": "could not decode image"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Mirror the client contract: an empty object, not null, when
	// authentication failed and nothing was predicted.
	var prediction interface{} = outcome.Prediction
	if outcome.Prediction == nil {
		prediction = gin.H{}
	}
	c.JSON(http.StatusOK, gin.H{"result": resultString(outcome.Auth), "prediction": prediction})
}

func (h *Handler) History(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	res, history, err := h.pipeline.GetHistory(c.Request.Context(), email, password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": resultString(res), "images": history})
}
