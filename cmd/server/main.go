package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/api"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/auth"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/database"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/images"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/pipeline"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/predict"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/storage"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/users"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/vision"
)

const defaultInputSize = 320

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger()

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg(".env not loaded, continuing with environment variables")
	}

	if m := os.Getenv("GIN_MODE"); m != "" {
		gin.SetMode(m)
	}

	if err := database.Connect(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(&users.User{}, &images.Image{}); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	if err := predict.InitRuntime(); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize inference runtime")
	}
	defer predict.ShutdownRuntime()

	modelDir := os.Getenv("MODEL_DIR")
	if modelDir == "" {
		modelDir = "models"
	}

	binaryModel, err := predict.LoadModel(
		filepath.Join(modelDir, "model_bin.onnx"),
		filepath.Join(modelDir, "model_bin.json"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load binary model")
	}
	defer binaryModel.Close()

	multiclassModel, err := predict.LoadModel(
		filepath.Join(modelDir, "model_mul.onnx"),
		filepath.Join(modelDir, "model_mul.json"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load multiclass model")
	}
	defer multiclassModel.Close()

	logger.Info().
		Strs("binary_classes", binaryModel.Metadata.Classes).
		Strs("multiclass_classes", multiclassModel.Metadata.Classes).
		Msg("models loaded")

	inputSize := defaultInputSize
	if v := os.Getenv("MODEL_INPUT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			inputSize = n
		}
	}

	uploader, err := storage.NewS3Uploader(context.Background(),
		os.Getenv("S3_BUCKET"), os.Getenv("AWS_REGION"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure object storage")
	}

	userRepo := users.NewRepository(database.DB)
	imageRepo := images.NewRepository(database.DB)
	authSvc := auth.NewService(userRepo)
	normalizer := vision.NewNormalizer(inputSize)
	orchestrator := predict.NewOrchestrator(binaryModel, multiclassModel)
	p := pipeline.New(authSvc, userRepo, imageRepo, normalizer, orchestrator, uploader)
	handler := api.NewHandler(authSvc, p)

	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/", handler.Info)
	r.GET("/sign-up", handler.InfoPage("Sign up service."))
	r.POST("/sign-up", handler.SignUp)
	r.GET("/login", handler.InfoPage("Login service."))
	r.POST("/login", handler.Login)
	r.GET("/predict", handler.InfoPage("Prediction service."))
	r.POST("/predict", handler.Predict)
	r.GET("/history", handler.InfoPage("History service."))
	r.POST("/history", handler.History)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("server starting")
	if err := r.Run(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
