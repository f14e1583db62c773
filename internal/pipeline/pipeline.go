package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/rs/zerolog"

	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/auth"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/images"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/predict"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/storage"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/users"
	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/vision"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "pipeline").Logger()

// Outcome is what a prediction request reports back to the caller: the
// authentication result plus the model outputs, which stay nil when
// authentication failed.
type Outcome struct {
	Auth       auth.Result
	Prediction *predict.Result
}

// HistoryEntry is one stored prediction, keyed in the history mapping by
// the artifact file name.
type HistoryEntry struct {
	URL        string `json:"url"`
	Prediction string `json:"prediction"`
}

// Pipeline composes credential verification, image normalization, the two
// classifiers and persistence into the single authenticated workflow.
type Pipeline struct {
	auth         *auth.Service
	users        *users.Repository
	images       *images.Repository
	normalizer   *vision.Normalizer
	orchestrator *predict.Orchestrator
	uploader     storage.Uploader
}

func New(authSvc *auth.Service, userRepo *users.Repository, imageRepo *images.Repository,
	normalizer *vision.Normalizer, orchestrator *predict.Orchestrator, uploader storage.Uploader) *Pipeline {
	return &Pipeline{
		auth:         authSvc,
		users:        userRepo,
		images:       imageRepo,
		normalizer:   normalizer,
		orchestrator: orchestrator,
		uploader:     uploader,
	}
}

// SubmitPrediction runs the full authenticated flow: verify credentials,
// decode, classify, store the artifact and record the prediction. A failed
// upload degrades gracefully: the caller still gets the prediction, but no
// record is written since a record requires a URL.
func (p *Pipeline) SubmitPrediction(ctx context.Context, email, password, encodedImage string) (Outcome, error) {
	res, err := p.auth.VerifyLogin(ctx, email, password)
	if err != nil {
		return Outcome{}, err
	}
	if !res.OK {
		return Outcome{Auth: res}, nil
	}

	img, raw, err := p.normalizer.Decode(encodedImage)
	if err != nil {
		return Outcome{}, err
	}

	prediction, err := p.orchestrator.Classify(p.normalizer.ToTensor(img))
	if err != nil {
		return Outcome{}, err
	}

	if err := p.persist(ctx, email, raw, prediction); err != nil {
		return Outcome{}, err
	}

	return Outcome{Auth: res, Prediction: prediction}, nil
}

// persist uploads the artifact under a per-user sequential name and records
// url + serialized prediction. The count read and the later insert are not
// covered by one transaction, so two simultaneous requests from the same
// user can derive the same artifact name.
func (p *Pipeline) persist(ctx context.Context, email string, raw []byte, prediction *predict.Result) error {
	u, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	count, err := p.images.CountByUser(ctx, u.ID)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("user_%d_image_%d.jpg", u.ID, count)
	url, err := p.uploader.Upload(ctx, raw, name)
	if err != nil {
		logger.Warn().Err(err).Str("artifact", name).Msg("artifact upload failed, prediction not recorded")
		return nil
	}

	serialized, err := json.Marshal(prediction)
	if err != nil {
		return fmt.Errorf("serialize prediction: %w", err)
	}

	return p.images.Create(ctx, &images.Image{
		URL:                 url,
		JSONifiedPrediction: string(serialized),
		UserID:              u.ID,
	})
}

// GetHistory verifies the credentials and reconstructs the user's full
// prediction history, keyed by the trailing path segment of each stored
// URL. On authentication failure the mapping is empty.
func (p *Pipeline) GetHistory(ctx context.Context, email, password string) (auth.Result, map[string]HistoryEntry, error) {
	res, err := p.auth.VerifyLogin(ctx, email, password)
	if err != nil {
		return auth.Result{}, nil, err
	}
	if !res.OK {
		return res, map[string]HistoryEntry{}, nil
	}

	u, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return res, nil, err
	}

	records, err := p.images.FindByUser(ctx, u.ID)
	if err != nil {
		return res, nil, err
	}

	history := make(map[string]HistoryEntry, len(records))
	for _, img := range records {
		history[path.Base(img.URL)] = HistoryEntry{
			URL:        img.URL,
			Prediction: img.JSONifiedPrediction,
		}
	}
	return res, history, nil
}
