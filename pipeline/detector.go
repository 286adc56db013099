package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strings"

	"evidex/models"
	"evidex/oracle"
	"evidex/prompts"

	"github.com/go-playground/validator/v10"
)

// Detector asks the oracle whether a bundle covers one case or several.
type Detector struct {
	oracle   oracle.Oracle
	validate *validator.Validate
	logger   *slog.Logger
}

func NewDetector(o oracle.Oracle, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		oracle:   o,
		validate: validator.New(),
		logger:   logger.With("component", "detector"),
	}
}

type detectionResponse struct {
	MultiplePeople *bool                 `json:"multiplePeople" validate:"required"`
	People         []personGroupResponse `json:"people" validate:"required,dive"`
}

type personGroupResponse struct {
	Name        *string   `json:"name" validate:"required"`
	FileIndices []float64 `json:"fileIndices" validate:"required"`
}

// Detect never fails. Any oracle, parse or shape error is logged and the
// bundle is treated as a single case.
func (d *Detector) Detect(ctx context.Context, bundle *models.RawDocumentBundle) models.DetectionResult {
	single := models.DetectionResult{MultiplePeople: false, People: []models.PersonGroup{}}

	text, err := d.oracle.Generate(ctx, &oracle.Request{
		Prompt: prompts.CaseDetection,
		Parts:  detectionParts(bundle),
		Schema: detectionSchema,
	})
	if err != nil {
		d.logger.Warn("Detection failed, assuming single case", "error", &DetectionError{Err: err})
		return single
	}

	var resp detectionResponse
	if err := json.Unmarshal([]byte(oracle.ExtractJSON(text)), &resp); err != nil {
		d.logger.Warn("Detection response is not valid JSON, assuming single case",
			"error", &DetectionError{Err: err}, "response", truncate(text, 500))
		return single
	}
	if err := d.validate.Struct(resp); err != nil {
		d.logger.Warn("Detection response is missing fields, assuming single case",
			"error", &DetectionError{Err: err}, "response", truncate(text, 500))
		return single
	}

	if !*resp.MultiplePeople || len(resp.People) < 2 {
		d.logger.Info("Detected single case")
		return single
	}

	result := models.DetectionResult{MultiplePeople: true}
	for _, p := range resp.People {
		group := models.PersonGroup{
			Name:        strings.TrimSpace(*p.Name),
			FileIndices: []int{},
		}
		if group.Name == "" {
			group.Name = FallbackCaseName
		}
		for _, idx := range p.FileIndices {
			if idx < 0 || idx != math.Trunc(idx) {
				d.logger.Warn("Ignoring malformed file index", "person", group.Name, "index", idx)
				continue
			}
			group.FileIndices = append(group.FileIndices, int(idx))
		}
		result.People = append(result.People, group)
	}

	d.logger.Info("Detected multiple cases", "count", len(result.People))
	return result
}

// detectionParts labels every file with its stable index so the oracle's
// fileIndices can be mapped back.
func detectionParts(bundle *models.RawDocumentBundle) []oracle.Part {
	var parts []oracle.Part
	if strings.TrimSpace(bundle.Text) != "" {
		parts = append(parts, oracle.Text(prompts.TextDocuments(bundle.Text)))
	}
	for _, f := range bundle.Files {
		if f.IsTextual() {
			parts = append(parts, oracle.Text(prompts.IndexedFile(f.Index, f.Name, f.Text)))
			continue
		}
		parts = append(parts,
			oracle.Text(prompts.IndexedAttachment(f.Index, f.Name, f.MIMEType)),
			oracle.Inline(f.Data, f.MIMEType))
	}
	return parts
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
