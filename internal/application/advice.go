package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"equipment-guard/internal/domain/entity"
	"equipment-guard/internal/domain/port"
)

// ErrAdvisorUnavailable — генератор рекомендаций не настроен.
var ErrAdvisorUnavailable = errors.New("advice generation is not configured")

// EvidenceSource отдаёт состояние монитора и кадр для анализа.
type EvidenceSource interface {
	Snapshot() entity.Snapshot
	EvidenceFrameOrLatest() ([]byte, error)
}

// FixSolution — рекомендация по устранению текущей неисправности.
type FixSolution struct {
	Defect   string
	Solution string
	Image    []byte
}

// MaintenanceInput — данные для прогноза следующего обслуживания.
type MaintenanceInput struct {
	Temperature  string `json:"temperature"`
	Load         string `json:"load"`
	LastService  string `json:"last_service"`
	PurchaseDate string `json:"purchase_date"`
	WorkHours    string `json:"work_hours"`
}

// AdviceService запрашивает у языковой модели рекомендации.
// Ошибки модели возвращаются текстом, а не паникой или ошибкой.
type AdviceService struct {
	source EvidenceSource
	llm    port.LanguageModel
	logger *zap.Logger
}

// NewAdviceService создаёт сервис рекомендаций. llm может быть nil.
func NewAdviceService(source EvidenceSource, llm port.LanguageModel, logger *zap.Logger) *AdviceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdviceService{source: source, llm: llm, logger: logger}
}

// FixSolution анализирует текущую неисправность по кадру-доказательству
// (или свежему кадру, если неисправностей не было).
func (s *AdviceService) FixSolution(ctx context.Context) *FixSolution {
	snap := s.source.Snapshot()
	out := &FixSolution{Defect: snap.Verdict.Label}

	img, err := s.source.EvidenceFrameOrLatest()
	if err != nil {
		s.logger.Warn("No image for fix solution", zap.Error(err))
	}
	out.Image = img

	out.Solution = s.generate(ctx, fmt.Sprintf("Identify repair for %s", out.Defect), img)
	return out
}

// Chat отвечает на свободный вопрос.
func (s *AdviceService) Chat(ctx context.Context, msg string) string {
	return s.generate(ctx, fmt.Sprintf("Expert advice: %s", msg), nil)
}

// Forecast прогнозирует дату следующего обслуживания.
func (s *AdviceService) Forecast(ctx context.Context, in MaintenanceInput) string {
	var b strings.Builder
	b.WriteString("Predict equipment maintenance based on:\n")
	fmt.Fprintf(&b, "- Current Temperature: %s°C\n", in.Temperature)
	fmt.Fprintf(&b, "- Current Load: %s%%\n", in.Load)
	fmt.Fprintf(&b, "- Last Service Date: %s\n", in.LastService)
	fmt.Fprintf(&b, "- Purchase Date: %s\n", in.PurchaseDate)
	fmt.Fprintf(&b, "- Daily Work Hours: %s\n", in.WorkHours)
	b.WriteString("\nProvide a specific predicted date for next service and technical reasoning.")

	return s.generate(ctx, b.String(), nil)
}

func (s *AdviceService) generate(ctx context.Context, prompt string, image []byte) string {
	if s.llm == nil {
		return ErrAdvisorUnavailable.Error()
	}

	text, err := s.llm.Generate(ctx, prompt, image)
	if err != nil {
		s.logger.Error("Advice generation failed", zap.Error(err))
		return err.Error()
	}
	return text
}
