package rest

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	app "equipment-guard/internal/application"
	"equipment-guard/internal/domain/entity"
)

// syncResponse — состояние для панели мониторинга.
type syncResponse struct {
	Pred          entity.Verdict            `json:"pred"`
	Capture       *string                   `json:"cap"`
	HysteresisEnd float64                   `json:"hysteresis_end"` // unix-секунды, 0 если не было неисправностей
	Probabilities entity.ClassProbabilities `json:"probabilities"`
	EpisodeID     *uuid.UUID                `json:"episode_id,omitempty"`
	CapturedAt    *time.Time                `json:"captured_at,omitempty"`
	UpdatedAt     *time.Time                `json:"updated_at,omitempty"`
}

type fixSolutionResponse struct {
	Defect   string `json:"defect"`
	Solution string `json:"solution"`
	Image    string `json:"image,omitempty"`
}

type chatRequest struct {
	Msg string `json:"msg"`
}

func (s *Server) health(c *gin.Context) {
	snap := s.state.Snapshot()

	status := "ok"
	components := make(map[string]string, len(s.checks))
	for name, up := range s.checks {
		if up() {
			components[name] = "up"
			continue
		}
		components[name] = "down"
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"label":      snap.Verdict.Label,
		"is_fault":   snap.Verdict.IsFault,
		"components": components,
	})
}

// sync handles GET /api/sync
func (s *Server) sync(c *gin.Context) {
	c.JSON(http.StatusOK, newSyncResponse(s.state.Snapshot()))
}

func newSyncResponse(snap entity.Snapshot) syncResponse {
	resp := syncResponse{
		Pred:          snap.Verdict,
		Probabilities: snap.Probabilities,
	}
	if !snap.HysteresisEnd.IsZero() {
		resp.HysteresisEnd = float64(snap.HysteresisEnd.UnixMilli()) / 1000
	}
	if snap.HasEvidence() {
		enc := base64.StdEncoding.EncodeToString(snap.Evidence.Image)
		at := snap.Evidence.CapturedAt
		resp.Capture = &enc
		resp.CapturedAt = &at
	}
	if snap.EpisodeID != uuid.Nil {
		id := snap.EpisodeID
		resp.EpisodeID = &id
	}
	if !snap.UpdatedAt.IsZero() {
		at := snap.UpdatedAt
		resp.UpdatedAt = &at
	}
	return resp
}

// evidence handles GET /api/evidence
func (s *Server) evidence(c *gin.Context) {
	img, err := s.state.EvidenceFrameOrLatest()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrNoFrame) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Warn("No evidence frame", zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", img)
}

// fixSolution handles POST /api/fix-solution
func (s *Server) fixSolution(c *gin.Context) {
	fix := s.advisor.FixSolution(c.Request.Context())

	resp := fixSolutionResponse{Defect: fix.Defect, Solution: fix.Solution}
	if len(fix.Image) > 0 {
		resp.Image = base64.StdEncoding.EncodeToString(fix.Image)
	}
	c.JSON(http.StatusOK, resp)
}

// chat handles POST /api/chat
func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Msg) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "msg is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": s.advisor.Chat(c.Request.Context(), req.Msg)})
}

// predictiveSolution handles POST /api/predictive-solution
func (s *Server) predictiveSolution(c *gin.Context) {
	var in app.MaintenanceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prediction": s.advisor.Forecast(c.Request.Context(), in)})
}
