package ui

import (
	"net/http"
	"strconv"
	"time"

	"talentbridge/domain/core"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListCheckIns(c *gin.Context) {
	filter := ports.CheckInFilter{Candidate: c.Query("candidate")}
	filter.Limit, filter.Offset = pageParams(c)

	if v := c.Query("introduction_id"); v != "" {
		id, err := core.ParseIntroductionID(v)
		if err != nil {
			s.writeError(c, apperrors.ValidationError(err.Error()))
			return
		}
		filter.IntroductionID = id
	}
	if v := c.Query("risk_level"); v != "" {
		level := models.RiskLevel(v)
		if !models.ValidRiskLevel(level) {
			s.writeError(c, apperrors.ValidationError("unknown risk level"))
			return
		}
		filter.RiskLevel = level
	}
	if v := c.Query("flagged_only"); v != "" {
		flagged, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(c, apperrors.ValidationError("flagged_only must be a boolean"))
			return
		}
		filter.FlaggedOnly = flagged
	}
	var err error
	if filter.From, err = timeParam(c, "from"); err != nil {
		s.writeError(c, err)
		return
	}
	if filter.To, err = timeParam(c, "to"); err != nil {
		s.writeError(c, err)
		return
	}

	items, total, err := s.cnt.CheckInRepo.List(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (s *Server) handleGetCheckIn(c *gin.Context) {
	id, err := core.ParseCheckInID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	ci, err := s.cnt.CheckInRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ci)
}

func (s *Server) handleResendCheckIn(c *gin.Context) {
	id, err := core.ParseCheckInID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	if err := s.cnt.Scheduler.Resend(c.Request.Context(), id, actorFrom(c)); err != nil {
		s.writeError(c, err)
		return
	}
	ci, err := s.cnt.CheckInRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ci)
}

type classifyRequest struct {
	ResponseText string `json:"response_text" binding:"required"`
}

func (s *Server) handleClassifyCheckIn(c *gin.Context) {
	id, err := core.ParseCheckInID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	ci, err := s.cnt.Classification.Classify(c.Request.Context(), id, req.ResponseText, actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ci)
}

type reviewRequest struct {
	Notes   string `json:"notes"`
	Flagged bool   `json:"flagged"`
}

func (s *Server) handleReviewCheckIn(c *gin.Context) {
	id, err := core.ParseCheckInID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	ci, err := s.cnt.Classification.UpdateReview(c.Request.Context(), id, req.Notes, req.Flagged, actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ci)
}

func (s *Server) handleSchedulerRun(c *gin.Context) {
	result, err := s.cnt.Scheduler.Run(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// timeParam parses an optional RFC 3339 query parameter.
func timeParam(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperrors.ValidationError(name + " must be an RFC 3339 timestamp")
	}
	return &t, nil
}
