package ui

import (
	"net/http"
	"time"

	"talentbridge/domain/core"
	"talentbridge/domain/flags"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListFlags(c *gin.Context) {
	filter := ports.FlagFilter{Candidate: c.Query("candidate")}
	filter.Limit, filter.Offset = pageParams(c)

	if v := c.Query("status"); v != "" {
		status := flags.Status(v)
		if !flags.ValidStatus(status) {
			s.writeError(c, apperrors.ValidationError("unknown flag status"))
			return
		}
		filter.Status = status
	}
	if v := c.Query("introduction_id"); v != "" {
		id, err := core.ParseIntroductionID(v)
		if err != nil {
			s.writeError(c, apperrors.ValidationError(err.Error()))
			return
		}
		filter.IntroductionID = id
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

	items, total, err := s.cnt.FlagRepo.List(c.Request.Context(), filter)
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

func (s *Server) handleGetFlag(c *gin.Context) {
	id, err := core.ParseFlagID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	flag, err := s.cnt.FlagRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flag)
}

type raiseFlagRequest struct {
	IntroductionID string                       `json:"introduction_id" binding:"required"`
	Method         flags.DetectionMethod        `json:"method" binding:"required"`
	ManualReport   *flags.ManualReportEvidence  `json:"manual_report,omitempty"`
	PublicProfile  *flags.PublicProfileEvidence `json:"public_profile,omitempty"`
}

// handleRaiseFlag records operator-supplied evidence: a manual report or an
// observed public profile. Check-in evidence only enters through the
// classification path.
func (s *Server) handleRaiseFlag(c *gin.Context) {
	var req raiseFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	introID, err := core.ParseIntroductionID(req.IntroductionID)
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	if req.Method == flags.DetectionCheckInResponse {
		s.writeError(c, apperrors.ValidationError("check-in evidence is recorded by classification, not manually"))
		return
	}

	item := flags.Evidence{
		Method:        req.Method,
		RecordedAt:    time.Now(),
		ManualReport:  req.ManualReport,
		PublicProfile: req.PublicProfile,
	}
	if req.Method == flags.DetectionManualReport && req.ManualReport != nil {
		if req.ManualReport.ReportedBy == "" {
			req.ManualReport.ReportedBy = actorFrom(c).String()
		}
	}

	flag, created, err := s.cnt.Flags.RaiseFlag(c.Request.Context(), introID, item)
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, flag)
}

type recalculateRequest struct {
	EstimatedSalary float64 `json:"estimated_salary" binding:"required"`
	FeePercentage   float64 `json:"fee_percentage" binding:"required"`
}

func (s *Server) handleRecalculateFlag(c *gin.Context) {
	id, err := core.ParseFlagID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	flag, err := s.cnt.Flags.Recalculate(c.Request.Context(), id, req.EstimatedSalary, req.FeePercentage, actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flag)
}

type transitionRequest struct {
	Notes string `json:"notes"`
}

// transition wraps the shared load-notes-apply shape of the lifecycle
// endpoints.
func (s *Server) transition(c *gin.Context, apply func(id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error)) {
	id, err := core.ParseFlagID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	var req transitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, apperrors.ValidationError(err.Error()))
			return
		}
	}
	flag, err := apply(id, req.Notes, actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flag)
}

func (s *Server) handleBeginReview(c *gin.Context) {
	s.transition(c, func(id core.FlagID, _ string, actor core.Actor) (*models.CircumventionFlag, error) {
		return s.cnt.Flags.BeginReview(c.Request.Context(), id, actor)
	})
}

func (s *Server) handleFalsePositive(c *gin.Context) {
	s.transition(c, func(id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
		return s.cnt.Flags.MarkFalsePositive(c.Request.Context(), id, notes, actor)
	})
}

func (s *Server) handleMarkPaid(c *gin.Context) {
	s.transition(c, func(id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
		return s.cnt.Flags.MarkPaid(c.Request.Context(), id, notes, actor)
	})
}

func (s *Server) handleRaiseDispute(c *gin.Context) {
	s.transition(c, func(id core.FlagID, _ string, actor core.Actor) (*models.CircumventionFlag, error) {
		return s.cnt.Flags.RaiseDispute(c.Request.Context(), id, actor)
	})
}

func (s *Server) handleResolveInFavor(c *gin.Context) {
	s.transition(c, func(id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
		return s.cnt.Flags.ResolveInFavor(c.Request.Context(), id, notes, actor)
	})
}

func (s *Server) handleWriteOff(c *gin.Context) {
	s.transition(c, func(id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
		return s.cnt.Flags.WriteOff(c.Request.Context(), id, notes, actor)
	})
}

type invoiceRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (s *Server) handleSendInvoice(c *gin.Context) {
	id, err := core.ParseFlagID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	flag, err := s.cnt.Flags.SendInvoice(c.Request.Context(), id, req.Amount, actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flag)
}
