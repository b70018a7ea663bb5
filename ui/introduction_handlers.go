package ui

import (
	"net/http"
	"time"

	"talentbridge/domain/core"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"

	"github.com/gin-gonic/gin"
)

type createIntroductionRequest struct {
	CandidateName  string    `json:"candidate_name" binding:"required"`
	CandidateEmail string    `json:"candidate_email" binding:"required"`
	EmployerName   string    `json:"employer_name" binding:"required"`
	JobTitle       string    `json:"job_title" binding:"required"`
	AnnualSalary   float64   `json:"annual_salary"`
	IntroducedAt   time.Time `json:"introduced_at"`
}

func (s *Server) handleCreateIntroduction(c *gin.Context) {
	var req createIntroductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	if req.AnnualSalary < 0 {
		s.writeError(c, apperrors.ValidationError("annual salary cannot be negative"))
		return
	}
	if req.IntroducedAt.IsZero() {
		req.IntroducedAt = time.Now()
	}

	intro := models.NewIntroduction(req.CandidateName, req.CandidateEmail,
		req.EmployerName, req.JobTitle, req.AnnualSalary, req.IntroducedAt)
	if err := s.cnt.IntroductionRepo.Create(c.Request.Context(), intro); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intro)
}

func (s *Server) handleGetIntroduction(c *gin.Context) {
	id, err := core.ParseIntroductionID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	intro, err := s.cnt.IntroductionRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, intro)
}

type updateIntroductionStatusRequest struct {
	Status models.IntroductionStatus `json:"status" binding:"required"`
}

func (s *Server) handleUpdateIntroductionStatus(c *gin.Context) {
	id, err := core.ParseIntroductionID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	var req updateIntroductionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.ValidationError(err.Error()))
		return
	}
	switch req.Status {
	case models.IntroductionActive, models.IntroductionWithdrawn, models.IntroductionExpired:
	default:
		s.writeError(c, apperrors.ValidationError("unknown introduction status"))
		return
	}
	if err := s.cnt.IntroductionRepo.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		s.writeError(c, err)
		return
	}
	intro, err := s.cnt.IntroductionRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, intro)
}
