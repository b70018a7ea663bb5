package ui

import (
	"fmt"
	"net/http"
	"time"

	"talentbridge/adapters/excel"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleReportSummary(c *gin.Context) {
	report, err := s.cnt.Stats.Report(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleReportExport streams the full flag and check-in registers as a
// spreadsheet. Both listings are paged out of the repositories in batches.
func (s *Server) handleReportExport(c *gin.Context) {
	ctx := c.Request.Context()

	var allFlags []*models.CircumventionFlag
	for offset := 0; ; {
		batch, total, err := s.cnt.FlagRepo.List(ctx, ports.FlagFilter{Limit: 200, Offset: offset})
		if err != nil {
			s.writeError(c, err)
			return
		}
		allFlags = append(allFlags, batch...)
		offset += len(batch)
		if len(batch) == 0 || offset >= total {
			break
		}
	}

	var allCheckIns []*models.CheckIn
	for offset := 0; ; {
		batch, total, err := s.cnt.CheckInRepo.List(ctx, ports.CheckInFilter{Limit: 200, Offset: offset})
		if err != nil {
			s.writeError(c, err)
			return
		}
		allCheckIns = append(allCheckIns, batch...)
		offset += len(batch)
		if len(batch) == 0 || offset >= total {
			break
		}
	}

	file, err := excel.BuildReport(allFlags, allCheckIns)
	if err != nil {
		s.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("engine-report-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		s.logger.Error("report export write failed")
	}
}
