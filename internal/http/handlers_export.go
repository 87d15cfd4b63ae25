package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExportWallet streams the period's transactions as xlsx (default) or
// csv. The file is rendered in memory first so a failure can still produce a
// JSON error.
func (s *Server) handleExportWallet(c *gin.Context) {
	ctx := c.Request.Context()
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "xlsx")))
	if format != "xlsx" && format != "csv" {
		respondError(c, core.NewValidationError("format", "must be xlsx or csv"))
		return
	}
	period, err := ParsePeriod(c.Request.URL.Query(), s.now())
	if err != nil {
		respondError(c, err)
		return
	}

	txs, err := s.svc.Transactions.List(ctx, c.Param("id"), currentUser(c).ID, period)
	if err != nil {
		respondError(c, err)
		return
	}
	rows := export.Rows(txs)

	var buf bytes.Buffer
	contentType := xlsxContentType
	if format == "csv" {
		contentType = "text/csv; charset=utf-8"
		err = export.WriteCSV(&buf, rows)
	} else {
		err = export.WriteXLSX(&buf, rows)
	}
	if err != nil {
		respondError(c, fmt.Errorf("export wallet: %w", err))
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Wallet exported",
		log.FieldOperation, log.OpExport,
		log.FieldWalletID, c.Param("id"),
		log.FieldPeriod, period.String(),
		"format", format,
		"rows", len(rows))

	filename := fmt.Sprintf("transactions_%s.%s", period.String(), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
