package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"vennqca/adapters/export"
	"vennqca/app"
	"vennqca/domain/qca"

	"github.com/gin-gonic/gin"
)

// tableJSON is the wire shape of a built truth table.
type tableJSON struct {
	Conditions     []conditionJSON            `json:"conditions"`
	Cases          []caseJSON                 `json:"cases"`
	Configurations []qca.Configuration        `json:"configurations"`
	Stats          qca.Stats                  `json:"stats"`
	Correlations   []app.ConditionCorrelation `json:"correlations,omitempty"`
}

type conditionJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type caseJSON struct {
	OrganizationID int64    `json:"organization_id"`
	Name           string   `json:"name"`
	Cells          []string `json:"cells"`
	Configuration  string   `json:"configuration"`
}

func toTableJSON(result *app.BuildResult) tableJSON {
	out := tableJSON{
		Configurations: result.Configurations,
		Stats:          result.Stats,
		Correlations:   result.Correlations,
	}
	for _, cond := range result.Table.Conditions {
		out.Conditions = append(out.Conditions, conditionJSON{ID: cond.ID, Name: cond.Name})
	}
	for _, row := range result.Table.Cases {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, cell.Symbol())
		}
		out.Cases = append(out.Cases, caseJSON{
			OrganizationID: row.OrganizationID,
			Name:           row.Name,
			Cells:          cells,
			Configuration:  row.Signature(),
		})
	}
	return out
}

func (s *Server) handleTruthTable(c *gin.Context) {
	result, err := s.truthTable.Build(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTableJSON(result))
}

func (s *Server) handleVariableTruthTable(c *gin.Context) {
	result, err := s.truthTable.VariableTable(c.Request.Context(), s.variables)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTableJSON(result))
}

// handleTruthTableExport streams the table as a download; format=csv (the
// default) or format=xlsx.
func (s *Server) handleTruthTableExport(c *gin.Context) {
	result, err := s.truthTable.Build(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	stamp := time.Now().Format("2006-01-02")
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, result.Table); err != nil {
			respondError(c, err)
			return
		}
		name := fmt.Sprintf("truth_table_%s.csv", stamp)
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, result.Table); err != nil {
			respondError(c, err)
			return
		}
		name := fmt.Sprintf("truth_table_%s.xlsx", stamp)
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
	}
}
