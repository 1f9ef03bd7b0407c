package report

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/thesis-scout/internal/model"
)

var (
	companyColumns  = []string{"Segment", "Company", "Website", "Country", "Confidence", "Evidence Tier", "KPI Alignment", "Providers", "Sources", "Summary"}
	decisionColumns = []string{"Segment", "Company", "Decision", "Score", "Reason", "Enrichment"}
)

// ExportXLSX writes the accepted companies and every validation decision of
// r to a workbook at path.
func ExportXLSX(r *model.Report, path string) error {
	f := xlsx.NewFile()

	companies, err := f.AddSheet("Companies")
	if err != nil {
		return eris.Wrap(err, "report: add companies sheet")
	}
	addRow(companies, companyColumns...)
	for _, seg := range r.Segments {
		for _, c := range seg.Companies {
			row := addRow(companies, seg.Name, c.Name, c.Website, c.Country)
			row.AddCell().SetFloat(c.Confidence)
			for _, v := range []string{
				string(c.EvidenceTier),
				strings.Join(c.KPIAlignment, "; "),
				strings.Join(c.Providers, ", "),
				strings.Join(c.Sources, "\n"),
				c.Summary,
			} {
				row.AddCell().SetString(v)
			}
		}
	}

	decisions, err := f.AddSheet("Decisions")
	if err != nil {
		return eris.Wrap(err, "report: add decisions sheet")
	}
	addRow(decisions, decisionColumns...)
	for _, o := range r.ValidationSummary.Reasons {
		row := addRow(decisions, o.Segment, o.Company, string(o.Decision))
		row.AddCell().SetFloat(o.Score)
		row.AddCell().SetString(o.Reason)
		row.AddCell().SetString(strings.Join(o.Enrichment, "; "))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) *xlsx.Row {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
	return row
}
