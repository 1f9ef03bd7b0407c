// Package publish pushes a run's accepted companies to external trackers,
// updating the records it has published before.
package publish

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/company"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/pkg/notion"
)

// Sink is a tracker a report can be published to.
type Sink interface {
	Publish(ctx context.Context, r *model.Report) (Result, error)
}

// Notion database column names.
const (
	ColName       = "Name"
	ColSegment    = "Segment"
	ColURL        = "URL"
	ColCountry    = "Country"
	ColConfidence = "Confidence"
	ColEvidence   = "Evidence Tier"
	ColKPIs       = "KPI Alignment"
	ColSources    = "Sources"
	ColSummary    = "Summary"
	ColRunID      = "Run ID"
)

// ErrDryRun is returned for reports that carry no validated companies.
var ErrDryRun = eris.New("publish: dry-run reports have no validated companies")

// Result counts the rows a publish touched.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// NotionPublisher writes companies to one Notion database.
type NotionPublisher struct {
	client notion.Client
	dbID   string
}

// NewNotion returns a publisher for the Notion database dbID.
func NewNotion(client notion.Client, dbID string) *NotionPublisher {
	return &NotionPublisher{client: client, dbID: dbID}
}

// Publish upserts every accepted company of r. A company matches an existing
// row in the same segment by website domain or by normalized name.
func (p *NotionPublisher) Publish(ctx context.Context, r *model.Report) (Result, error) {
	var res Result
	if r.DryRun {
		return res, ErrDryRun
	}

	pages, err := notion.QueryAll(ctx, p.client, p.dbID)
	if err != nil {
		return res, eris.Wrap(err, "publish: load existing rows")
	}
	existing := make(map[string]string, len(pages))
	for _, pg := range pages {
		seg := notion.PlainText(pg, ColSegment)
		for _, k := range rowKeys(seg, notion.PlainText(pg, ColName), notion.PlainText(pg, ColURL)) {
			if _, ok := existing[k]; !ok {
				existing[k] = string(pg.ID)
			}
		}
	}

	for _, seg := range r.Segments {
		for _, c := range seg.Companies {
			if err := ctx.Err(); err != nil {
				return res, eris.Wrap(err, "publish: cancelled")
			}
			props := properties(seg.Name, c, r.RunID)

			if pageID := lookup(existing, seg.Name, c); pageID != "" {
				if _, err := p.client.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
					return res, eris.Wrapf(err, "publish: update %s", c.Name)
				}
				res.Updated++
				continue
			}

			page, err := p.client.CreatePage(ctx, &notionapi.PageCreateRequest{
				Parent: notionapi.Parent{
					Type:       notionapi.ParentTypeDatabaseID,
					DatabaseID: notionapi.DatabaseID(p.dbID),
				},
				Properties: props,
			})
			if err != nil {
				return res, eris.Wrapf(err, "publish: create %s", c.Name)
			}
			for _, k := range rowKeys(seg.Name, c.Name, c.Website) {
				existing[k] = string(page.ID)
			}
			res.Created++
		}
	}

	zap.L().Info("publish: report published",
		zap.String("sink", "notion"),
		zap.String("run_id", r.RunID),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
	)
	return res, nil
}

func lookup(existing map[string]string, segment string, c model.Company) string {
	for _, k := range rowKeys(segment, c.Name, c.Website) {
		if id, ok := existing[k]; ok {
			return id
		}
	}
	return ""
}

// rowKeys returns the identity keys of a row, domain first.
func rowKeys(segment, name, website string) []string {
	seg := strings.ToLower(strings.TrimSpace(segment))
	var keys []string
	if d := company.NormalizeDomain(website); d != "" {
		keys = append(keys, seg+"|d:"+d)
	}
	if n := company.NormalizeName(name); n != "" {
		keys = append(keys, seg+"|n:"+n)
	}
	return keys
}

func properties(segment string, c model.Company, runID string) notionapi.Properties {
	props := notionapi.Properties{
		ColName:       notion.Title(c.Name),
		ColSegment:    notion.Text(segment),
		ColCountry:    notion.Text(c.Country),
		ColConfidence: notion.Number(c.Confidence),
		ColEvidence:   notion.Text(string(c.EvidenceTier)),
		ColKPIs:       notion.Text(strings.Join(c.KPIAlignment, "; ")),
		ColSources:    notion.Text(strings.Join(c.Sources, "\n")),
		ColSummary:    notion.Text(c.Summary),
		ColRunID:      notion.Text(runID),
	}
	if c.Website != "" {
		props[ColURL] = notion.URL(c.Website)
	}
	return props
}
