package publish

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/pkg/notion"
)

type fakeNotion struct {
	rows      []notionapi.Page
	created   []*notionapi.PageCreateRequest
	updated   map[string]*notionapi.PageUpdateRequest
	createErr error
}

func (f *fakeNotion) QueryDatabase(_ context.Context, _ string, _ *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{Results: f.rows}, nil
}

func (f *fakeNotion) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &notionapi.Page{ID: notionapi.ObjectID(fmt.Sprintf("new-%d", len(f.created)))}, nil
}

func (f *fakeNotion) UpdatePage(_ context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if f.updated == nil {
		f.updated = make(map[string]*notionapi.PageUpdateRequest)
	}
	f.updated[pageID] = req
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

var _ notion.Client = (*fakeNotion)(nil)

func row(id, name, segment, url string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			ColName:    &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: name}}},
			ColSegment: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: segment}}},
			ColURL:     &notionapi.URLProperty{URL: url},
		},
	}
}

func testReport() *model.Report {
	return &model.Report{
		RunID: "run-7",
		Segments: []model.SegmentResult{
			{Name: "Soil Health", Companies: []model.Company{
				{Name: "Biome Makers", Website: "https://biomemakers.com", Confidence: 0.91, EvidenceTier: model.TierPrimary},
				{Name: "Trace Genomics", Website: "https://tracegenomics.com", Confidence: 0.8, EvidenceTier: model.TierVendor},
				{Name: "Pattern Ag", Confidence: 0.7, EvidenceTier: model.TierPrimary},
			}},
			{Name: "Carbon Markets", Companies: []model.Company{
				{Name: "Biome Makers", Website: "https://biomemakers.com", Confidence: 0.6, EvidenceTier: model.TierVendor},
			}},
		},
	}
}

func TestNotionPublish_CreatesAndUpdates(t *testing.T) {
	fake := &fakeNotion{rows: []notionapi.Page{
		row("page-biome", "Biome Makers Inc.", "Soil Health", "http://www.biomemakers.com/about"),
		row("page-pattern", "PATTERN AG", "soil health", ""),
	}}

	res, err := NewNotion(fake, "db-1").Publish(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2, Updated: 2}, res)

	assert.Contains(t, fake.updated, "page-biome")
	assert.Contains(t, fake.updated, "page-pattern")

	require.Len(t, fake.created, 2)
	first := fake.created[0]
	assert.Equal(t, notionapi.DatabaseID("db-1"), first.Parent.DatabaseID)
	assert.Equal(t, "Trace Genomics", first.Properties[ColName].(notionapi.TitleProperty).Title[0].Text.Content)
	assert.Equal(t, "https://tracegenomics.com", first.Properties[ColURL].(notionapi.URLProperty).URL)
	assert.Equal(t, "run-7", first.Properties[ColRunID].(notionapi.RichTextProperty).RichText[0].Text.Content)

	second := fake.created[1]
	assert.Equal(t, "Carbon Markets", second.Properties[ColSegment].(notionapi.RichTextProperty).RichText[0].Text.Content)
}

func TestNotionPublish_NoWebsiteOmitsURL(t *testing.T) {
	fake := &fakeNotion{}
	r := &model.Report{RunID: "r", Segments: []model.SegmentResult{{
		Name:      "Soil Health",
		Companies: []model.Company{{Name: "Pattern Ag"}},
	}}}

	res, err := NewNotion(fake, "db-1").Publish(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	_, hasURL := fake.created[0].Properties[ColURL]
	assert.False(t, hasURL)
}

func TestNotionPublish_DuplicateWithinRunUpdates(t *testing.T) {
	fake := &fakeNotion{}
	r := &model.Report{RunID: "r", Segments: []model.SegmentResult{{
		Name: "Soil Health",
		Companies: []model.Company{
			{Name: "Biome Makers", Website: "https://biomemakers.com"},
			{Name: "Biome Makers LLC", Website: "biomemakers.com"},
		},
	}}}

	res, err := NewNotion(fake, "db-1").Publish(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Updated: 1}, res)
	assert.Contains(t, fake.updated, "new-1")
}

func TestNotionPublish_RejectsDryRun(t *testing.T) {
	_, err := NewNotion(&fakeNotion{}, "db-1").Publish(context.Background(), &model.Report{DryRun: true})
	assert.ErrorIs(t, err, ErrDryRun)
}

func TestNotionPublish_CreateError(t *testing.T) {
	fake := &fakeNotion{createErr: errors.New("validation_error")}

	res, err := NewNotion(fake, "db-1").Publish(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish: create Biome Makers")
	assert.Equal(t, Result{}, res)
}

func TestNotionPublish_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNotion(&fakeNotion{}, "db-1").Publish(ctx, testReport())
	assert.ErrorIs(t, err, context.Canceled)
}
