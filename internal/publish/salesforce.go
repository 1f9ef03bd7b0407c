package publish

import (
	"context"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/company"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/pkg/salesforce"
)

// maxDescriptionRunes keeps descriptions under the Account field limit.
const maxDescriptionRunes = 32000

// SalesforcePublisher upserts companies as Salesforce Accounts. Existing
// Accounts only have empty fields filled; CRM-owned values are never
// overwritten.
type SalesforcePublisher struct {
	client salesforce.Client
}

// NewSalesforce returns a publisher writing through client.
func NewSalesforce(client salesforce.Client) *SalesforcePublisher {
	return &SalesforcePublisher{client: client}
}

// Publish implements Sink. A company listed under several segments maps to
// one Account and is counted once.
func (p *SalesforcePublisher) Publish(ctx context.Context, r *model.Report) (Result, error) {
	var res Result
	if r.DryRun {
		return res, ErrDryRun
	}

	seen := make(map[string]bool)
	for _, seg := range r.Segments {
		for _, c := range seg.Companies {
			if err := ctx.Err(); err != nil {
				return res, eris.Wrap(err, "publish: cancelled")
			}
			key := identity(c)
			if seen[key] {
				continue
			}
			seen[key] = true

			acct, err := p.find(ctx, c)
			if err != nil {
				return res, eris.Wrapf(err, "publish: look up %s", c.Name)
			}

			if acct == nil {
				if _, err := salesforce.CreateAccount(ctx, p.client, accountFields(c)); err != nil {
					return res, eris.Wrapf(err, "publish: create %s", c.Name)
				}
				res.Created++
				continue
			}

			fill := missingFields(acct, c)
			if len(fill) == 0 {
				continue
			}
			if err := salesforce.UpdateAccount(ctx, p.client, acct.ID, fill); err != nil {
				return res, eris.Wrapf(err, "publish: update %s", c.Name)
			}
			res.Updated++
		}
	}

	zap.L().Info("publish: report published",
		zap.String("sink", "salesforce"),
		zap.String("run_id", r.RunID),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
	)
	return res, nil
}

func (p *SalesforcePublisher) find(ctx context.Context, c model.Company) (*salesforce.Account, error) {
	if d := company.NormalizeDomain(c.Website); d != "" {
		acct, err := salesforce.FindAccountByDomain(ctx, p.client, d)
		if err != nil || acct != nil {
			return acct, err
		}
	}
	return salesforce.FindAccountByName(ctx, p.client, c.Name)
}

func identity(c model.Company) string {
	if d := company.NormalizeDomain(c.Website); d != "" {
		return "d:" + d
	}
	return "n:" + company.NormalizeName(c.Name)
}

func accountFields(c model.Company) map[string]any {
	fields := map[string]any{"Name": c.Name}
	if c.Website != "" {
		fields["Website"] = c.Website
	}
	if c.Country != "" {
		fields["BillingCountry"] = c.Country
	}
	if c.Summary != "" {
		fields["Description"] = description(c.Summary)
	}
	return fields
}

func missingFields(acct *salesforce.Account, c model.Company) map[string]any {
	fill := make(map[string]any)
	if acct.Website == "" && c.Website != "" {
		fill["Website"] = c.Website
	}
	if acct.BillingCountry == "" && c.Country != "" {
		fill["BillingCountry"] = c.Country
	}
	if acct.Description == "" && c.Summary != "" {
		fill["Description"] = description(c.Summary)
	}
	return fill
}

func description(s string) string {
	if utf8.RuneCountInString(s) <= maxDescriptionRunes {
		return s
	}
	return string([]rune(s)[:maxDescriptionRunes])
}
