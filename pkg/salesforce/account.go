package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account is the subset of a Salesforce Account the publisher reads.
type Account struct {
	ID             string `json:"Id" salesforce:"Id"`
	Name           string `json:"Name" salesforce:"Name"`
	Website        string `json:"Website" salesforce:"Website"`
	Description    string `json:"Description" salesforce:"Description"`
	BillingCountry string `json:"BillingCountry" salesforce:"BillingCountry"`
}

const accountFields = "Id, Name, Website, Description, BillingCountry"

// FindAccountByDomain returns the first Account whose Website contains
// domain, or nil when none does.
func FindAccountByDomain(ctx context.Context, c Client, domain string) (*Account, error) {
	if domain == "" {
		return nil, eris.New("sf: domain is required")
	}
	soql := fmt.Sprintf("SELECT %s FROM Account WHERE Website LIKE '%%%s%%' ORDER BY CreatedDate LIMIT 1",
		accountFields, escapeSoql(domain))
	return findOne(ctx, c, soql, "domain "+domain)
}

// FindAccountByName returns the first Account named exactly name, or nil.
func FindAccountByName(ctx context.Context, c Client, name string) (*Account, error) {
	if name == "" {
		return nil, eris.New("sf: name is required")
	}
	soql := fmt.Sprintf("SELECT %s FROM Account WHERE Name = '%s' ORDER BY CreatedDate LIMIT 1",
		accountFields, escapeSoql(name))
	return findOne(ctx, c, soql, "name "+name)
}

func findOne(ctx context.Context, c Client, soql, what string) (*Account, error) {
	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find account by %s", what))
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// CreateAccount inserts an Account and returns its ID.
func CreateAccount(ctx context.Context, c Client, fields map[string]any) (string, error) {
	if name, _ := fields["Name"].(string); name == "" {
		return "", eris.New("sf: account Name is required")
	}
	id, err := c.InsertOne(ctx, "Account", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create account")
	}
	return id, nil
}

// UpdateAccount sets fields on an existing Account.
func UpdateAccount(ctx context.Context, c Client, id string, fields map[string]any) error {
	if id == "" {
		return eris.New("sf: account id is required")
	}
	if len(fields) == 0 {
		return nil
	}
	if err := c.UpdateOne(ctx, "Account", id, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update account %s", id))
	}
	return nil
}

// escapeSoql escapes a value for use inside a SOQL string literal.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
