package main

import (
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thesis-scout/internal/publish"
	"github.com/sells-group/thesis-scout/pkg/notion"
	"github.com/sells-group/thesis-scout/pkg/salesforce"
)

// initSink builds the publish target selected by cfg.Publish.Target.
func initSink() (publish.Sink, error) {
	switch cfg.Publish.Target {
	case "notion":
		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
		return publish.NewNotion(client, cfg.Notion.DatabaseID), nil
	case "salesforce":
		pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
		if err != nil {
			return nil, eris.Wrap(err, "read salesforce JWT private key")
		}
		client, err := salesforce.Connect(salesforce.Creds{
			LoginURL: cfg.Salesforce.LoginURL,
			Username: cfg.Salesforce.Username,
			ClientID: cfg.Salesforce.ClientID,
			KeyPEM:   string(pemData),
		}, salesforce.WithRateLimit(cfg.Salesforce.RateLimit))
		if err != nil {
			return nil, err
		}
		return publish.NewSalesforce(client), nil
	default:
		return nil, eris.Errorf("unsupported publish target %q", cfg.Publish.Target)
	}
}
