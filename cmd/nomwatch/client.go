package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"nomwatch/internal/registry"
)

// registryClient is the thin HTTP adapter over the public registry API.
// It only fetches and decodes; cleaning and validation happen upstream of
// the engine contract (malformed entries are dropped here).
type registryClient struct {
	base string
	http *http.Client
}

func newRegistryClient(base string) *registryClient {
	return &registryClient{base: base, http: &http.Client{Timeout: 30 * time.Second}}
}

type wireRecord struct {
	Ref       string   `json:"ref"`
	Published string   `json:"published"`
	Kind      string   `json:"kind"`
	PersonID  string   `json:"person_id"`
	Person    string   `json:"person"`
	Orgs      []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"orgs"`
	Functions []string `json:"functions"`
	Detail    string   `json:"detail"`
	Link      string   `json:"link"`
}

func (c *registryClient) Fetch(ctx context.Context, from, to time.Time) ([]registry.Record, error) {
	u := fmt.Sprintf("%s/records?from=%s&to=%s",
		c.base,
		url.QueryEscape(from.Format("2006-01-02")),
		url.QueryEscape(to.Format("2006-01-02")))
	var wire []wireRecord
	if err := c.getJSON(ctx, u, &wire); err != nil {
		return nil, err
	}

	recs := make([]registry.Record, 0, len(wire))
	for _, w := range wire {
		pub, err := time.Parse("2006-01-02", w.Published)
		if err != nil || w.Ref == "" {
			continue
		}
		r := registry.Record{
			RefID:        w.Ref,
			Published:    pub,
			Kind:         w.Kind,
			PersonID:     w.PersonID,
			PersonName:   w.Person,
			FunctionTags: w.Functions,
			Detail:       w.Detail,
			Link:         w.Link,
		}
		for _, o := range w.Orgs {
			r.Orgs = append(r.Orgs, registry.OrgRef{ID: o.ID, Name: o.Name})
		}
		recs = append(recs, r)
	}
	return recs, nil
}

func (c *registryClient) OrgLabels(ctx context.Context) (map[string]string, error) {
	var labels map[string]string
	if err := c.getJSON(ctx, c.base+"/organisations", &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

func (c *registryClient) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry: status %d for %s", resp.StatusCode, u)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
