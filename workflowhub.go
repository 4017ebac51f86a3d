package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const workflowHubPageSize = 100

// WorkflowHubClient lists and fetches workflow metadata from a WorkflowHub
// instance. All payload interpretation happens in the field extractor; this
// client only moves bytes.
type WorkflowHubClient struct {
	baseURL    string
	source     string
	client     *http.Client
	retries    int
	retryDelay time.Duration

	projectTitles map[string]string // project id -> title, shared by one fetch batch
}

func NewWorkflowHubClient(cfg Config) *WorkflowHubClient {
	return &WorkflowHubClient{
		baseURL:       cfg.WorkflowHubURL,
		source:        cfg.WorkflowHubSource,
		client:        newHTTPClient(cfg),
		retries:       cfg.HTTPRetries,
		retryDelay:    2 * time.Second,
		projectTitles: make(map[string]string),
	}
}

// ListWorkflowLinks pages through the workflow index and returns the
// self-links of every listed workflow.
func (c *WorkflowHubClient) ListWorkflowLinks() ([]string, error) {
	var links []string
	page := 1

	for {
		url := fmt.Sprintf("%s/workflows?page[number]=%d&page[size]=%d", c.baseURL, page, workflowHubPageSize)
		body, err := getJSON(c.client, url, c.retries, c.retryDelay)
		if err != nil {
			return nil, fmt.Errorf("listing workflows page %d: %w", page, err)
		}

		items := gjson.GetBytes(body, "data").Array()
		for _, item := range items {
			if self := item.Get("links.self").String(); self != "" {
				links = append(links, self)
			}
		}

		if len(items) < workflowHubPageSize {
			break
		}
		page++
	}

	log.Printf("workflowhub list done links=%d", len(links))
	return links, nil
}

// FetchWorkflowRecords fetches every listed workflow and extracts it into a
// canonical record. A record that cannot be fetched or has no stable
// identifier is skipped with a note; it never aborts the batch. limit > 0
// caps the number of detail fetches (test runs).
func (c *WorkflowHubClient) FetchWorkflowRecords(limit int) ([]ResourceRecord, []string, error) {
	links, err := c.ListWorkflowLinks()
	if err != nil {
		return nil, nil, err
	}
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	var records []ResourceRecord
	var skipped []string
	for i, link := range links {
		body, err := getJSON(c.client, c.baseURL+link, c.retries, c.retryDelay)
		if err != nil {
			log.Printf("workflowhub fetch %s failed: %v", link, err)
			skipped = append(skipped, fmt.Sprintf("%s: fetch failed: %v", link, err))
			continue
		}
		rec, err := ExtractRecord(body, c.source)
		if err != nil {
			log.Printf("workflowhub skip %s: %v", link, err)
			skipped = append(skipped, fmt.Sprintf("%s: %v", link, err))
			continue
		}
		if len(rec.Projects) == 0 {
			rec.Projects = c.resolveProjects(body)
		}
		records = append(records, rec)

		if (i+1)%10 == 0 {
			log.Printf("workflowhub fetched %d/%d", i+1, len(links))
		}
	}

	log.Printf("workflowhub fetch done records=%d skipped=%d", len(records), len(skipped))
	return records, skipped, nil
}

// resolveProjects turns the project relationship ids of a workflow payload
// into project titles via per-project detail fetches. Titles are cached for
// the lifetime of the client; a project that cannot be fetched is dropped
// rather than failing the workflow.
func (c *WorkflowHubClient) resolveProjects(body []byte) []string {
	var titles []string
	gjson.GetBytes(body, "data.relationships.projects.data").ForEach(func(_, p gjson.Result) bool {
		id := p.Get("id").String()
		if id == "" {
			return true
		}
		title, ok := c.projectTitles[id]
		if !ok {
			detail, err := getJSON(c.client, c.baseURL+"/projects/"+id, c.retries, c.retryDelay)
			if err != nil {
				log.Printf("workflowhub project %s fetch failed: %v", id, err)
				return true
			}
			title = gjson.GetBytes(detail, "data.attributes.title").String()
			c.projectTitles[id] = title
		}
		if title != "" {
			titles = append(titles, title)
		}
		return true
	})
	return dedupeKeepOrder(titles)
}
