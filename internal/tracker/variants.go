// Copyright 2024 The chute Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/chutedev/chute/internal/config"
	"github.com/chutedev/chute/internal/types"
	"github.com/chutedev/chute/internal/util/httputil"
)

// jira talks to a JIRA server's REST API v2.
type jira struct {
	cfg config.Tracker
}

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
	} `json:"fields"`
}

func (j *jira) GetIssue(ctx context.Context, number string) (*Issue, error) {
	var issue jiraIssue
	url := fmt.Sprintf("%s/rest/api/2/issue/%s", j.cfg.URL, number)
	if err := httputil.FetchJSON(ctx, url, j.cfg.Token, &issue); err != nil {
		return nil, err
	}
	return &Issue{
		Number:  issue.Key,
		State:   issue.Fields.Status.Name,
		Summary: issue.Fields.Summary,
		URL:     fmt.Sprintf("%s/browse/%s", j.cfg.URL, issue.Key),
	}, nil
}

func (j *jira) TransitionState(ctx context.Context, number, state string) error {
	url := fmt.Sprintf("%s/rest/api/2/issue/%s/transitions", j.cfg.URL, number)
	body := map[string]interface{}{
		"transition": map[string]string{"name": state},
	}
	return httputil.PostJSON(ctx, url, j.cfg.Token, body)
}

func (j *jira) IssueState(ctx context.Context, number string) (string, error) {
	issue, err := j.GetIssue(ctx, number)
	if err != nil {
		return "", err
	}
	return issue.State, nil
}

func (j *jira) IssueNumber(cs types.Changeset) string {
	digits := issueDigits(cs)
	if digits == "" {
		return ""
	}
	return strings.ToUpper(j.cfg.Project) + "-" + digits
}

func (j *jira) LabelService() string { return "jira" }

// github talks to the GitHub issues API.
type github struct {
	cfg config.Tracker
}

type githubIssue struct {
	Number  int    `json:"number"`
	State   string `json:"state"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

func (g *github) apiURL() string {
	if g.cfg.URL != "" {
		return g.cfg.URL
	}
	return "https://api.github.com"
}

func (g *github) GetIssue(ctx context.Context, number string) (*Issue, error) {
	var issue githubIssue
	url := fmt.Sprintf("%s/repos/%s/issues/%s", g.apiURL(), g.cfg.Project, number)
	if err := httputil.FetchJSON(ctx, url, g.cfg.Token, &issue); err != nil {
		return nil, err
	}
	return &Issue{
		Number:  fmt.Sprintf("%d", issue.Number),
		State:   issue.State,
		Summary: issue.Title,
		URL:     issue.HTMLURL,
	}, nil
}

func (g *github) TransitionState(ctx context.Context, number, state string) error {
	// the GitHub issue state machine only knows open and closed
	url := fmt.Sprintf("%s/repos/%s/issues/%s", g.apiURL(), g.cfg.Project, number)
	return httputil.PostJSON(ctx, url, g.cfg.Token, map[string]string{"state": state})
}

func (g *github) IssueState(ctx context.Context, number string) (string, error) {
	issue, err := g.GetIssue(ctx, number)
	if err != nil {
		return "", err
	}
	return issue.State, nil
}

func (g *github) IssueNumber(cs types.Changeset) string {
	return issueDigits(cs)
}

func (g *github) LabelService() string { return "github" }

// eventum talks to an Eventum server's RPC endpoint.
type eventum struct {
	cfg config.Tracker
}

type eventumIssue struct {
	ID      int    `json:"id"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

func (e *eventum) GetIssue(ctx context.Context, number string) (*Issue, error) {
	var issue eventumIssue
	url := fmt.Sprintf("%s/api/issue/%s", e.cfg.URL, number)
	if err := httputil.FetchJSON(ctx, url, e.cfg.Token, &issue); err != nil {
		return nil, err
	}
	return &Issue{
		Number:  fmt.Sprintf("%d", issue.ID),
		State:   issue.Status,
		Summary: issue.Summary,
		URL:     fmt.Sprintf("%s/view.php?id=%d", e.cfg.URL, issue.ID),
	}, nil
}

func (e *eventum) TransitionState(ctx context.Context, number, state string) error {
	url := fmt.Sprintf("%s/api/issue/%s/status", e.cfg.URL, number)
	return httputil.PostJSON(ctx, url, e.cfg.Token, map[string]string{"status": state})
}

func (e *eventum) IssueState(ctx context.Context, number string) (string, error) {
	issue, err := e.GetIssue(ctx, number)
	if err != nil {
		return "", err
	}
	return issue.State, nil
}

func (e *eventum) IssueNumber(cs types.Changeset) string {
	return issueDigits(cs)
}

func (e *eventum) LabelService() string { return "eventum" }

// rt talks to a Request Tracker server's REST 1.0 interface, which
// speaks a line-oriented text format rather than JSON.
type rt struct {
	cfg config.Tracker
}

func (r *rt) GetIssue(ctx context.Context, number string) (*Issue, error) {
	url := fmt.Sprintf("%s/REST/1.0/ticket/%s/show", r.cfg.URL, number)
	content, err := httputil.FetchContent(ctx, url, r.cfg.Token)
	if err != nil {
		return nil, err
	}
	issue := &Issue{
		Number: number,
		URL:    fmt.Sprintf("%s/Ticket/Display.html?id=%s", r.cfg.URL, number),
	}
	for _, line := range strings.Split(content, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Status":
			issue.State = value
		case "Subject":
			issue.Summary = value
		}
	}
	return issue, nil
}

func (r *rt) TransitionState(ctx context.Context, number, state string) error {
	url := fmt.Sprintf("%s/REST/1.0/ticket/%s/edit", r.cfg.URL, number)
	return httputil.PostJSON(ctx, url, r.cfg.Token, map[string]string{"Status": state})
}

func (r *rt) IssueState(ctx context.Context, number string) (string, error) {
	issue, err := r.GetIssue(ctx, number)
	if err != nil {
		return "", err
	}
	return issue.State, nil
}

func (r *rt) IssueNumber(cs types.Changeset) string {
	return issueDigits(cs)
}

func (r *rt) LabelService() string { return "rt" }
