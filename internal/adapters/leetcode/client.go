package leetcode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://leetcode.com/graphql"

// LeetCode отдаёт GraphQL только браузерам, поэтому представляемся браузером.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36"

const recentSubmissionsQuery = `
query getRecentAcSubmissionList($username: String!, $limit: Int!) {
  recentAcSubmissionList(username: $username, limit: $limit) {
    id
    title
    titleSlug
    timestamp
  }
}`

const questionQuery = `
query questionData($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    difficulty
    title
  }
}`

// Client выполняет запросы к публичному GraphQL API LeetCode.
type Client struct {
	http    *resty.Client
	baseURL string
}

var (
	_ domain.SubmissionSource = (*Client)(nil)
	_ domain.ProblemSource    = (*Client)(nil)
)

// NewClient создаёт клиента LeetCode.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", browserUserAgent)
	return &Client{http: httpClient, baseURL: baseURL}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

func (c *Client) post(ctx context.Context, operation, referer string, body graphQLRequest, out any) error {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Referer", referer).
		SetBody(body).
		Post(c.baseURL)
	metrics.ObserveNetworkRequest("leetcode", operation, "graphql", start, err)
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("LeetCode API вернул статус %d", resp.StatusCode())
	}
	return json.Unmarshal(resp.Body(), out)
}

// RecentAccepted возвращает последние принятые решения профиля, от новых к
// старым. (nil, nil) означает, что профиль временно недоступен — GraphQL
// вернул ошибку или null вместо списка.
func (c *Client) RecentAccepted(ctx context.Context, username string, limit int) ([]domain.RecentSubmission, error) {
	var payload struct {
		Errors []graphQLError `json:"errors"`
		Data   struct {
			RecentAcSubmissionList []struct {
				ID        string `json:"id"`
				Title     string `json:"title"`
				TitleSlug string `json:"titleSlug"`
				Timestamp string `json:"timestamp"`
			} `json:"recentAcSubmissionList"`
		} `json:"data"`
	}

	err := c.post(ctx, "recent_submissions", "https://leetcode.com/"+username+"/", graphQLRequest{
		Query:     recentSubmissionsQuery,
		Variables: map[string]any{"username": username, "limit": limit},
	}, &payload)
	if err != nil {
		return nil, err
	}
	if len(payload.Errors) > 0 || payload.Data.RecentAcSubmissionList == nil {
		return nil, nil
	}

	subs := make([]domain.RecentSubmission, 0, len(payload.Data.RecentAcSubmissionList))
	for _, raw := range payload.Data.RecentAcSubmissionList {
		ts, err := strconv.ParseInt(raw.Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный timestamp %q: %w", raw.Timestamp, err)
		}
		subs = append(subs, domain.RecentSubmission{
			ID:          raw.ID,
			Title:       raw.Title,
			Slug:        raw.TitleSlug,
			SubmittedAt: time.Unix(ts, 0).UTC(),
		})
	}
	return subs, nil
}

// Question возвращает сложность и каноническое название задачи.
func (c *Client) Question(ctx context.Context, slug string) (domain.ProblemInfo, error) {
	var payload struct {
		Errors []graphQLError `json:"errors"`
		Data   struct {
			Question *struct {
				Difficulty string `json:"difficulty"`
				Title      string `json:"title"`
			} `json:"question"`
		} `json:"data"`
	}

	err := c.post(ctx, "question_metadata", "https://leetcode.com/problems/"+slug+"/", graphQLRequest{
		Query:     questionQuery,
		Variables: map[string]any{"titleSlug": slug},
	}, &payload)
	if err != nil {
		return domain.ProblemInfo{}, err
	}
	if len(payload.Errors) > 0 {
		return domain.ProblemInfo{}, fmt.Errorf("GraphQL ошибка для %s: %s", slug, payload.Errors[0].Message)
	}
	q := payload.Data.Question
	if q == nil || q.Difficulty == "" || q.Title == "" {
		return domain.ProblemInfo{}, fmt.Errorf("нет метаданных для задачи %s", slug)
	}
	return domain.ProblemInfo{
		Slug:       slug,
		Difficulty: domain.Difficulty(q.Difficulty),
		Title:      q.Title,
	}, nil
}
