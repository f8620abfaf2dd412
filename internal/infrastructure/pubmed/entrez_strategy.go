package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/ports"
)

const articleBaseURL = "https://pubmed.ncbi.nlm.nih.gov"

// EntrezStrategy is the direct authenticated call against the NCBI
// E-utilities API: ESearch resolves the query to PMIDs inside the lookback
// window, ESummary resolves PMIDs to metadata.
type EntrezStrategy struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.FetchStrategy = (*EntrezStrategy)(nil)

// NewEntrezStrategy wires the E-utilities endpoint and optional API key.
func NewEntrezStrategy(baseURL, apiKey string, client *http.Client, logger *slog.Logger) *EntrezStrategy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &EntrezStrategy{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
	}
}

// Name identifies the strategy in cascade logs and provenance.
func (s *EntrezStrategy) Name() string {
	return "entrez"
}

// Live marks this as an upstream source whose results feed the cache.
func (s *EntrezStrategy) Live() bool {
	return true
}

// Fetch runs ESearch then ESummary and normalizes the summaries.
func (s *EntrezStrategy) Fetch(ctx context.Context, query domain.Query) ([]domain.Record, error) {
	if query.Text == "" {
		return nil, fmt.Errorf("entrez query text is empty")
	}

	ids, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("entrez: %w", domain.ErrNoRecords)
	}

	records, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("entrez: %w", domain.ErrNoRecords)
	}

	return records, nil
}

func (s *EntrezStrategy) search(ctx context.Context, query domain.Query) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query.Text)
	params.Set("retmode", "json")
	params.Set("sort", "date")
	if query.Limit > 0 {
		params.Set("retmax", strconv.Itoa(query.Limit))
	}
	if query.LookbackDays > 0 {
		params.Set("datetype", "pdat")
		params.Set("reldate", strconv.Itoa(query.LookbackDays))
	}
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}

	var parsed struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := s.get(ctx, "/esearch.fcgi", params, &parsed); err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	s.debug("esearch done", "ids", len(parsed.ESearchResult.IDList))
	return parsed.ESearchResult.IDList, nil
}

func (s *EntrezStrategy) summaries(ctx context.Context, ids []string) ([]domain.Record, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "json")
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}

	var parsed struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := s.get(ctx, "/esummary.fcgi", params, &parsed); err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	var uids []string
	if raw, ok := parsed.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, fmt.Errorf("esummary: decode uids: %w", err)
		}
	}

	now := time.Now().UTC()
	records := make([]domain.Record, 0, len(uids))
	for _, uid := range uids {
		raw, ok := parsed.Result[uid]
		if !ok {
			continue
		}
		record, err := parseSummary(uid, raw, now)
		if err != nil {
			s.debug("skipping malformed summary", "uid", uid, "error", err)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

type entrezSummary struct {
	Title           string `json:"title"`
	FullJournalName string `json:"fulljournalname"`
	Source          string `json:"source"`
	PubDate         string `json:"pubdate"`
	Authors         []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

func parseSummary(uid string, raw json.RawMessage, now time.Time) (domain.Record, error) {
	var summary entrezSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.Record{}, err
	}

	record := domain.Record{
		ID:          uid,
		Title:       strings.TrimSpace(summary.Title),
		URL:         fmt.Sprintf("%s/%s/", articleBaseURL, uid),
		Journal:     firstNonEmpty(summary.FullJournalName, summary.Source),
		PublishedAt: parsePubDate(summary.PubDate, now),
	}

	names := make([]string, 0, len(summary.Authors))
	for _, a := range summary.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	record.Authors = strings.Join(names, ", ")

	for _, id := range summary.ArticleIDs {
		if id.IDType == "doi" && id.Value != "" {
			record.DOI = id.Value
			break
		}
	}

	return record.Normalize(now), nil
}

// parsePubDate accepts the progressively truncated formats ESummary emits.
func parsePubDate(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006 Jan 2", "2006 Jan", "2006"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *EntrezStrategy) get(ctx context.Context, path string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "PubMedCurator/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (s *EntrezStrategy) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
