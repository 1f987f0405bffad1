package query

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/veyra-dev/veyra/internal/cache"
	"github.com/veyra-dev/veyra/internal/search"
	"github.com/veyra-dev/veyra/internal/verrors"
)

// Mode selects an AgentQuery response shape.
type Mode string

const (
	ModeSummary  Mode = "summary"
	ModeDetailed Mode = "detailed"
	ModeFull     Mode = "full"
)

// QualityLevel buckets the average hit score of an agent query.
type QualityLevel string

const (
	QualityHigh   QualityLevel = "high"
	QualityMedium QualityLevel = "medium"
	QualityLow    QualityLevel = "low"
)

// CoverageStatus reports how much of the goal's vocabulary showed up in
// the combined hits.
type CoverageStatus string

const (
	CoverageComplete CoverageStatus = "complete"
	CoveragePartial  CoverageStatus = "partial"
	CoverageNone     CoverageStatus = "none"
)

const (
	maxPageSize     = 10
	detailedHitCap  = 5
	qualityHighCut  = 0.7
	qualityMediumCut = 0.5
)

// AgentQueryRequest is one call into the agent-facing orchestrator.
type AgentQueryRequest struct {
	Goal           string
	Query          string
	Mode           Mode
	Cursor         string
	PageSize       int
	TimeoutSeconds int
}

// AgentQueryResponse is the shape returned for every Mode; fields that
// don't apply to a given mode are left at their zero value (Hits is nil
// for ModeSummary, StrategicHints is nil for ModeSummary).
type AgentQueryResponse struct {
	TotalResults    int
	AvgScore        float32
	QualityLevel    QualityLevel
	MainTopics      []string
	CoverageStatus  CoverageStatus
	PrimaryAction   string
	EstimatedTokens int

	Hits           []search.Hit
	StrategicHints []string

	NextCursor string
	// Status is "complete" or "partial" (timeoutSeconds elapsed mid-chain).
	Status string
}

// Orchestrator runs the agent chain and assembles AgentQuery responses.
// Cache and StructuredRoot are both optional: a nil Cache disables query
// recording, an empty StructuredRoot disables artifact assembly.
type Orchestrator struct {
	Engine         *search.Engine
	Cache          *cache.Cache
	StructuredRoot string
}

// pageCursor is the opaque pagination token, base64-encoded JSON. Stage
// is carried for forward compatibility with a per-stage pagination
// scheme; this implementation always pages over the chain's single
// combined, deduped hit list, so it is always 0.
type pageCursor struct {
	Stage  int `json:"stage"`
	Offset int `json:"offset"`
}

func encodeCursor(c pageCursor) string {
	raw, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(raw)
}

func decodeCursor(s string) (pageCursor, error) {
	if s == "" {
		return pageCursor{}, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return pageCursor{}, verrors.New(verrors.InvalidCursor, "cursor is not valid base64", err)
	}
	var c pageCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return pageCursor{}, verrors.New(verrors.InvalidCursor, "cursor payload is malformed", err)
	}
	if c.Offset < 0 {
		return pageCursor{}, verrors.New(verrors.InvalidCursor, "cursor offset is negative", nil)
	}
	return c, nil
}

// AgentQuery runs the built-in three-stage chain for req.Query, then
// assembles a response shaped by req.Mode. A successful query is
// recorded to the orchestrator's cache; a ModeFull query additionally
// appends to a structured knowledge artifact when StructuredRoot is set.
func (o *Orchestrator) AgentQuery(ctx context.Context, req AgentQueryRequest) (*AgentQueryResponse, error) {
	cur, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	runCtx := ctx
	if req.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	chainResult, chainErr := RunChain(runCtx, o.Engine, req.Query, AgentChain(req.Query))

	status := "complete"
	if chainErr != nil {
		if req.TimeoutSeconds > 0 && errors.Is(chainErr, context.DeadlineExceeded) {
			status = "partial"
		} else if errors.Is(chainErr, context.Canceled) {
			return nil, verrors.New(verrors.Cancelled, "agent query cancelled", chainErr)
		} else {
			return nil, chainErr
		}
	}

	combined := chainResult.CombinedResults
	m := computeMetrics(req.Goal, combined)

	resp := &AgentQueryResponse{
		TotalResults:   len(combined),
		AvgScore:       m.avgScore,
		QualityLevel:   m.quality,
		MainTopics:     m.mainTopics,
		CoverageStatus: m.coverage,
		PrimaryAction:  m.primaryAction,
		Status:         status,
	}

	modeCap := pageSize
	if req.Mode == ModeDetailed && modeCap > detailedHitCap {
		modeCap = detailedHitCap
	}
	if req.Mode == ModeSummary {
		modeCap = 0
	}

	if modeCap > 0 {
		offset := cur.Offset
		if offset > len(combined) {
			offset = len(combined)
		}
		end := offset + modeCap
		if end > len(combined) {
			end = len(combined)
		}
		resp.Hits = combined[offset:end]
		if end < len(combined) {
			resp.NextCursor = encodeCursor(pageCursor{Offset: end})
		}
	}

	if req.Mode != ModeSummary {
		resp.StrategicHints = strategicHints(m.quality)
	}

	resp.EstimatedTokens = estimateTokens(req.Mode, resp)

	if o.Cache != nil && status == "complete" {
		_ = o.Cache.Record(req.Query, string(req.Mode), summarizeForCache(m), time.Now())
	}

	if req.Mode == ModeFull && o.StructuredRoot != "" {
		_ = o.writeStructuredArtifact(req.Goal, chainResult)
	}

	return resp, nil
}

type metrics struct {
	avgScore      float32
	quality       QualityLevel
	mainTopics    []string
	coverage      CoverageStatus
	primaryAction string
}

// computeMetrics derives the top-level quality/coverage metrics from the
// chain's full combined hit list, independent of whatever page of it the
// caller is about to see.
func computeMetrics(goal string, hits []search.Hit) metrics {
	if len(hits) == 0 {
		return metrics{quality: QualityLow, primaryAction: "broaden query terms", coverage: CoverageNone}
	}

	var sum float32
	tokenCounts := make(map[string]int)
	var allContent strings.Builder
	for _, h := range hits {
		sum += h.Score
		for _, tok := range search.Tokenize(h.Fragment.Content) {
			tokenCounts[tok]++
		}
		allContent.WriteString(h.Fragment.Content)
		allContent.WriteByte(' ')
	}

	m := metrics{avgScore: sum / float32(len(hits)), mainTopics: topTokens(tokenCounts, 3)}

	switch {
	case m.avgScore >= qualityHighCut:
		m.quality, m.primaryAction = QualityHigh, "refine"
	case m.avgScore >= qualityMediumCut:
		m.quality, m.primaryAction = QualityMedium, "expand"
	default:
		m.quality, m.primaryAction = QualityLow, "broaden query terms"
	}

	m.coverage = coverageFromGoal(goal, allContent.String())
	return m
}

// coverageFromGoal reports how many of goal's non-stop-word tokens appear
// in content. A goal with no extractable keywords is trivially complete:
// there's nothing left uncovered to report.
func coverageFromGoal(goal, content string) CoverageStatus {
	goalTokens := search.Tokenize(goal)
	if len(goalTokens) == 0 {
		return CoverageComplete
	}

	lower := strings.ToLower(content)
	matched := 0
	for _, gt := range goalTokens {
		if strings.Contains(lower, gt) {
			matched++
		}
	}

	switch {
	case matched == len(goalTokens):
		return CoverageComplete
	case matched == 0:
		return CoverageNone
	default:
		return CoveragePartial
	}
}

func topTokens(counts map[string]int, n int) []string {
	type tokenCount struct {
		token string
		count int
	}
	list := make([]tokenCount, 0, len(counts))
	for token, count := range counts {
		list = append(list, tokenCount{token, count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].token < list[j].token
	})
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.token
	}
	return out
}

func strategicHints(q QualityLevel) []string {
	switch q {
	case QualityHigh:
		return []string{"Results are strong; consider a narrower follow-up query."}
	case QualityMedium:
		return []string{
			"Try a hybrid search with a higher keyword weight.",
			"Add related terms to the query.",
		}
	default:
		return []string{
			"Broaden the query; overlap with the goal's keywords is low.",
			"Check whether a source type filter is too restrictive.",
		}
	}
}

func summarizeForCache(m metrics) string {
	return fmt.Sprintf("%s quality, topics: %s", m.quality, strings.Join(m.mainTopics, ", "))
}

// estimateTokens is a rough size estimate (roughly 4 bytes per token,
// the common approximation for English text) over the payload actually
// returned, plus a fixed per-mode overhead for the metrics fields every
// response carries.
func estimateTokens(mode Mode, resp *AgentQueryResponse) int {
	base := map[Mode]int{ModeSummary: 200, ModeDetailed: 500, ModeFull: 800}[mode]
	for _, h := range resp.Hits {
		base += len(h.Fragment.Content) / 4
	}
	return base
}

func (o *Orchestrator) writeStructuredArtifact(topic string, chainResult *ChainResult) error {
	dir := filepath.Join(o.StructuredRoot, "structured")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, sanitizeTopic(topic)+".md")

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n## %s\n\n", chainResult.Timestamp.Format(time.RFC3339)))
	for _, sr := range chainResult.Stages {
		desc := sr.Stage.Description
		if desc == "" {
			desc = sr.Stage.Query
		}
		sb.WriteString(fmt.Sprintf("### %s\n\n", desc))
		for _, h := range sr.Hits {
			sb.WriteString(fmt.Sprintf("- (%.3f) %s\n", h.Score, firstLine(h.Fragment.Content)))
		}
		sb.WriteString("\n")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(sb.String())
	return err
}

func sanitizeTopic(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "topic"
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if len(s) > 120 {
		return s[:120]
	}
	return s
}
