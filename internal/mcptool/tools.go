package mcptool

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query         string  `json:"query" jsonschema:"the search query to execute"`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum number of results, default 10, max 50"`
	Mode          string  `json:"mode,omitempty" jsonschema:"retrieval mode: semantic, keyword, or hybrid (default hybrid)"`
	SourceType    string  `json:"source_type,omitempty" jsonschema:"filter by source type: text, file, glob, url, github, gist"`
	KeywordWeight float64 `json:"keyword_weight,omitempty" jsonschema:"hybrid-mode keyword weight in [0,1], default from config"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchHitOutput `json:"results" jsonschema:"list of matching fragments, ranked by score"`
}

// SearchHitOutput is a JSON-serializable view of a search.Hit.
type SearchHitOutput struct {
	FragmentID    string  `json:"fragment_id"`
	SourceID      string  `json:"source_id"`
	Content       string  `json:"content"`
	Score         float32 `json:"score"`
	SourceType    string  `json:"source_type,omitempty"`
	Title         string  `json:"title,omitempty"`
	URL           string  `json:"url,omitempty"`
	BoundaryType  string  `json:"boundary_type,omitempty"`
	BoundaryTitle string  `json:"boundary_title,omitempty"`
}

// IndexInput defines the input schema for the index tool.
type IndexInput struct {
	Type     string `json:"type" jsonschema:"source type: text, file, glob, url, github, or gist"`
	Text     string `json:"text,omitempty" jsonschema:"raw text to index, for type=text"`
	Title    string `json:"title,omitempty" jsonschema:"display title, for type=text or type=url"`
	Path     string `json:"path,omitempty" jsonschema:"filesystem path, for type=file or type=glob"`
	URL      string `json:"url,omitempty" jsonschema:"URL to fetch, for type=url"`
	Owner    string `json:"owner,omitempty" jsonschema:"repository owner, for type=github"`
	Repo     string `json:"repo,omitempty" jsonschema:"repository name, for type=github"`
	Ref      string `json:"ref,omitempty" jsonschema:"branch, tag, or commit, for type=github"`
	FilePath string `json:"file_path,omitempty" jsonschema:"file path within the repository, for type=github"`
	GistID   string `json:"gist_id,omitempty" jsonschema:"gist identifier, for type=gist"`
}

// IndexOutput defines the output schema for the index tool.
type IndexOutput struct {
	ItemsIndexed  int      `json:"items_indexed"`
	ChunksCreated int      `json:"chunks_created"`
	SourceIDs     []string `json:"source_ids,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// GetSectionInput defines the input schema for the get_section tool.
type GetSectionInput struct {
	FragmentID string `json:"fragment_id" jsonschema:"id of a fragment previously returned by search"`
	Full       bool   `json:"full,omitempty" jsonschema:"when true, return the source's original content instead of just the enclosing section"`
}

// GetSectionOutput defines the output schema for the get_section tool.
type GetSectionOutput struct {
	Content string `json:"content"`
}

// AgentQueryInput defines the input schema for the agent_query tool.
type AgentQueryInput struct {
	Goal           string `json:"goal,omitempty" jsonschema:"the broader task this query serves"`
	Query          string `json:"query" jsonschema:"the search query to execute"`
	Mode           string `json:"mode,omitempty" jsonschema:"summary, detailed, or full (default summary)"`
	Cursor         string `json:"cursor,omitempty" jsonschema:"pagination cursor from a previous response's next_cursor"`
	PageSize       int    `json:"page_size,omitempty" jsonschema:"results per page, default and maximum 10"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"overall time budget for this query"`
}

// AgentQueryOutput defines the output schema for the agent_query tool.
type AgentQueryOutput struct {
	TotalResults    int               `json:"total_results"`
	AvgScore        float32           `json:"avg_score"`
	QualityLevel    string            `json:"quality_level"`
	MainTopics      []string          `json:"main_topics,omitempty"`
	CoverageStatus  string            `json:"coverage_status"`
	PrimaryAction   string            `json:"primary_action"`
	EstimatedTokens int               `json:"estimated_tokens"`
	Hits            []SearchHitOutput `json:"hits,omitempty"`
	StrategicHints  []string          `json:"strategic_hints,omitempty"`
	NextCursor      string            `json:"next_cursor,omitempty"`
	Status          string            `json:"status"`
}
