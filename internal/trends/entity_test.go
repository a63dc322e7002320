package trends

import "testing"

func TestClassifyEntity(t *testing.T) {
	tests := []struct{ keyword, want string }{
		{"Taylor Swift", "person"},
		{"Modi", "person"},
		{"#WorldCupFinal", "hashtag"},
		{"state election results", "political"},
		{"tech stock rally", "business"},
		{"heavy rainfall warning", "keyword"},
		{"", "keyword"},
	}

	for _, tt := range tests {
		if got := ClassifyEntity(tt.keyword); got != tt.want {
			t.Errorf("ClassifyEntity(%q) = %q, want %q", tt.keyword, got, tt.want)
		}
	}
}

func TestExtractEntities(t *testing.T) {
	batch := []Trend{
		{
			Platform: PlatformSearch, Region: "USA", Keyword: "Budget Day",
			Category: "Politics", Context: "Annual budget announcement.",
			Search: &SearchFields{SearchVolume: 300_000, PublicSentiment: "curious"},
		},
		{
			Platform: PlatformMention, Region: "India", Keyword: "Budget Day",
			Category: "Politics",
			Mention:  &MentionFields{MentionVolume: 900_000, PrimarySentiment: "concerned"},
		},
		{
			Platform: PlatformSearch, Region: "India", Keyword: "local derby",
			Category: "Sports",
			Search:   &SearchFields{SearchVolume: 50_000, PublicSentiment: "excited"},
		},
	}

	entities := ExtractEntities(batch)
	if len(entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(entities))
	}

	// Ordered by total mentions descending.
	top := entities[0]
	if top.Name != "Budget Day" {
		t.Fatalf("top entity = %q", top.Name)
	}
	if top.TotalMentions != 1_200_000 {
		t.Errorf("total mentions = %d, want 1200000", top.TotalMentions)
	}
	if len(top.Regions) != 2 {
		t.Errorf("regions = %v, want both", top.Regions)
	}
	if top.Role != "Politics" {
		t.Errorf("role = %q, want Politics", top.Role)
	}
	if top.Context != "Annual budget announcement." {
		t.Errorf("context = %q", top.Context)
	}
}

func TestExtractEntitiesDominantSentiment(t *testing.T) {
	batch := []Trend{
		{Platform: PlatformSearch, Region: "USA", Keyword: "split", Category: "News",
			Search: &SearchFields{PublicSentiment: "excited"}},
		{Platform: PlatformSearch, Region: "USA", Keyword: "split", Category: "News",
			Search: &SearchFields{PublicSentiment: "concerned"}},
		{Platform: PlatformSearch, Region: "India", Keyword: "split", Category: "News",
			Search: &SearchFields{PublicSentiment: "concerned"}},
	}

	entities := ExtractEntities(batch)
	if entities[0].Sentiment != "concerned" {
		t.Errorf("dominant sentiment = %q, want concerned", entities[0].Sentiment)
	}

	// A sentiment-free group defaults to curious.
	empty := ExtractEntities([]Trend{{Platform: PlatformSearch, Keyword: "mute", Search: &SearchFields{}}})
	if empty[0].Sentiment != "curious" {
		t.Errorf("empty-group sentiment = %q, want curious", empty[0].Sentiment)
	}
}
