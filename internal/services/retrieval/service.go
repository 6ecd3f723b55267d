// Package retrieval provides faceted context retrieval with deduplication
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// Service implements RetrievalService against a vector search client.
type Service struct {
	vector      interfaces.VectorSearchClient
	maxPerFacet int
	logger      *common.Logger
}

// NewService creates a new retrieval service. maxPerFacet bounds the total
// chunks returned per facet after merge and dedup, keeping prompt size in
// check.
func NewService(vector interfaces.VectorSearchClient, maxPerFacet int, logger *common.Logger) *Service {
	if maxPerFacet <= 0 {
		maxPerFacet = 8
	}
	return &Service{
		vector:      vector,
		maxPerFacet: maxPerFacet,
		logger:      logger,
	}
}

// RetrieveFacet issues the facet's queries concurrently, merges the result
// lists, deduplicates by chunk id keeping the highest-scoring occurrence,
// and returns the chunks sorted by descending score, truncated to the
// facet cap. A failing query contributes zero chunks.
func (s *Service) RetrieveFacet(ctx context.Context, facet string, queries []string, topK int) interfaces.FacetResult {
	result := interfaces.FacetResult{Facet: facet}
	if len(queries) == 0 {
		return result
	}

	type queryOutcome struct {
		query  string
		chunks []models.Chunk
		err    error
	}

	outcomes := make([]queryOutcome, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			chunks, err := s.vector.Search(ctx, q, topK)
			outcomes[i] = queryOutcome{query: q, chunks: chunks, err: err}
		}(i, q)
	}
	wg.Wait()

	best := make(map[string]models.Chunk)
	for _, out := range outcomes {
		result.Calls++
		if out.err != nil {
			s.logger.Warn().
				Str("facet", facet).
				Str("query", out.query).
				Err(out.err).
				Msg("Facet query failed (continuing)")
			result.QueryErrors = append(result.QueryErrors,
				fmt.Sprintf("query '%s': %v", out.query, out.err))
			continue
		}
		for _, chunk := range out.chunks {
			if chunk.SourceQuery == "" {
				chunk.SourceQuery = out.query
			}
			if existing, ok := best[chunk.ID]; !ok || chunk.Score > existing.Score {
				best[chunk.ID] = chunk
			}
		}
	}

	merged := make([]models.Chunk, 0, len(best))
	for _, chunk := range best {
		merged = append(merged, chunk)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID // stable order for equal scores
	})

	if len(merged) > s.maxPerFacet {
		merged = merged[:s.maxPerFacet]
	}
	result.Chunks = merged

	s.logger.Debug().
		Str("facet", facet).
		Int("queries", len(queries)).
		Int("chunks", len(merged)).
		Int("failed", len(result.QueryErrors)).
		Msg("Facet context retrieved")

	return result
}

var _ interfaces.RetrievalService = (*Service)(nil)
