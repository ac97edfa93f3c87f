package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/operator"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/rs/zerolog/log"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/model"
	"edgeinsight-backend/internal/repository"
)

// keywordFields are mapped as text with a .keyword subfield.
var keywordFields = map[string]bool{
	"session_id":   true,
	"message_id":   true,
	"dataset_name": true,
	"source":       true,
}

type elasticsearchHistoryRepository struct {
	esTypedClient *elasticsearch.TypedClient
	indexPrefix   string
}

func NewElasticsearchHistoryRepository(cfg *config.Config) (repository.HistoryRepository, error) {
	if !cfg.Archive.Enabled {
		return disabledHistoryRepository{}, nil
	}
	typedClient, err := elasticsearch.NewTypedClient(clientConfig(cfg))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Typed Elasticsearch Client in Repository")
		return nil, err
	}
	return &elasticsearchHistoryRepository{
		esTypedClient: typedClient,
		indexPrefix:   cfg.Elasticsearch.ArchiveIndex,
	}, nil
}

func termsFilter(field string, values []string) types.Query {
	terms := make([]types.FieldValue, len(values))
	for i, v := range values {
		terms[i] = v
	}
	return types.Query{
		Terms: &types.TermsQuery{
			TermsQuery: map[string]types.TermsQueryField{
				field + ".keyword": terms,
			},
		},
	}
}

// BuildSearchRequest translates a history search into an Elasticsearch
// bool/filter query sorted on the requested field.
func BuildSearchRequest(req dto.HistorySearchRequest) *search.Request {
	startTimeStr := req.StartTime.Format(time.RFC3339)
	endTimeStr := req.EndTime.Format(time.RFC3339)

	queryParts := []types.Query{{
		Range: map[string]types.RangeQuery{
			"@timestamp": types.DateRangeQuery{
				Gte: &startTimeStr,
				Lte: &endTimeStr,
			},
		},
	}}

	if req.Query != "" {
		queryParts = append(queryParts, types.Query{
			QueryString: &types.QueryStringQuery{
				Query:           req.Query,
				Fields:          []string{"question", "answer", "dataset_name", "insights"},
				DefaultOperator: &operator.And,
			},
		})
	}
	if req.SessionID != "" {
		queryParts = append(queryParts, termsFilter("session_id", []string{req.SessionID}))
	}
	if req.DatasetName != "" {
		queryParts = append(queryParts, termsFilter("dataset_name", []string{req.DatasetName}))
	}
	if len(req.Sources) > 0 {
		queryParts = append(queryParts, termsFilter("source", req.Sources))
	}

	from := (req.Page - 1) * req.Size
	size := req.Size
	order := sortorder.Desc
	if req.SortOrder == "asc" {
		order = sortorder.Asc
	}
	sortField := req.SortBy
	if keywordFields[sortField] {
		sortField += ".keyword"
	} else if sortField != "@timestamp" {
		log.Warn().Str("sort_field", req.SortBy).Msg("Attempting to sort on unknown field")
	}

	return &search.Request{
		Query: &types.Query{
			Bool: &types.BoolQuery{
				Filter: queryParts,
			},
		},
		Size: &size,
		From: &from,
		Sort: []types.SortCombinations{
			types.SortOptions{
				SortOptions: map[string]types.FieldSort{
					sortField: {Order: &order},
				},
			},
		},
	}
}

func (r *elasticsearchHistoryRepository) Search(ctx context.Context, req dto.HistorySearchRequest) (*dto.HistorySearchResponse, error) {
	indexPattern := fmt.Sprintf("%s-*", r.indexPrefix)

	res, err := r.esTypedClient.Search().
		Index(indexPattern).
		Request(BuildSearchRequest(req)).
		Do(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error executing Elasticsearch search via TypedClient")
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}

	answers := make([]model.ArchivedAnswer, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var answer model.ArchivedAnswer
		if err := json.Unmarshal(hit.Source_, &answer); err != nil {
			log.Error().Err(err).Msg("Error unmarshalling Elasticsearch hit source")
			continue
		}
		answers = append(answers, answer)
	}

	var total int64
	if res.Hits.Total != nil {
		total = res.Hits.Total.Value
	}
	response := &dto.HistorySearchResponse{
		Answers:    answers,
		TotalCount: total,
		Page:       req.Page,
		Size:       req.Size,
	}
	log.Debug().Int64("total_hits", response.TotalCount).Int("returned_hits", len(response.Answers)).Msg("Elasticsearch search successful")
	return response, nil
}

type disabledHistoryRepository struct{}

func (disabledHistoryRepository) Search(context.Context, dto.HistorySearchRequest) (*dto.HistorySearchResponse, error) {
	return nil, ErrArchiveDisabled
}
