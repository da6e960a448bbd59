package elastic

import "sort"

// Query is a piece of the Elasticsearch query DSL.
type Query interface {
	Build() map[string]interface{}
}

type QueryBuilder struct {
	query map[string]interface{}
}

func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{
		query: make(map[string]interface{}),
	}
}

func (q *QueryBuilder) Build() map[string]interface{} {
	return q.query
}

type BoolQuery struct {
	builder *QueryBuilder
}

func NewBoolQuery() *BoolQuery {
	return &BoolQuery{
		builder: NewQueryBuilder(),
	}
}

func (q *BoolQuery) Must(query Query) *BoolQuery {
	q.add("must", query)
	return q
}

func (q *BoolQuery) Filter(query Query) *BoolQuery {
	q.add("filter", query)
	return q
}

func (q *BoolQuery) add(clause string, query Query) {
	if q.builder.query["bool"] == nil {
		q.builder.query["bool"] = make(map[string]interface{})
	}
	boolQuery := q.builder.query["bool"].(map[string]interface{})
	if boolQuery[clause] == nil {
		boolQuery[clause] = []interface{}{}
	}
	boolQuery[clause] = append(boolQuery[clause].([]interface{}), query.Build())
}

func (q *BoolQuery) Build() map[string]interface{} {
	return q.builder.Build()
}

type TermQuery struct {
	field string
	value string
}

func NewTermQuery(field, value string) *TermQuery {
	return &TermQuery{field: field, value: value}
}

func (q *TermQuery) Build() map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			q.field: map[string]interface{}{"value": q.value},
		},
	}
}

type RangeQuery struct {
	builder *QueryBuilder
	field   string
}

func NewRangeQuery(field string) *RangeQuery {
	return &RangeQuery{
		builder: NewQueryBuilder(),
		field:   field,
	}
}

func (q *RangeQuery) Gte(value string) *RangeQuery {
	q.bound("gte", value)
	return q
}

func (q *RangeQuery) Lte(value string) *RangeQuery {
	q.bound("lte", value)
	return q
}

func (q *RangeQuery) bound(op, value string) {
	if q.builder.query["range"] == nil {
		q.builder.query["range"] = make(map[string]interface{})
	}
	rangeQuery := q.builder.query["range"].(map[string]interface{})
	if rangeQuery[q.field] == nil {
		rangeQuery[q.field] = make(map[string]interface{})
	}
	fieldQuery := rangeQuery[q.field].(map[string]interface{})
	fieldQuery[op] = value
}

func (q *RangeQuery) Build() map[string]interface{} {
	return q.builder.Build()
}

type QueryStringQuery struct {
	query  string
	fields []string
}

func NewQueryStringQuery(query string, fields ...string) *QueryStringQuery {
	return &QueryStringQuery{
		query:  query,
		fields: fields,
	}
}

func (q *QueryStringQuery) Build() map[string]interface{} {
	qs := map[string]interface{}{
		"query": q.query,
	}
	if len(q.fields) > 0 {
		qs["fields"] = q.fields
	}
	return map[string]interface{}{"query_string": qs}
}

type MatchAllQuery struct{}

func NewMatchAllQuery() *MatchAllQuery {
	return &MatchAllQuery{}
}

func (q *MatchAllQuery) Build() map[string]interface{} {
	return map[string]interface{}{"match_all": map[string]interface{}{}}
}

// BuildQuery translates a SearchRequest into the query DSL.
// Terms and ranges go into filter context since they do not need scoring.
func BuildQuery(req SearchRequest) Query {
	if len(req.Terms) == 0 && len(req.Ranges) == 0 && req.Text == nil {
		return NewMatchAllQuery()
	}

	q := NewBoolQuery()

	fields := make([]string, 0, len(req.Terms))
	for field := range req.Terms {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		q = q.Filter(NewTermQuery(field, req.Terms[field]))
	}

	for _, r := range req.Ranges {
		rq := NewRangeQuery(r.Field)
		if r.Gte != "" {
			rq = rq.Gte(r.Gte)
		}
		if r.Lte != "" {
			rq = rq.Lte(r.Lte)
		}
		q = q.Filter(rq)
	}

	if req.Text != nil {
		q = q.Must(NewQueryStringQuery(req.Text.Query, req.Text.Fields...))
	}

	return q
}

// BuildSort renders the sort clause, nil when the request has none.
func BuildSort(req SearchRequest) []interface{} {
	if len(req.Sort) == 0 {
		return nil
	}
	clauses := make([]interface{}, 0, len(req.Sort))
	for _, s := range req.Sort {
		order := "asc"
		if s.Desc {
			order = "desc"
		}
		clauses = append(clauses, map[string]interface{}{
			s.Field: map[string]interface{}{"order": order},
		})
	}
	return clauses
}

// BuildSearchBody renders the full JSON body of a search request.
// The size is passed separately as a URL parameter by the esapi clients.
func BuildSearchBody(req SearchRequest) map[string]interface{} {
	body := map[string]interface{}{
		"query": BuildQuery(req).Build(),
	}
	if sortClause := BuildSort(req); sortClause != nil {
		body["sort"] = sortClause
	}
	return body
}

// BuildCountBody renders the body of a count request which accepts no sort.
func BuildCountBody(req SearchRequest) map[string]interface{} {
	return map[string]interface{}{
		"query": BuildQuery(req).Build(),
	}
}
