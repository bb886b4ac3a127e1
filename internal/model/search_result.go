package model

import (
	"math"
	"sort"
)

// DefaultScore 在后端给出 NaN 分数时替代使用。
const DefaultScore = 1.0

// ResultKey 是搜索结果的身份键。两个结果当且仅当 (类型, ID) 相同时视为同一实体，
// 与分数、高亮以及对象实例无关。
type ResultKey struct {
	Type EntityType
	ID   int64
}

// SearchResult 是一个带分数和来源信息的实体句柄。
type SearchResult[T Entity] struct {
	ResultType   EntityType        `json:"resultType"`
	ResultID     int64             `json:"resultId"`
	ResultObject T                 `json:"resultObject,omitempty"`
	Score        float64           `json:"score"`
	Highlights   map[string]string `json:"highlights,omitempty"`
	Source       string            `json:"source"`

	filled bool
}

func sanitizeScore(score float64) float64 {
	if math.IsNaN(score) {
		return DefaultScore
	}
	return score
}

// NewSearchResult 由已加载的实体创建搜索结果。obj 不能为 nil。
func NewSearchResult[T Entity](obj T, score float64, source string) *SearchResult[T] {
	return &SearchResult[T]{
		ResultType:   obj.EntityType(),
		ResultID:     obj.EntityID(),
		ResultObject: obj,
		Score:        sanitizeScore(score),
		Source:       source,
		filled:       true,
	}
}

// NewSearchResultFromID 由实体类型和 ID 创建未加载对象的搜索结果。
func NewSearchResultFromID[T Entity](entityType EntityType, id int64, score float64, source string) *SearchResult[T] {
	return &SearchResult[T]{
		ResultType: entityType,
		ResultID:   id,
		Score:      sanitizeScore(score),
		Source:     source,
	}
}

// Key 返回结果的身份键。
func (r *SearchResult[T]) Key() ResultKey {
	return ResultKey{Type: r.ResultType, ID: r.ResultID}
}

// HasObject 判断实体是否已加载。
func (r *SearchResult[T]) HasObject() bool {
	return r.filled
}

// SetObject 附加已加载的实体，实体此后归调用方所有。
func (r *SearchResult[T]) SetObject(obj T) {
	r.ResultObject = obj
	r.filled = true
}

// SetScore 更新分数，NaN 会被替换为 DefaultScore。
func (r *SearchResult[T]) SetScore(score float64) {
	r.Score = sanitizeScore(score)
}

// SetHighlights 替换高亮片段。
func (r *SearchResult[T]) SetHighlights(highlights map[string]string) {
	r.Highlights = highlights
}

// SameEntity 判断两个结果是否指向同一实体。
func (r *SearchResult[T]) SameEntity(other *SearchResult[T]) bool {
	return other != nil && r.Key() == other.Key()
}

type resultEntry[T Entity] struct {
	result *SearchResult[T]
	seen   int
}

// SearchResultSet 是按身份键去重的搜索结果集合，可选地限制大小。
//
// 同一身份重复加入时保留分数更高的结果；分数相同时保留先到的结果。
// 集合已满时，新结果只有在分数严格高于当前最低分时才会替换最低分结果，
// 最低分并列时淘汰最后加入的那个。因此最终内容与插入顺序无关（并列除外）。
type SearchResultSet[T Entity] struct {
	maxResults int
	entries    map[ResultKey]*resultEntry[T]
	seq        int
}

// NewSearchResultSet 创建结果集。maxResults 为 0 表示不限制。
func NewSearchResultSet[T Entity](maxResults int) *SearchResultSet[T] {
	if maxResults < 0 {
		maxResults = 0
	}
	return &SearchResultSet[T]{
		maxResults: maxResults,
		entries:    make(map[ResultKey]*resultEntry[T]),
	}
}

// NewSearchResultSetFor 按设置中的 MaxResults 创建结果集。
func NewSearchResultSetFor[T Entity](settings SearchSettings) *SearchResultSet[T] {
	return NewSearchResultSet[T](settings.MaxResults)
}

// MaxResults 返回集合的容量上限，0 表示不限制。
func (s *SearchResultSet[T]) MaxResults() int {
	return s.maxResults
}

// Len 返回集合中的结果数量。
func (s *SearchResultSet[T]) Len() int {
	return len(s.entries)
}

// IsEmpty 判断集合是否为空。
func (s *SearchResultSet[T]) IsEmpty() bool {
	return len(s.entries) == 0
}

// IsFilled 判断集合是否已达到容量上限。
func (s *SearchResultSet[T]) IsFilled() bool {
	return s.maxResults > 0 && len(s.entries) >= s.maxResults
}

// Contains 判断集合是否包含指定身份。
func (s *SearchResultSet[T]) Contains(key ResultKey) bool {
	_, ok := s.entries[key]
	return ok
}

// Get 返回指定身份的结果。
func (s *SearchResultSet[T]) Get(key ResultKey) (*SearchResult[T], bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.result, true
}

// Add 加入一个结果，集合发生变化时返回 true。
func (s *SearchResultSet[T]) Add(r *SearchResult[T]) bool {
	if r == nil {
		return false
	}
	key := r.Key()
	if existing, ok := s.entries[key]; ok {
		if r.Score <= existing.result.Score {
			return false
		}
		mergeInto(r, existing.result)
		existing.result = r
		return true
	}

	if s.IsFilled() {
		victim := s.lowest()
		if victim == nil || r.Score <= victim.result.Score {
			return false
		}
		delete(s.entries, victim.result.Key())
	}

	s.seq++
	s.entries[key] = &resultEntry[T]{result: r, seen: s.seq}
	return true
}

// mergeInto 让胜出的结果继承落败结果中已加载的对象和高亮。
func mergeInto[T Entity](winner, loser *SearchResult[T]) {
	if !winner.filled && loser.filled {
		winner.ResultObject = loser.ResultObject
		winner.filled = true
	}
	if len(winner.Highlights) == 0 && len(loser.Highlights) > 0 {
		winner.Highlights = loser.Highlights
	}
}

// lowest 返回分数最低的条目，并列时返回最后加入的。
func (s *SearchResultSet[T]) lowest() *resultEntry[T] {
	var low *resultEntry[T]
	for _, e := range s.entries {
		if low == nil ||
			e.result.Score < low.result.Score ||
			(e.result.Score == low.result.Score && e.seen > low.seen) {
			low = e
		}
	}
	return low
}

// AddAll 加入另一个集合的全部结果，返回发生变化的条目数。
func (s *SearchResultSet[T]) AddAll(other *SearchResultSet[T]) int {
	if other == nil {
		return 0
	}
	changed := 0
	for _, r := range other.Results() {
		if s.Add(r) {
			changed++
		}
	}
	return changed
}

// RetainAll 只保留在 other 中也存在的身份，比较只依据身份键。
func (s *SearchResultSet[T]) RetainAll(other *SearchResultSet[T]) {
	for key := range s.entries {
		if other == nil || !other.Contains(key) {
			delete(s.entries, key)
		}
	}
}

// Remove 删除指定身份的结果。
func (s *SearchResultSet[T]) Remove(key ResultKey) {
	delete(s.entries, key)
}

// Results 按分数降序返回结果，分数相同时先加入的在前。
func (s *SearchResultSet[T]) Results() []*SearchResult[T] {
	entries := make([]*resultEntry[T], 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].result.Score != entries[j].result.Score {
			return entries[i].result.Score > entries[j].result.Score
		}
		return entries[i].seen < entries[j].seen
	})
	out := make([]*SearchResult[T], len(entries))
	for i, e := range entries {
		out[i] = e.result
	}
	return out
}

// IDs 返回结果的实体 ID，顺序同 Results。
func (s *SearchResultSet[T]) IDs() []int64 {
	results := s.Results()
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ResultID
	}
	return ids
}

// SearchResultDTO 是与实体类型无关的结果视图，用于对外返回。
type SearchResultDTO struct {
	ResultType   EntityType        `json:"resultType"`
	ResultID     int64             `json:"resultId"`
	ResultObject any               `json:"resultObject,omitempty"`
	Score        float64           `json:"score"`
	Highlights   map[string]string `json:"highlights,omitempty"`
	Source       string            `json:"source"`
}

// ToDTO 将结果转换为与类型无关的视图。
func (r *SearchResult[T]) ToDTO() SearchResultDTO {
	dto := SearchResultDTO{
		ResultType: r.ResultType,
		ResultID:   r.ResultID,
		Score:      r.Score,
		Highlights: r.Highlights,
		Source:     r.Source,
	}
	if r.filled {
		dto.ResultObject = r.ResultObject
	}
	return dto
}

// DTOs 返回集合中全部结果的视图，顺序同 Results。
func (s *SearchResultSet[T]) DTOs() []SearchResultDTO {
	results := s.Results()
	out := make([]SearchResultDTO, len(results))
	for i, r := range results {
		out[i] = r.ToDTO()
	}
	return out
}
