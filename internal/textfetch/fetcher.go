// Package textfetch retrieves the best available plain text for a motion
// through a cascading candidate chain: ranked documents, then ranked
// publications, then extraction. First success wins; every dead end leaves
// an issue tag.
package textfetch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"os"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/cache"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/telemetry"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/tkapi"
)

// caseExpand pulls a Case with its Documents and each document's current
// version publications in one request.
const caseExpand = "Document($expand=HuidigeDocumentVersie($expand=DocumentPublicatie,DocumentPublicatieMetadata))"

// Document ranking weights. XML presence dominates because structured
// publications extract far more reliably than anything else.
const (
	scoreKindMotion  = 100
	scoreNumberMatch = 40
	scoreTitleMatch  = 15
	scoreSubject     = 25
	scoreHasXML      = 120
)

// Publication content-type preference.
const (
	prefXML  = 100
	prefText = 80
	prefHTML = 60
	prefPDF  = 20
)

type contentKind int

const (
	kindUnsupported contentKind = iota
	kindXML
	kindText
	kindHTML
	kindPDF
)

// Fetcher runs the cascading retrieval against the API and cache store.
type Fetcher struct {
	client      *tkapi.Client
	store       *cache.Store
	logger      *slog.Logger
	concurrency int

	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// New returns a Fetcher. concurrency bounds FetchAll's worker pool;
// values below 1 mean sequential.
func New(client *tkapi.Client, store *cache.Store, logger *slog.Logger, concurrency int) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	meter := telemetry.Meter("textfetch")
	hits, _ := meter.Int64Counter("textfetch.cache_hits",
		metric.WithDescription("Cache hits by namespace"))
	misses, _ := meter.Int64Counter("textfetch.cache_misses",
		metric.WithDescription("Cache misses by namespace"))
	return &Fetcher{
		client:      client,
		store:       store,
		logger:      logger,
		concurrency: concurrency,
		cacheHits:   hits,
		cacheMisses: misses,
	}
}

// FetchAll retrieves text for all motions through a bounded worker pool.
// Results are positional: out[i] belongs to motions[i]. Individual failures
// degrade to issue tags; only context cancellation aborts the batch.
func (f *Fetcher) FetchAll(ctx context.Context, motions []model.Motion) ([]model.TextResult, error) {
	out := make([]model.TextResult, len(motions))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, m := range motions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = f.FetchMotionText(ctx, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchMotionText runs the cascade for one motion. It never returns an
// error: every failure mode degrades to a nil-content result with issue
// tags, so one broken motion cannot sink the run.
func (f *Fetcher) FetchMotionText(ctx context.Context, motion model.Motion) model.TextResult {
	var issues []string

	if motion.CaseID == "" {
		return noText(append(issues, model.IssueMissingCaseID))
	}

	c, issues, ok := f.loadCase(ctx, motion.CaseID, issues)
	if !ok {
		return noText(issues)
	}
	if len(c.Documents) == 0 {
		return noText(append(issues, model.IssueCaseNoDocuments))
	}

	docs := rankDocuments(c.Documents, motion)
	for _, doc := range docs {
		result, done := f.tryDocument(ctx, doc, &issues)
		if done {
			return result
		}
		if budgetSpent(issues) {
			break
		}
	}
	return noText(append(issues, model.IssueNoTextRetrieved))
}

// loadCase returns the expanded case payload, cache-first. A corrupt cached
// entry is invalidated and refetched once.
func (f *Fetcher) loadCase(ctx context.Context, caseID string, issues []string) (model.Case, []string, bool) {
	var c model.Case

	payload, hit, err := f.store.CasePayload(caseID)
	if err != nil {
		f.logger.Warn("case cache read failed", "zaak_id", caseID, "error", err)
	}
	if hit {
		if err := json.Unmarshal(payload, &c); err == nil {
			f.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", "zaak_documents")))
			return c, issues, true
		}
		issues = append(issues, model.IssueCachePayloadBroken)
		if err := f.store.InvalidateCasePayload(caseID); err != nil {
			f.logger.Warn("case cache invalidate failed", "zaak_id", caseID, "error", err)
		}
	}
	f.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", "zaak_documents")))

	raw, err := f.client.GetByID(ctx, "Zaak", caseID, caseExpand)
	switch {
	case errors.Is(err, tkapi.ErrBudgetExhausted):
		return c, append(issues, model.IssueBudgetCase), false
	case tkapi.IsNotFound(err):
		return c, append(issues, model.IssueCaseNotFound), false
	case err != nil:
		f.logger.Warn("case fetch failed", "zaak_id", caseID, "error", err)
		return c, append(issues, model.IssueCaseNotFound), false
	}

	if err := json.Unmarshal(raw, &c); err != nil {
		f.logger.Warn("case payload undecodable", "zaak_id", caseID, "error", err)
		return c, append(issues, model.IssueCachePayloadBroken), false
	}
	if err := f.store.PutCasePayload(caseID, raw); err != nil {
		f.logger.Warn("case cache write failed", "zaak_id", caseID, "error", err)
	}
	return c, issues, true
}

// tryDocument walks one document's ranked publications. done is true when a
// text result was produced (and cached).
func (f *Fetcher) tryDocument(ctx context.Context, doc model.Document, issues *[]string) (model.TextResult, bool) {
	if doc.CurrentVersion == nil || len(doc.CurrentVersion.Publications) == 0 {
		*issues = append(*issues, model.IssueNoPublications)
		return model.TextResult{}, false
	}

	pubs := rankPublications(doc.CurrentVersion.Publications, issues)
	if len(pubs) == 0 {
		*issues = append(*issues, model.IssueNoParseablePub)
		return model.TextResult{}, false
	}

	for _, ranked := range pubs {
		pub := ranked.pub
		if pub.ID == "" {
			*issues = append(*issues, model.IssuePubMissingID)
			continue
		}
		if cached, ok := f.cachedText(ctx, pub.ID); ok {
			return cached, true
		}

		data, cachedBinary, ok := f.loadBinary(ctx, pub, issues)
		if !ok {
			if budgetSpent(*issues) {
				return model.TextResult{}, false
			}
			continue
		}

		content, ok := f.extract(ranked.kind, data, pub.ID, issues)
		if !ok {
			continue
		}

		result := model.TextResult{
			Content:   &content,
			CharCount: len([]rune(content)),
			Source: &model.TextSource{
				DocumentID:     doc.ID,
				DocumentNumber: doc.DocumentNumber,
				DocumentKind:   doc.Kind,
				PublicationID:  pub.ID,
				ContentType:    pub.ContentType,
				ContentLength:  pub.ContentLength,
				Cached:         cachedBinary,
			},
			Issues: *issues,
		}
		if encoded, err := json.Marshal(result); err == nil {
			if err := f.store.PutTextResult(pub.ID, encoded); err != nil {
				f.logger.Warn("text cache write failed", "publication_id", pub.ID, "error", err)
			}
		}
		return result, true
	}
	return model.TextResult{}, false
}

func (f *Fetcher) cachedText(ctx context.Context, pubID string) (model.TextResult, bool) {
	data, hit, err := f.store.TextResult(pubID)
	if err != nil || !hit {
		return model.TextResult{}, false
	}
	var result model.TextResult
	if err := json.Unmarshal(data, &result); err != nil || !result.HasText() {
		// Only successful extractions are cached; anything else is stale.
		if err := f.store.InvalidateTextResult(pubID); err != nil {
			f.logger.Warn("text cache invalidate failed", "publication_id", pubID, "error", err)
		}
		return model.TextResult{}, false
	}
	f.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", "document_texts")))
	if result.Source != nil {
		result.Source.Cached = true
	}
	return result, true
}

func (f *Fetcher) loadBinary(ctx context.Context, pub model.Publication, issues *[]string) ([]byte, bool, bool) {
	if path, ok := f.store.PublicationBinary(pub.ID); ok {
		data, err := os.ReadFile(path)
		if err == nil {
			f.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", "document_publications")))
			return data, true, true
		}
		f.logger.Warn("binary cache read failed", "publication_id", pub.ID, "error", err)
	}
	f.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", "document_publications")))

	data, contentType, err := f.client.Resource(ctx, pub.ID)
	switch {
	case errors.Is(err, tkapi.ErrBudgetExhausted):
		*issues = append(*issues, model.IssueBudgetPublication)
		return nil, false, false
	case tkapi.IsNotFound(err):
		*issues = append(*issues, model.IssuePubNotFound)
		return nil, false, false
	case err != nil:
		f.logger.Warn("publication fetch failed", "publication_id", pub.ID, "error", err)
		return nil, false, false
	}

	ext := guessExtension(firstNonEmpty(pub.ContentType, contentType))
	if _, err := f.store.PutPublicationBinary(pub.ID, ext, data); err != nil {
		f.logger.Warn("binary cache write failed", "publication_id", pub.ID, "error", err)
	}
	return data, false, true
}

func (f *Fetcher) extract(kind contentKind, data []byte, pubID string, issues *[]string) (string, bool) {
	var content string
	switch kind {
	case kindXML, kindHTML:
		extracted, err := ExtractPlainText(data)
		if err != nil {
			f.logger.Warn("publication extraction failed", "publication_id", pubID, "error", err)
			*issues = append(*issues, model.IssuePubDecodeError)
			return "", false
		}
		content = extracted
	case kindText:
		content = strings.TrimSpace(string(data))
	default:
		*issues = append(*issues, model.IssuePubUnsupported)
		return "", false
	}
	if content == "" {
		*issues = append(*issues, model.IssuePubTextEmpty)
		return "", false
	}
	return content, true
}

func noText(issues []string) model.TextResult {
	return model.TextResult{Issues: issues}
}

func budgetSpent(issues []string) bool {
	for _, issue := range issues {
		if issue == model.IssueBudgetPublication || issue == model.IssueBudgetCase {
			return true
		}
	}
	return false
}

// rankDocuments orders a case's documents by how likely they are to carry
// the motion's actual text.
func rankDocuments(docs []model.Document, motion model.Motion) []model.Document {
	type scored struct {
		doc   model.Document
		score int
	}
	title := strings.ToLower(motion.DisplayTitle())

	ranked := make([]scored, 0, len(docs))
	for _, doc := range docs {
		s := 0
		if strings.Contains(strings.ToLower(doc.Kind), "motie") {
			s += scoreKindMotion
		}
		if motion.Number != "" && strings.Contains(doc.DocumentNumber, motion.Number) {
			s += scoreNumberMatch
		}
		if title != "" {
			if partialMatch(strings.ToLower(doc.Title), title) {
				s += scoreTitleMatch
			}
			if partialMatch(strings.ToLower(doc.Subject), title) {
				s += scoreSubject
			}
		}
		if hasXMLPublication(doc) {
			s += scoreHasXML
		}
		ranked = append(ranked, scored{doc: doc, score: s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].doc.ContentLength > ranked[j].doc.ContentLength
	})

	out := make([]model.Document, len(ranked))
	for i, r := range ranked {
		out[i] = r.doc
	}
	return out
}

func partialMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func hasXMLPublication(doc model.Document) bool {
	if doc.CurrentVersion == nil {
		return false
	}
	for _, pub := range doc.CurrentVersion.Publications {
		if classify(pub.ContentType) == kindXML {
			return true
		}
	}
	return false
}

type rankedPublication struct {
	pub  model.Publication
	kind contentKind
}

// rankPublications orders publications by content-type preference. Unknown
// content types are skipped with publication_unsupported_type. PDF is ranked
// last; its extraction is out of scope, so it only ever yields the same tag
// at extraction time.
func rankPublications(pubs []model.Publication, issues *[]string) []rankedPublication {
	type scored struct {
		rp    rankedPublication
		score int
	}
	var ranked []scored
	for _, pub := range pubs {
		kind := classify(pub.ContentType)
		var score int
		switch kind {
		case kindXML:
			score = prefXML
		case kindText:
			score = prefText
		case kindHTML:
			score = prefHTML
		case kindPDF:
			score = prefPDF
		default:
			*issues = append(*issues, model.IssuePubUnsupported)
			continue
		}
		ranked = append(ranked, scored{rp: rankedPublication{pub: pub, kind: kind}, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].rp.pub.ContentLength > ranked[j].rp.pub.ContentLength
	})

	out := make([]rankedPublication, len(ranked))
	for i, r := range ranked {
		out[i] = r.rp
	}
	return out
}

func classify(contentType string) contentKind {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	mediaType = strings.ToLower(mediaType)
	switch {
	case strings.Contains(mediaType, "xml"):
		return kindXML
	case strings.Contains(mediaType, "html"):
		return kindHTML
	case strings.HasPrefix(mediaType, "text/"):
		return kindText
	case strings.Contains(mediaType, "pdf"):
		return kindPDF
	default:
		return kindUnsupported
	}
}

func guessExtension(contentType string) string {
	switch classify(contentType) {
	case kindXML:
		return ".xml"
	case kindText:
		return ".txt"
	case kindHTML:
		return ".html"
	case kindPDF:
		return ".pdf"
	default:
		return ".bin"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
