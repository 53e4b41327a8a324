package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash-lite"

	SourceGemini   = "gemini"
	SourceFallback = "fallback"

	geminiMessage   = "Recomendações personalizadas baseadas nas suas reviews"
	fallbackMessage = "Descubra novas músicas (faça reviews para ter sugestões personalizadas)"

	maxSummaryReviews  = 10
	recommendationSize = 5
	minRecommendations = 3
	defaultRating      = 3
	unknownArtist      = "Desconhecido"
)

const recommendPrompt = `Você é um especialista em música. Baseado nas avaliações do usuário, sugira 5 músicas.

Avaliações:
%s

Responda APENAS JSON válido (sem markdown):
{"suggestions":[{"name":"Nome","artist":"Artista","reason":"Motivo curto"}]}

Regras:
- Músicas DIFERENTES das avaliadas
- Considere gênero e notas
- Motivos em português, máximo 25 caracteres
- Músicas reais e populares`

var codeFence = regexp.MustCompile("```(?:json)?\n?")

// Suggestion is a track proposed by the model or the fallback list.
type Suggestion struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

// FallbackSuggestions are recommended when the model is unavailable or has nothing to suggest.
var FallbackSuggestions = []Suggestion{
	{"Evidências", "Chitãozinho e Xororó", "Clássico sertanejo"},
	{"Tempo Perdido", "Legião Urbana", "Rock BR essencial"},
	{"Eduardo e Mônica", "Legião Urbana", "História musical"},
	{"Velha Infância", "Tribalistas", "MPB moderna"},
	{"Amor I Love You", "Marisa Monte", "MPB sofisticada"},
	{"Anna Júlia", "Los Hermanos", "Indie brasileiro"},
	{"Pais e Filhos", "Legião Urbana", "Reflexão atemporal"},
	{"Primeiros Erros", "Capital Inicial", "Rock 80s brasileiro"},
	{"Encontros e Despedidas", "Maria Rita", "Voz marcante"},
	{"Lanterna dos Afogados", "Os Paralamas do Sucesso", "Rock BR clássico"},
	{"Aquarela", "Toquinho", "Para todas idades"},
	{"Construção", "Chico Buarque", "Obra-prima MPB"},
	{"Águas de Março", "Elis Regina", "Bossa Nova"},
	{"Oceano", "Djavan", "Sofisticação BR"},
	{"Sozinho", "Caetano Veloso", "Tropicália"},
	{"Malandragem", "Cássia Eller", "Interpretação única"},
	{"Ainda Lembro", "Marisa Monte", "Emoção pura"},
	{"Meu Erro", "Os Paralamas do Sucesso", "Pop rock BR"},
	{"Garota Nacional", "Skank", "Hit anos 90"},
	{"É Preciso Saber Viver", "Titãs", "Rock reflexivo"},
	{"Exagerado", "Cazuza", "Rock poético"},
	{"Como Nossos Pais", "Elis Regina", "MPB atemporal"},
	{"Menina Veneno", "Ritchie", "Pop 80s"},
	{"Mulher de Fases", "Raimundos", "Rock pesado BR"},
}

func isFallback(name string) bool {
	return slices.ContainsFunc(FallbackSuggestions, func(s Suggestion) bool { return s.Name == name })
}

// ReviewItem is the reviewed track or album as sent by the client.
type ReviewItem struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// ReviewInput is one of the user's reviews sent to the recommender.
type ReviewInput struct {
	Track      *ReviewItem `json:"track,omitempty"`
	Album      *ReviewItem `json:"album,omitempty"`
	TrackName  string      `json:"trackName,omitempty"`
	AlbumName  string      `json:"albumName,omitempty"`
	ArtistName string      `json:"artistName,omitempty"`
	Rating     int         `json:"rating,omitempty"`
}

// ReviewInputFromPost converts a stored review.
func ReviewInputFromPost(p *models.Post) ReviewInput {
	in := ReviewInput{Rating: p.Rating}
	switch {
	case p.Track != nil:
		in.Track = &ReviewItem{Name: p.Track.Name, Artist: p.Track.Artist}
	case p.Album != nil:
		in.Album = &ReviewItem{Name: p.Album.Name, Artist: p.Album.Artist}
	}
	return in
}

// ReviewSummary renders up to ten reviews as the prompt's bullet list. Reviews without a name are skipped.
func ReviewSummary(reviews []ReviewInput) string {
	var lines []string
	for _, r := range reviews[:min(len(reviews), maxSummaryReviews)] {
		item := r.Track
		if item == nil {
			item = r.Album
		}

		var name, artist string
		if item != nil {
			name, artist = item.Name, item.Artist
		}
		if name == "" {
			name = r.TrackName
		}
		if name == "" {
			name = r.AlbumName
		}
		if name == "" {
			continue
		}
		if artist == "" {
			artist = r.ArtistName
		}
		if artist == "" {
			artist = unknownArtist
		}

		rating := r.Rating
		if rating == 0 {
			rating = defaultRating
		}
		lines = append(lines, fmt.Sprintf("- \"%s\" por %s - Nota: %d/5", name, artist, rating))
	}
	return strings.Join(lines, "\n")
}

// ParseSuggestions decodes the model's answer, tolerating markdown code fences around the JSON.
func ParseSuggestions(text string) ([]Suggestion, error) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))

	var parsed struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions: %w", err)
	}
	return parsed.Suggestions, nil
}

// Recommendations is the answer of [Recommender.Recommend].
type Recommendations struct {
	Recommendations []models.Recommendation `json:"recommendations"`
	Source          string                  `json:"source"`
	Message         string                  `json:"message"`
}

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator is a [TextGenerator] backed by the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// GeminiOption configures a [GeminiGenerator].
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at another API host.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(c *genai.ClientConfig) { c.HTTPOptions.BaseURL = baseURL }
}

// WithGeminiHTTPClient sets the HTTP client used for API calls.
func WithGeminiHTTPClient(hc *http.Client) GeminiOption {
	return func(c *genai.ClientConfig) { c.HTTPClient = hc }
}

// NewGeminiGenerator creates a [GeminiGenerator]. creds.APIKey is required.
func NewGeminiGenerator(ctx context.Context, creds shared.GeminiConfig, opts ...GeminiOption) (*GeminiGenerator, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", shared.ErrMissingCredentials)
	}

	model := creds.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{APIKey: creds.APIKey, Backend: genai.BackendGeminiAPI}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements [TextGenerator].
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.9),
		MaxOutputTokens: 500,
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", shared.ErrAPIRequest, err)
	}
	return resp.Text(), nil
}

type cachedRecommendations struct {
	value     *Recommendations
	expiresAt time.Time
}

// GeminiRecommender implements [Recommender] with a [TextGenerator] and a [Catalog] to resolve suggestions.
//
// Personalized answers are cached per review summary.
type GeminiRecommender struct {
	catalog   Catalog
	generator TextGenerator
	ttl       time.Duration
	logger    *log.Logger

	mu    sync.Mutex
	cache map[string]cachedRecommendations
	group singleflight.Group
	now   func() time.Time
}

// NewGeminiRecommender creates a [GeminiRecommender]. A nil generator always recommends from the fallback list.
func NewGeminiRecommender(catalog Catalog, generator TextGenerator, ttl time.Duration, logger *log.Logger) *GeminiRecommender {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &GeminiRecommender{
		catalog:   catalog,
		generator: generator,
		ttl:       ttl,
		logger:    logger,
		cache:     map[string]cachedRecommendations{},
		now:       time.Now,
	}
}

// Recommend suggests five tracks from the user's reviews.
func (r *GeminiRecommender) Recommend(ctx context.Context, reviews []ReviewInput) (*Recommendations, error) {
	summary := ReviewSummary(reviews)
	if summary == "" || r.generator == nil {
		return r.recommend(ctx, nil)
	}

	if cached, ok := r.cached(summary); ok {
		return cached, nil
	}

	v, err, _ := r.group.Do(summary, func() (any, error) {
		suggestions, err := r.suggest(ctx, summary)
		if err != nil {
			r.logger.Warn("gemini suggestions failed, using fallback", "error", err)
		}

		recs, err := r.recommend(ctx, suggestions)
		if err != nil {
			return nil, err
		}
		if recs.Source == SourceGemini {
			r.store(summary, recs)
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Recommendations), nil
}

func (r *GeminiRecommender) suggest(ctx context.Context, summary string) ([]Suggestion, error) {
	text, err := r.generator.Generate(ctx, fmt.Sprintf(recommendPrompt, summary))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty completion")
	}
	return ParseSuggestions(text)
}

// recommend resolves suggestions in the catalog, topping up from the fallback list when too few resolve.
func (r *GeminiRecommender) recommend(ctx context.Context, suggestions []Suggestion) (*Recommendations, error) {
	aiPowered := len(suggestions) > 0 && !isFallback(suggestions[0].Name)
	if len(suggestions) == 0 {
		suggestions = shuffledFallbacks()
	}
	suggestions = suggestions[:min(len(suggestions), recommendationSize)]

	resolved := make([]*models.Recommendation, len(suggestions))
	errs := make([]error, len(suggestions))
	var g errgroup.Group
	for i, s := range suggestions {
		g.Go(func() error {
			resolved[i], errs[i] = r.resolve(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	var results []models.Recommendation
	for _, rec := range resolved {
		if rec != nil {
			results = append(results, *rec)
		}
	}

	if len(results) < minRecommendations {
		for _, s := range shuffledFallbacks() {
			if len(results) >= recommendationSize {
				break
			}
			if slices.ContainsFunc(results, func(rec models.Recommendation) bool { return rec.Name == s.Name }) {
				continue
			}

			rec, err := r.resolve(ctx, s)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			results = append(results, *rec)
		}
	}

	if len(results) == 0 {
		for _, err := range errs {
			if err != nil && !errors.Is(err, shared.ErrTrackNotFound) {
				return nil, err
			}
		}
	}
	if results == nil {
		results = []models.Recommendation{}
	}

	recs := &Recommendations{Recommendations: results, Source: SourceFallback, Message: fallbackMessage}
	if aiPowered {
		recs.Source, recs.Message = SourceGemini, geminiMessage
	}
	return recs, nil
}

func (r *GeminiRecommender) resolve(ctx context.Context, s Suggestion) (*models.Recommendation, error) {
	t, err := r.catalog.SearchTrack(ctx, s.Name, s.Artist)
	if err != nil {
		r.logger.Debug("suggestion not resolved", "name", s.Name, "artist", s.Artist, "error", err)
		return nil, err
	}
	return &models.Recommendation{
		ID:         t.ID,
		Name:       t.Name,
		Artist:     t.Artist,
		ArtistID:   t.ArtistID,
		Image:      t.Image,
		Album:      t.Album,
		Duration:   t.Duration,
		PreviewURL: t.PreviewURL,
		URL:        t.URL,
		Reason:     s.Reason,
	}, nil
}

func (r *GeminiRecommender) cached(summary string) (*Recommendations, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[summary]
	if !ok {
		return nil, false
	}
	if r.now().After(entry.expiresAt) {
		delete(r.cache, summary)
		return nil, false
	}
	return entry.value, true
}

func (r *GeminiRecommender) store(summary string, recs *Recommendations) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[summary] = cachedRecommendations{value: recs, expiresAt: r.now().Add(r.ttl)}
}

func shuffledFallbacks() []Suggestion {
	s := slices.Clone(FallbackSuggestions)
	rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
	return s
}
