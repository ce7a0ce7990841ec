// Package chat is the conversational assistant shown alongside every page.
// It frames the user's message with what the page is displaying and forwards
// the recent conversation to the completion provider.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/420btc/KinemaTV/internal/openai"
)

const (
	historyWindow = 10

	replyMaxTokens   = 500
	replyTemperature = 0.7

	recommendMaxTokens   = 400
	recommendTemperature = 0.8

	fallbackReply     = "Lo siento, no pude generar una respuesta."
	fallbackRecommend = "No pude generar recomendaciones en este momento."
)

var (
	ErrEmptyMessage  = errors.New("chat: message is required")
	ErrNotConfigured = errors.New("chat: no completion provider configured")
)

// Provider sends a multi-turn completion. *openai.Client satisfies it.
type Provider interface {
	Chat(ctx context.Context, req openai.ChatRequest) (string, error)
}

type Genre struct {
	Name string `json:"name"`
}

// Media is the subset of catalog data the frontend sends for the title on
// screen. Movies use Title and ReleaseDate, series use Name and FirstAirDate.
type Media struct {
	Title            string  `json:"title,omitempty"`
	Name             string  `json:"name,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	FirstAirDate     string  `json:"first_air_date,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	Genres           []Genre `json:"genres,omitempty"`
	VoteAverage      float64 `json:"vote_average,omitempty"`
	NumberOfSeasons  int     `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int     `json:"number_of_episodes,omitempty"`
}

func (m *Media) displayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

func (m *Media) genreList() string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// HistoryEntry is one message from the visible conversation.
type HistoryEntry struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

// Context describes the page the user is on.
type Context struct {
	CurrentPage         string         `json:"currentPage"`
	MovieData           *Media         `json:"movieData,omitempty"`
	SeriesData          *Media         `json:"seriesData,omitempty"`
	ConversationHistory []HistoryEntry `json:"conversationHistory,omitempty"`
	ImageURL            string         `json:"imageUrl,omitempty"`
}

// Config selects the models used for text-only and image-bearing turns.
type Config struct {
	Model       string
	VisionModel string
}

// Service answers chat messages.
type Service struct {
	provider Provider
	cfg      Config
}

// New creates a Service. A nil provider makes every call fail with
// ErrNotConfigured.
func New(provider Provider, cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = openai.DefaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = openai.DefaultVisionModel
	}
	return &Service{provider: provider, cfg: cfg}
}

// Reply answers message in the given page context.
func (s *Service) Reply(ctx context.Context, message string, pc Context) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if s.provider == nil {
		return "", ErrNotConfigured
	}

	msgs := []openai.Message{{Role: "system", Content: systemPrompt(pc)}}
	history := pc.ConversationHistory
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, h := range history {
		role := "assistant"
		if h.IsUser {
			role = "user"
		}
		msgs = append(msgs, openai.Message{Role: role, Content: h.Content})
	}

	model := s.cfg.Model
	if pc.ImageURL != "" {
		model = s.cfg.VisionModel
		msgs = append(msgs, openai.Message{Role: "user", Parts: []openai.ContentPart{
			openai.TextPart(message),
			openai.ImagePart(pc.ImageURL),
		}})
	} else {
		msgs = append(msgs, openai.Message{Role: "user", Content: message})
	}

	out, err := s.provider.Chat(ctx, openai.ChatRequest{
		Messages:    msgs,
		MaxTokens:   replyMaxTokens,
		Temperature: replyTemperature,
		Model:       model,
	})
	if err != nil {
		return "", fmt.Errorf("chat: reply: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return fallbackReply, nil
	}
	return out, nil
}

// Recommend suggests titles similar to m. mediaType is "movie" or "tv".
func (s *Service) Recommend(ctx context.Context, mediaType string, m Media) (string, error) {
	if s.provider == nil {
		return "", ErrNotConfigured
	}
	noun, label := "películas", "Película"
	ask := "Dame recomendaciones similares a esta película"
	if mediaType == "tv" {
		noun, label = "series", "Serie"
		ask = "Dame recomendaciones similares a esta serie"
	}
	system := fmt.Sprintf("Eres un experto en recomendaciones de %s.\n"+
		"Basándote en el siguiente contenido, proporciona 3-5 recomendaciones similares con una breve explicación de por qué son similares.\n\n"+
		"%s actual:\n- Título: %s\n- Géneros: %s\n- Sinopsis: %s\n\nResponde en español de manera conversacional.",
		noun, label, m.displayTitle(), m.genreList(), m.Overview)

	out, err := s.provider.Chat(ctx, openai.ChatRequest{
		Messages: []openai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: ask},
		},
		MaxTokens:   recommendMaxTokens,
		Temperature: recommendTemperature,
		Model:       s.cfg.Model,
	})
	if err != nil {
		return "", fmt.Errorf("chat: recommend: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return fallbackRecommend, nil
	}
	return out, nil
}

var pageHints = map[string]string{
	"/":          "- El usuario está en la página de inicio, donde puede ver películas y series populares",
	"/search":    "- El usuario está en la página de búsqueda",
	"/explore":   "- El usuario está explorando contenido",
	"/favorites": "- El usuario está viendo sus películas y series favoritas",
	"/watchlist": "- El usuario está viendo su lista de contenido para ver más tarde",
}

const instructions = `

Instrucciones:
1. Responde en español de manera conversacional y amigable
2. Si el usuario pregunta sobre la película/serie actual, usa la información del contexto
3. Puedes hacer recomendaciones basadas en lo que está viendo
4. Si no tienes información específica, puedes usar tu conocimiento general sobre cine y TV
5. Mantén las respuestas concisas pero informativas
6. Si el usuario pregunta sobre funcionalidades de la app, explica que puede agregar contenido a favoritos o watchlist
7. Puedes sugerir contenido similar o relacionado
8. Si se proporciona una imagen (portada de película/serie), puedes analizarla y comentar sobre el diseño, colores, elementos visuales, etc.`

func systemPrompt(pc Context) string {
	var b strings.Builder
	b.WriteString("Eres un asistente experto en películas y series de TV. Tienes acceso a información detallada sobre contenido audiovisual y puedes ayudar con recomendaciones, análisis, trivia, y responder preguntas específicas.\n\n")
	b.WriteString("Contexto actual:\n- Página actual: ")
	b.WriteString(pc.CurrentPage)

	if m := pc.MovieData; m != nil && strings.Contains(pc.CurrentPage, "/movie/") {
		fmt.Fprintf(&b, "\n- El usuario está viendo detalles de la película: %q (%s)", m.displayTitle(), yearOf(m.ReleaseDate))
		fmt.Fprintf(&b, "\n- Sinopsis: %s\n- Géneros: %s\n- Calificación: %.1f/10", m.Overview, m.genreList(), m.VoteAverage)
	}
	if m := pc.SeriesData; m != nil && strings.Contains(pc.CurrentPage, "/tv/") {
		fmt.Fprintf(&b, "\n- El usuario está viendo detalles de la serie: %q (%s)", m.displayTitle(), yearOf(m.FirstAirDate))
		fmt.Fprintf(&b, "\n- Sinopsis: %s\n- Géneros: %s\n- Calificación: %.1f/10", m.Overview, m.genreList(), m.VoteAverage)
		fmt.Fprintf(&b, "\n- Temporadas: %d\n- Episodios: %d", m.NumberOfSeasons, m.NumberOfEpisodes)
	}
	if hint, ok := pageHints[pc.CurrentPage]; ok {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	b.WriteString(instructions)
	return b.String()
}

// yearOf returns the year part of a YYYY-MM-DD date.
func yearOf(date string) string {
	year, _, _ := strings.Cut(date, "-")
	return year
}
