package analysis

import "fmt"

const (
	defaultTemperature = 0.3

	documentMaxTokens = 4000
	actorMaxTokens    = 2000

	jsonOnly = "Responde ÚNICAMENTE con el JSON válido, sin texto adicional."
)

// prompt is one fully built provider request, minus the model name.
type prompt struct {
	system      string
	user        string
	maxTokens   int
	temperature float64
}

const movieSchema = `{
  "cast": [
    {
      "name": "Nombre del actor",
      "character": "Personaje que interpreta",
      "biography": "Biografía breve del actor",
      "filmography": ["Película 1", "Película 2", "Película 3"]
    }
  ],
  "boxOffice": {
    "budget": "Presupuesto de producción",
    "worldwide": "Recaudación mundial total",
    "domestic": "Recaudación doméstica (EE.UU.)",
    "international": "Recaudación internacional",
    "profitability": "Análisis de rentabilidad"
  },
  "production": {
    "studio": "Estudio de producción",
    "producers": ["Productor 1", "Productor 2"],
    "director": "Director",
    "writers": ["Guionista 1", "Guionista 2"],
    "cinematographer": "Director de fotografía",
    "composer": "Compositor de la banda sonora"
  },
  "awards": {
    "oscars": ["Premio Oscar 1", "Premio Oscar 2"],
    "goldenGlobes": ["Globo de Oro 1", "Globo de Oro 2"],
    "otherAwards": ["Otro premio 1", "Otro premio 2"]
  },
  "criticalReception": {
    "rottenTomatoes": "Puntuación en Rotten Tomatoes",
    "imdb": "Puntuación en IMDb",
    "metacritic": "Puntuación en Metacritic",
    "criticsConsensus": "Consenso de la crítica"
  },
  "culturalImpact": {
    "legacy": "Legado cultural de la película",
    "influence": "Influencia en el cine posterior",
    "trivia": ["Dato curioso 1", "Dato curioso 2", "Dato curioso 3"]
  },
  "technicalAspects": {
    "cinematography": "Análisis de la cinematografía",
    "soundtrack": "Análisis de la banda sonora",
    "visualEffects": "Análisis de efectos visuales",
    "editing": "Análisis del montaje"
  }
}`

const seriesSchema = `{
  "cast": [
    {
      "name": "Nombre del actor",
      "character": "Personaje que interpreta",
      "biography": "Biografía breve del actor",
      "filmography": ["Serie/Película 1", "Serie/Película 2", "Serie/Película 3"]
    }
  ],
  "production": {
    "network": "Cadena o plataforma de transmisión",
    "creators": ["Creador 1", "Creador 2"],
    "producers": ["Productor 1", "Productor 2"],
    "showrunners": ["Showrunner 1", "Showrunner 2"],
    "writers": ["Guionista 1", "Guionista 2"],
    "cinematographer": "Director de fotografía",
    "composer": "Compositor de la banda sonora"
  },
  "seriesInfo": {
    "seasons": 0,
    "episodes": 0,
    "runtime": "Duración promedio por episodio",
    "status": "Estado actual (En emisión/Finalizada/Cancelada)",
    "originalRun": "Período de emisión original"
  },
  "awards": {
    "emmys": ["Premio Emmy 1", "Premio Emmy 2"],
    "goldenGlobes": ["Globo de Oro 1", "Globo de Oro 2"],
    "otherAwards": ["Otro premio 1", "Otro premio 2"]
  },
  "criticalReception": {
    "rottenTomatoes": "Puntuación en Rotten Tomatoes",
    "imdb": "Puntuación en IMDb",
    "metacritic": "Puntuación en Metacritic",
    "criticsConsensus": "Consenso de la crítica"
  },
  "culturalImpact": {
    "legacy": "Legado e impacto cultural",
    "influence": "Influencia en otras series y medios",
    "trivia": ["Dato curioso 1", "Dato curioso 2", "Dato curioso 3"]
  },
  "technicalAspects": {
    "cinematography": "Análisis de la cinematografía",
    "soundtrack": "Análisis de la banda sonora",
    "visualEffects": "Análisis de efectos visuales",
    "editing": "Análisis de la edición"
  }
}`

const actorSchema = `{
  "biography": "Biografía completa del actor",
  "filmography": ["Película destacada 1", "Película destacada 2", "Película destacada 3", "Película destacada 4", "Película destacada 5"],
  "awards": ["Premio 1", "Premio 2", "Premio 3"],
  "personalLife": "Información sobre su vida personal y carrera"
}`

// Top-level keys of each schema. A reply carrying none of them is not a
// document of the requested kind.
var expectedKeys = map[Kind][]string{
	KindMovie:  {"cast", "boxOffice", "production", "awards", "criticalReception", "culturalImpact", "technicalAspects"},
	KindSeries: {"cast", "production", "seriesInfo", "awards", "criticalReception", "culturalImpact", "technicalAspects"},
	KindActor:  {"biography", "filmography", "awards", "personalLife"},
}

// buildPrompt renders the request for the provider. Subjects are quoted with
// %q so embedded quotes and newlines cannot break out of the instruction.
func buildPrompt(req Request, limits Limits) prompt {
	switch q := req.(type) {
	case MovieQuery:
		return prompt{
			system: "Eres un experto analista de cine que proporciona información detallada y precisa sobre películas. Responde siempre en formato JSON válido.",
			user: fmt.Sprintf("Analiza en detalle la película %q (%d) y proporciona información completa en formato JSON con la siguiente estructura:\n\n%s\n\n"+
				"Incluye los %d actores principales del reparto, con un máximo de %d títulos en cada filmografía, información precisa de taquilla y datos técnicos detallados. %s",
				q.Title, q.Year, movieSchema, limits.Cast, limits.Filmography, jsonOnly),
			maxTokens:   documentMaxTokens,
			temperature: defaultTemperature,
		}
	case SeriesQuery:
		return prompt{
			system: "Eres un experto en análisis de series de televisión. Proporciona información precisa y detallada en formato JSON.",
			user: fmt.Sprintf("Analiza en detalle la serie de televisión %q (%d) y proporciona información completa en formato JSON con la siguiente estructura:\n\n%s\n\n"+
				"Incluye solo los %d actores principales del reparto, con un máximo de %d títulos en cada filmografía. Proporciona información precisa y detallada. %s",
				q.Title, q.Year, seriesSchema, limits.Cast, limits.Filmography, jsonOnly),
			maxTokens:   documentMaxTokens,
			temperature: defaultTemperature,
		}
	case ActorQuery:
		return prompt{
			system: "Eres un experto en biografías de actores de cine. Proporciona información precisa y detallada en formato JSON.",
			user: fmt.Sprintf("Proporciona información detallada sobre el actor/actriz %q en formato JSON:\n\n%s\n\nIncluye como máximo %d títulos en la filmografía. %s",
				q.Name, actorSchema, limits.Filmography, jsonOnly),
			maxTokens:   actorMaxTokens,
			temperature: defaultTemperature,
		}
	}
	panic(fmt.Sprintf("analysis: unsupported request type %T", req))
}
