package analysis

// Kind discriminates the subject of an analysis request.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
	KindActor  Kind = "actor"
)

// Request is the input union accepted by Service.Analyze: one of MovieQuery,
// SeriesQuery or ActorQuery.
type Request interface {
	Kind() Kind
	// Subject is the title or name the prompt is built around.
	Subject() string
}

// MovieQuery asks for a MovieAnalysis.
type MovieQuery struct {
	Title string
	Year  int
}

func (MovieQuery) Kind() Kind        { return KindMovie }
func (q MovieQuery) Subject() string { return q.Title }

// SeriesQuery asks for a SeriesAnalysis.
type SeriesQuery struct {
	Title string
	Year  int
}

func (SeriesQuery) Kind() Kind        { return KindSeries }
func (q SeriesQuery) Subject() string { return q.Title }

// ActorQuery asks for ActorDetails.
type ActorQuery struct {
	Name string
}

func (ActorQuery) Kind() Kind        { return KindActor }
func (q ActorQuery) Subject() string { return q.Name }

// Output is one of *MovieAnalysis, *SeriesAnalysis or *ActorDetails.
// Every sequence field of an Output is non-nil.
type Output interface {
	Kind() Kind
}

// CastMember is one entry of the cast list.
type CastMember struct {
	Name        string   `json:"name"`
	Character   string   `json:"character"`
	Biography   string   `json:"biography"`
	Filmography []string `json:"filmography"`
}

// BoxOffice figures are descriptive text as written by the model.
type BoxOffice struct {
	Budget        string `json:"budget"`
	Worldwide     string `json:"worldwide"`
	Domestic      string `json:"domestic"`
	International string `json:"international"`
	Profitability string `json:"profitability"`
}

type Production struct {
	Studio          string   `json:"studio"`
	Producers       []string `json:"producers"`
	Director        string   `json:"director"`
	Writers         []string `json:"writers"`
	Cinematographer string   `json:"cinematographer"`
	Composer        string   `json:"composer"`
}

// SeriesProduction carries the television credits a series page shows.
type SeriesProduction struct {
	Network         string   `json:"network"`
	Creators        []string `json:"creators"`
	Producers       []string `json:"producers"`
	Showrunners     []string `json:"showrunners"`
	Writers         []string `json:"writers"`
	Cinematographer string   `json:"cinematographer"`
	Composer        string   `json:"composer"`
}

type MovieAwards struct {
	Oscars       []string `json:"oscars"`
	GoldenGlobes []string `json:"goldenGlobes"`
	OtherAwards  []string `json:"otherAwards"`
}

type SeriesAwards struct {
	Emmys        []string `json:"emmys"`
	GoldenGlobes []string `json:"goldenGlobes"`
	OtherAwards  []string `json:"otherAwards"`
}

// CriticalReception scores are descriptive text ("8.8/10", "87%").
type CriticalReception struct {
	RottenTomatoes   string `json:"rottenTomatoes"`
	IMDb             string `json:"imdb"`
	Metacritic       string `json:"metacritic"`
	CriticsConsensus string `json:"criticsConsensus"`
}

type CulturalImpact struct {
	Legacy    string   `json:"legacy"`
	Influence string   `json:"influence"`
	Trivia    []string `json:"trivia"`
}

type TechnicalAspects struct {
	Cinematography string `json:"cinematography"`
	Soundtrack     string `json:"soundtrack"`
	VisualEffects  string `json:"visualEffects"`
	Editing        string `json:"editing"`
}

// SeriesInfo holds the only genuinely numeric fields of any document.
type SeriesInfo struct {
	Seasons     int    `json:"seasons"`
	Episodes    int    `json:"episodes"`
	Runtime     string `json:"runtime"`
	Status      string `json:"status"`
	OriginalRun string `json:"originalRun"`
}

// MovieAnalysis is the enriched document behind a movie detail page.
type MovieAnalysis struct {
	Cast              []CastMember      `json:"cast"`
	BoxOffice         BoxOffice         `json:"boxOffice"`
	Production        Production        `json:"production"`
	Awards            MovieAwards       `json:"awards"`
	CriticalReception CriticalReception `json:"criticalReception"`
	CulturalImpact    CulturalImpact    `json:"culturalImpact"`
	TechnicalAspects  TechnicalAspects  `json:"technicalAspects"`
}

func (*MovieAnalysis) Kind() Kind { return KindMovie }

// SeriesAnalysis mirrors MovieAnalysis with seriesInfo instead of boxOffice
// and Emmys instead of Oscars.
type SeriesAnalysis struct {
	Cast              []CastMember      `json:"cast"`
	Production        SeriesProduction  `json:"production"`
	SeriesInfo        SeriesInfo        `json:"seriesInfo"`
	Awards            SeriesAwards      `json:"awards"`
	CriticalReception CriticalReception `json:"criticalReception"`
	CulturalImpact    CulturalImpact    `json:"culturalImpact"`
	TechnicalAspects  TechnicalAspects  `json:"technicalAspects"`
}

func (*SeriesAnalysis) Kind() Kind { return KindSeries }

// ActorDetails is the biography card shown for a cast member.
type ActorDetails struct {
	Biography    string   `json:"biography"`
	Filmography  []string `json:"filmography"`
	Awards       []string `json:"awards"`
	PersonalLife string   `json:"personalLife"`
}

func (*ActorDetails) Kind() Kind { return KindActor }
