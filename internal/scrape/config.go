package scrape

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// PagePlaceholder is substituted with the page number in SourceConfig.ListURL.
const PagePlaceholder = "{page}"

// ScrapedAtLayout formats the scraped_at column.
const ScrapedAtLayout = "2006-01-02 15:04:05"

const (
	defaultUserAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultRequestTimeout    = 20 * time.Second
	defaultRenderTimeout     = 30 * time.Second
	defaultRequestsPerSecond = 1.0
	defaultMaxAttempts       = 3
	defaultForbiddenAttempts = 3
	defaultMaxPages          = 3
	defaultLinkColumn        = jobs.ColDetailLink
)

// Config holds the scraper settings shared by every source plus the
// per-source selector tables.
type Config struct {
	UserAgent          string                  `mapstructure:"user_agent"`
	RequestTimeout     time.Duration           `mapstructure:"request_timeout"`
	RequestsPerSecond  float64                 `mapstructure:"requests_per_second"`
	Burst              int                     `mapstructure:"burst"`
	MaxAttempts        int                     `mapstructure:"max_attempts"`
	ForbiddenThreshold int                     `mapstructure:"forbidden_threshold"`
	RespectRobots      bool                    `mapstructure:"respect_robots"`
	RenderTimeout      time.Duration           `mapstructure:"render_timeout"`
	RenderTabs         int                     `mapstructure:"render_tabs"`
	Sources            map[string]SourceConfig `mapstructure:"sources"`
}

// SourceConfig describes how one job board is walked: a paginated listing
// whose items link to detail pages.
type SourceConfig struct {
	ListURL      string           `mapstructure:"list_url"`
	StartPage    int              `mapstructure:"start_page"`
	MaxPages     int              `mapstructure:"max_pages"`
	ItemSelector string           `mapstructure:"item_selector"`
	LinkSelector string           `mapstructure:"link_selector"`
	LinkColumn   string           `mapstructure:"link_column"`
	Columns      []string         `mapstructure:"columns"`
	ListFields   map[string]Field `mapstructure:"list_fields"`
	Fields       map[string]Field `mapstructure:"fields"`
	Render       bool             `mapstructure:"render"`
}

// Field selects one raw column value from a document or a listing item.
//
// Selector picks candidate elements. When Labels is set only candidates
// whose label text (the LabelSelector child, or the whole element) contains
// one of the labels, case-insensitively, are kept. Value then narrows to a
// child element. Attr reads an attribute instead of text. All joins every
// candidate with ", "; otherwise the Index-th candidate is used.
type Field struct {
	Selector      string   `mapstructure:"selector"`
	Attr          string   `mapstructure:"attr"`
	Index         int      `mapstructure:"index"`
	All           bool     `mapstructure:"all"`
	Labels        []string `mapstructure:"labels"`
	LabelSelector string   `mapstructure:"label_selector"`
	Value         string   `mapstructure:"value"`
	TrimPrefix    string   `mapstructure:"trim_prefix"`
	Multiline     bool     `mapstructure:"multiline"`
}

// DefaultConfig returns the built-in settings for every supported board.
func DefaultConfig() Config {
	return Config{
		UserAgent:          defaultUserAgent,
		RequestTimeout:     defaultRequestTimeout,
		RequestsPerSecond:  defaultRequestsPerSecond,
		Burst:              1,
		MaxAttempts:        defaultMaxAttempts,
		ForbiddenThreshold: defaultForbiddenAttempts,
		RenderTimeout:      defaultRenderTimeout,
		RenderTabs:         1,
		Sources:            DefaultSources(),
	}
}

// Source returns the selector table for src, falling back to the built-in
// table when the configuration does not override it.
func (c Config) Source(src jobs.Source) (SourceConfig, error) {
	sc, ok := c.Sources[string(src)]
	if !ok {
		sc, ok = DefaultSources()[string(src)]
	}
	if !ok {
		return SourceConfig{}, fmt.Errorf("no scrape configuration for source %q", src)
	}
	sc = sc.withDefaults()
	if err := sc.Validate(); err != nil {
		return SourceConfig{}, fmt.Errorf("scrape.sources.%s: %w", src, err)
	}
	return sc, nil
}

// Validate checks the shared settings and every configured source.
func (c Config) Validate() error {
	if c.RequestTimeout < 0 {
		return errors.New("scrape.request_timeout must be >= 0")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("scrape.requests_per_second must be >= 0")
	}
	if c.RenderTabs < 0 {
		return errors.New("scrape.render_tabs must be >= 0")
	}
	for name, sc := range c.Sources {
		if _, err := jobs.ParseSource(name); err != nil {
			return fmt.Errorf("scrape.sources: %w", err)
		}
		if err := sc.withDefaults().Validate(); err != nil {
			return fmt.Errorf("scrape.sources.%s: %w", name, err)
		}
	}
	return nil
}

func (sc SourceConfig) withDefaults() SourceConfig {
	if sc.MaxPages == 0 {
		sc.MaxPages = defaultMaxPages
	}
	if sc.LinkColumn == "" {
		sc.LinkColumn = defaultLinkColumn
	}
	return sc
}

// Validate reports the first unusable setting.
func (sc SourceConfig) Validate() error {
	switch {
	case !strings.Contains(sc.ListURL, PagePlaceholder):
		return fmt.Errorf("list_url must contain %s", PagePlaceholder)
	case sc.MaxPages < 1:
		return errors.New("max_pages must be >= 1")
	case sc.ItemSelector == "":
		return errors.New("item_selector must not be empty")
	case sc.LinkSelector == "":
		return errors.New("link_selector must not be empty")
	case len(sc.Columns) == 0:
		return errors.New("columns must not be empty")
	}
	if !contains(sc.Columns, sc.LinkColumn) {
		return fmt.Errorf("columns must include link column %q", sc.LinkColumn)
	}
	for col, f := range sc.ListFields {
		if f.Selector == "" {
			return fmt.Errorf("list_fields.%s.selector must not be empty", col)
		}
	}
	for col, f := range sc.Fields {
		if f.Selector == "" {
			return fmt.Errorf("fields.%s.selector must not be empty", col)
		}
	}
	return nil
}

// PageURL expands the listing URL for page n.
func (sc SourceConfig) PageURL(n int) string {
	return strings.ReplaceAll(sc.ListURL, PagePlaceholder, strconv.Itoa(n))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// DefaultSources returns the selector tables for the supported boards.
func DefaultSources() map[string]SourceConfig {
	return map[string]SourceConfig{
		string(jobs.SourceEmploiTunisie): {
			ListURL:      "https://www.emploitunisie.com/recherche-jobs-tunisie?page={page}",
			StartPage:    0,
			MaxPages:     defaultMaxPages,
			ItemSelector: "div.card.card-job",
			LinkSelector: "div.card-job-detail > h3 > a",
			Columns: []string{
				"title", "detail_link", "company", "date_publication",
				"sector", "contract_type", "location", "region", "city",
				"salary", "study_level", "experience", "remote",
				"description", "skills", "source", "scraped_at",
			},
			ListFields: map[string]Field{
				"title":            {Selector: "div.card-job-detail > h3 > a"},
				"company":          {Selector: ".card-job-company.company-name"},
				"date_publication": {Selector: "div.card-job-detail > time"},
			},
			Fields: map[string]Field{
				"description":   {Selector: ".job-description", Multiline: true},
				"sector":        criterion("secteur d´activité", "secteur d'activité"),
				"contract_type": criterion("type de contrat"),
				"region":        criterion("région"),
				"city":          criterion("ville"),
				"experience":    criterion("niveau d'expérience"),
				"study_level":   criterion("niveau d'études"),
				"remote":        criterion("travail à distance"),
				"salary":        criterion("salaire"),
				"skills":        {Selector: "ul.skills > li", All: true},
			},
		},
		string(jobs.SourceKeejob): {
			ListURL:      "https://www.keejob.com/offres-emploi/?page={page}",
			StartPage:    1,
			MaxPages:     defaultMaxPages,
			ItemSelector: "article",
			LinkSelector: "h2 a",
			Columns: []string{
				"title", "detail_link", "sector", "contract_type", "date_publication",
				"location", "salary", "study_level", "experience", "availability",
				"description", "source", "scraped_at",
			},
			ListFields: map[string]Field{
				"title": {Selector: "h2 a"},
			},
			Fields: map[string]Field{
				"sector":           {Selector: "p", Labels: []string{"secteur"}, LabelSelector: "span", TrimPrefix: "Secteur:"},
				"date_publication": infoBlock("date de publication", "p"),
				"contract_type":    infoBlock("type de contrat", "span"),
				"location":         infoBlock("lieu de travail", "p"),
				"experience":       infoBlock("expérience requise", "p"),
				"study_level":      infoBlock("niveau d'études", "p"),
				"salary":           infoBlock("salaire proposé", "span"),
				"availability":     infoBlock("disponibilité", "p"),
				"description":      {Selector: "div.prose", Multiline: true},
			},
		},
		string(jobs.SourceOptionCarriere): {
			ListURL:      "https://www.optioncarriere.tn/emploi?s=&l=Tunisie&nw=1&p={page}",
			StartPage:    1,
			MaxPages:     defaultMaxPages,
			ItemSelector: "ul.jobs > li article.job",
			LinkSelector: "h2 a",
			Columns: []string{
				"title", "company", "location", "contract", "work_type",
				"posted_relative", "raw_content", "detail_link", "source", "scraped_at",
			},
			Fields: map[string]Field{
				"title":           {Selector: "article#job h1"},
				"company":         {Selector: "article#job p.company"},
				"location":        {Selector: "article#job ul.details li", Index: 0},
				"contract":        {Selector: "article#job ul.details li", Index: 1},
				"work_type":       {Selector: "article#job ul.details li", Index: 2},
				"posted_relative": {Selector: ".badge-icon"},
				"raw_content":     {Selector: "section.content", Multiline: true},
			},
		},
		string(jobs.SourceTanitJobs): {
			ListURL:      "https://www.tanitjobs.com/jobs/?page={page}",
			StartPage:    1,
			MaxPages:     defaultMaxPages,
			ItemSelector: ".listing-item__jobs",
			LinkSelector: ".listing-item__title a.link",
			LinkColumn:   "link",
			Render:       true,
			Columns: []string{
				"title", "company", "location", "date_posted", "job_type",
				"experience", "education_level", "languages", "job_description",
				"requirements", "expiration_date", "company_logo", "tags", "link",
			},
			Fields: map[string]Field{
				"title":           {Selector: ".details-header__title"},
				"company":         {Selector: ".listing-item__info--item-company"},
				"location":        {Selector: ".listing-item__info--item-location"},
				"date_posted":     {Selector: ".listing-item__info--item-date"},
				"job_type":        tanitDetail("type d'emploi"),
				"experience":      tanitDetail("expérience"),
				"education_level": tanitDetail("niveau d'étude"),
				"languages":       tanitDetail("langue"),
				"requirements":    tanitDetail("exigences"),
				"expiration_date": tanitDetail("date d'expiration"),
				"job_description": {Selector: ".details-body__content.content-text", Multiline: true},
				"company_logo":    {Selector: ".profile__img-company", Attr: "src"},
				"tags":            {Selector: ".bootstrap-tagsinput span", All: true},
			},
		},
	}
}

func criterion(labels ...string) Field {
	return Field{Selector: "ul.arrow-list > li", Labels: labels, Value: "span"}
}

func infoBlock(label, value string) Field {
	return Field{Selector: "div.p-6.space-y-4 > div", Labels: []string{label}, LabelSelector: "h3", Value: value}
}

func tanitDetail(label string) Field {
	return Field{Selector: ".infos_job_details dl > div, .infos_job_details li", Labels: []string{label}, LabelSelector: "dt, strong", Value: "dd, span"}
}
