package sites

import (
	"context"

	"github.com/equiscan/server/internal/parser"
)

func init() {
	parser.Register("jsonld", func(env parser.Env) parser.Parser {
		return &jsonldParser{env: env}
	})
}

// jsonldParser handles sources that publish schema.org Event markup. One
// fetch of the listing page yields every embedded event.
type jsonldParser struct {
	env parser.Env
}

func (p *jsonldParser) FetchAndParse(ctx context.Context, sourceURL string) ([]parser.ExtractedEvent, error) {
	body, err := p.env.Fetcher.Get(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	events, err := parser.ExtractJSONLDEvents(body)
	if err != nil {
		return nil, err
	}
	p.env.Logger.Info().Str("source_url", sourceURL).Int("events", len(events)).
		Msg("jsonld: extraction complete")
	return events, nil
}
