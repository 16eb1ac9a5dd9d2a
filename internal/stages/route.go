package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduitworks/conduit/internal/documents"
)

// Router assigns a downstream destination based on the document's
// classification. Rules map classification labels to destinations;
// unmatched labels fall through to the default destination.
type Router struct {
	rules        map[string]string
	defaultRoute string
}

// NewRouter creates the routing executor. Rule keys are matched
// case-insensitively.
func NewRouter(rules map[string]string, defaultRoute string) *Router {
	normalized := make(map[string]string, len(rules))
	for label, destination := range rules {
		normalized[strings.ToLower(label)] = destination
	}
	return &Router{
		rules:        normalized,
		defaultRoute: defaultRoute,
	}
}

func (r *Router) Stage() documents.Stage {
	return documents.StageRouting
}

func (r *Router) Execute(ctx context.Context, doc *documents.Document) (*Result, error) {
	if doc.Classification == nil || *doc.Classification == "" {
		return nil, NewFailure(KindMissingInput, false, fmt.Errorf("document %s has no classification", doc.ID))
	}

	destination, ok := r.rules[strings.ToLower(*doc.Classification)]
	if !ok {
		destination = r.defaultRoute
	}
	if destination == "" {
		return nil, NewFailure(KindMissingInput, false, fmt.Errorf("no destination for classification %q", *doc.Classification))
	}

	return &Result{
		Route: &destination,
		Metadata: documents.Metadata{
			"routed_by": routeRuleName(ok),
		},
	}, nil
}

func routeRuleName(matched bool) string {
	if matched {
		return "rule"
	}
	return "default"
}
