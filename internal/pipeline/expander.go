package pipeline

import (
	"fmt"

	"github.com/batonworks/baton/internal/errors"
	"github.com/batonworks/baton/internal/structure"
)

// composeTimeoutMinutes is the per-step timeout for generated compose steps.
const composeTimeoutMinutes = 20

// StructureSource loads structure artifacts by slug.
type StructureSource interface {
	Load(slug string) (*structure.Structure, error)
}

// Expander synthesizes compose steps for the dynamic phase from a locked
// structure artifact.
//
// Expand itself is stateless and repeatable; the at-most-once guarantee
// is the orchestrator's, which freezes the result into the session record
// and never calls Expand again for that session.
type Expander struct {
	source StructureSource
	phase  int
}

// NewExpander creates an expander that generates steps for the catalog's
// dynamic phase.
func NewExpander(source StructureSource, cat *Catalog) *Expander {
	return &Expander{
		source: source,
		phase:  cat.DynamicPhaseID(),
	}
}

// Expand loads the structure for slug and returns one compose step per
// section, in section order.
//
// An absent artifact yields an error wrapping ErrStructureNotReady and an
// unlocked one ErrStructureNotLocked; callers treat both as "not yet".
// A locked structure with no sections, or a section missing its title or
// focus, is a validation error naming the offending index and field.
func (e *Expander) Expand(slug string) ([]Agent, error) {
	s, err := e.source.Load(slug)
	if err != nil {
		return nil, err
	}

	if !s.Locked {
		return nil, errors.NewStructureError("structure is not locked", errors.ErrStructureNotLocked).WithSlug(slug)
	}
	if len(s.Sections) == 0 {
		return nil, errors.NewValidationError("locked structure has no sections").WithField("sections")
	}

	agents := make([]Agent, 0, len(s.Sections))
	var prevKey string
	for i, sec := range s.Sections {
		if sec.Title == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("section %d has no title", i)).
				WithField(fmt.Sprintf("sections[%d].title", i))
		}
		if sec.Focus == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("section %d has no focus", i)).
				WithField(fmt.Sprintf("sections[%d].focus", i))
		}

		agent := Agent{
			Key:            generatedKey(i, sec.Title),
			Name:           "Compose: " + sec.Title,
			Phase:          e.phase,
			TimeoutMinutes: composeTimeoutMinutes,
			Critical:       true,
			Outputs:        []string{"draft"},
		}
		if prevKey != "" {
			agent.DependsOn = []string{prevKey}
		}
		prevKey = agent.Key
		agents = append(agents, agent)
	}

	return agents, nil
}

// generatedKey builds the stable key for the i-th generated step. The
// numeric prefix keeps keys unique even when section titles collide after
// slugification.
func generatedKey(i int, title string) string {
	key := fmt.Sprintf("section-%02d", i+1)
	if slug := Slugify(title); slug != "" {
		key += "-" + slug
	}
	return key
}
