package record

import (
	"strings"
	"time"
)

// Episodic records a single event: something that happened at a point in
// time, attributed to an actor.
type Episodic struct {
	OccurredAt time.Time `json:"occurred_at"`
	Actor      string    `json:"actor"`
	EventType  string    `json:"event_type"`
	Summary    string    `json:"summary"`
	Details    string    `json:"details"`
}

func (e *Episodic) Variant() Variant { return VariantEpisodic }

func (e *Episodic) SearchText() string {
	return joinText(e.Summary, e.Details)
}

func (e *Episodic) EmbedFields() map[string]string {
	return textFields(map[string]string{
		"summary": e.Summary,
		"details": e.Details,
	})
}

func (e *Episodic) missing() []string {
	var m []string
	if e.OccurredAt.IsZero() {
		m = append(m, "occurred_at")
	}
	if e.Actor == "" {
		m = append(m, "actor")
	}
	if e.EventType == "" {
		m = append(m, "event_type")
	}
	if e.Summary == "" {
		m = append(m, "summary")
	}
	if e.Details == "" {
		m = append(m, "details")
	}
	return m
}

// Semantic records a named piece of knowledge with its source.
type Semantic struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Details string `json:"details"`
	Source  string `json:"source"`
}

func (s *Semantic) Variant() Variant { return VariantSemantic }

func (s *Semantic) SearchText() string {
	return joinText(s.Name, s.Summary, s.Details)
}

func (s *Semantic) EmbedFields() map[string]string {
	return textFields(map[string]string{
		"summary": s.Summary,
		"details": s.Details,
	})
}

func (s *Semantic) missing() []string {
	var m []string
	if s.Name == "" {
		m = append(m, "name")
	}
	if s.Summary == "" {
		m = append(m, "summary")
	}
	if s.Details == "" {
		m = append(m, "details")
	}
	if s.Source == "" {
		m = append(m, "source")
	}
	return m
}

// Procedural records a skill: an ordered sequence of steps.
type Procedural struct {
	EntryType string   `json:"entry_type"`
	Summary   string   `json:"summary"`
	Steps     []string `json:"steps"`
}

func (p *Procedural) Variant() Variant { return VariantProcedural }

func (p *Procedural) SearchText() string {
	return joinText(append([]string{p.Summary}, p.Steps...)...)
}

func (p *Procedural) EmbedFields() map[string]string {
	return textFields(map[string]string{
		"summary": p.Summary,
		"steps":   strings.Join(p.Steps, "\n"),
	})
}

func (p *Procedural) missing() []string {
	var m []string
	if p.EntryType == "" {
		m = append(m, "entry_type")
	}
	if p.Summary == "" {
		m = append(m, "summary")
	}
	if len(p.Steps) == 0 {
		m = append(m, "steps")
	}
	return m
}

// Resource records a document or other reference material.
type Resource struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	ResourceType string `json:"resource_type"`
	Content      string `json:"content"`
}

func (r *Resource) Variant() Variant { return VariantResource }

func (r *Resource) SearchText() string {
	return joinText(r.Title, r.Summary, r.Content)
}

func (r *Resource) EmbedFields() map[string]string {
	return textFields(map[string]string{
		"summary": r.Summary,
		"content": r.Content,
	})
}

func (r *Resource) missing() []string {
	var m []string
	if r.Title == "" {
		m = append(m, "title")
	}
	if r.Summary == "" {
		m = append(m, "summary")
	}
	if r.ResourceType == "" {
		m = append(m, "resource_type")
	}
	if r.Content == "" {
		m = append(m, "content")
	}
	return m
}

// Vault records a secret. SecretValue requires elevated scope to read in
// plaintext; default read paths return MaskedSecret instead.
type Vault struct {
	EntryType   string `json:"entry_type"`
	Source      string `json:"source"`
	Sensitivity string `json:"sensitivity"`
	SecretValue string `json:"secret_value"`
	Caption     string `json:"caption"`
}

func (v *Vault) Variant() Variant { return VariantVault }

// SearchText deliberately excludes SecretValue: secrets are findable only
// by their caption, never by their content.
func (v *Vault) SearchText() string {
	return joinText(v.Caption)
}

func (v *Vault) EmbedFields() map[string]string {
	return textFields(map[string]string{
		"caption": v.Caption,
	})
}

func (v *Vault) missing() []string {
	var m []string
	if v.EntryType == "" {
		m = append(m, "entry_type")
	}
	if v.Source == "" {
		m = append(m, "source")
	}
	if v.Sensitivity == "" {
		m = append(m, "sensitivity")
	}
	if v.SecretValue == "" {
		m = append(m, "secret_value")
	}
	if v.Caption == "" {
		m = append(m, "caption")
	}
	return m
}

// MaskedSecret is the placeholder returned in place of a vault secret when
// the caller has not requested plaintext with elevated scope.
const MaskedSecret = "********"

// Mask returns a copy of the payload with the secret value replaced by
// MaskedSecret.
func (v *Vault) Mask() *Vault {
	masked := *v
	masked.SecretValue = MaskedSecret
	return &masked
}

// Core is the profile-flavored memory variant: a labeled aspect of the
// user's standing profile (persona, preferences) kept alongside the other
// memories. It is distinct from tenant.ProfileSettings, which is the
// singleton settings row, not a memory record.
type Core struct {
	Aspect  string `json:"aspect"`
	Content string `json:"content"`
}

func (c *Core) Variant() Variant { return VariantCore }

func (c *Core) SearchText() string {
	return joinText(c.Aspect, c.Content)
}

func (c *Core) EmbedFields() map[string]string {
	return textFields(map[string]string{
		"content": c.Content,
	})
}

func (c *Core) missing() []string {
	var m []string
	if c.Aspect == "" {
		m = append(m, "aspect")
	}
	if c.Content == "" {
		m = append(m, "content")
	}
	return m
}

// joinText concatenates non-empty parts with newlines.
func joinText(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

// textFields drops empty attributes so records never embed empty strings.
func textFields(fields map[string]string) map[string]string {
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			delete(fields, k)
		}
	}
	return fields
}
