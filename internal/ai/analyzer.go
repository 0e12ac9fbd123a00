package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inbox-autopilot/internal/model"
)

// ProfileAnalyzer builds the one-time user profile from sent mail: a voice
// description for the drafter and a relationship map for the top contacts.
type ProfileAnalyzer struct {
	client *Client
}

func NewProfileAnalyzer(client *Client) *ProfileAnalyzer {
	return &ProfileAnalyzer{client: client}
}

func (pa *ProfileAnalyzer) AnalyzeVoice(ctx context.Context, samples []string, modelName string) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("no writing samples to analyze")
	}

	var sb strings.Builder
	sb.WriteString("Below are emails a person wrote. Describe their writing voice as 4-6 short bullet points ")
	sb.WriteString("covering tone, typical greeting and sign-off, sentence length, and any habits. ")
	sb.WriteString("Respond with the bullet points only.\n")
	for i, sample := range samples {
		fmt.Fprintf(&sb, "\n--- Email %d ---\n%s\n", i+1, sample)
	}

	traits, err := pa.client.completeWithRetry(ctx, modelName, "", sb.String(), 400)
	if err != nil {
		return "", fmt.Errorf("voice analysis failed: %w", err)
	}
	return strings.TrimSpace(traits), nil
}

type rawContact struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	RelationshipType string `json:"relationship_type"`
	FormalityLevel   string `json:"formality_level"`
	InteractionCount int    `json:"interaction_count"`
}

func (pa *ProfileAnalyzer) ClassifyContacts(ctx context.Context, contactLines []string, modelName string) ([]*model.Contact, error) {
	if len(contactLines) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Below are the people a user emails most, one per line as 'email | name | message count'. ")
	sb.WriteString("For each, guess the relationship and how formally the user should address them.\n")
	sb.WriteString("Respond with ONLY a JSON array of objects:\n")
	sb.WriteString(`[{"email": string, "name": string, "relationship_type": "recruiter"|"colleague"|"manager"|"vendor"|"personal"|"unknown", "formality_level": "formal"|"semi-formal"|"casual", "interaction_count": number}]`)
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(contactLines, "\n"))

	raw, err := pa.client.completeWithRetry(ctx, modelName, "", sb.String(), 1500)
	if err != nil {
		return nil, fmt.Errorf("contact classification failed: %w", err)
	}

	var parsed []rawContact
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("invalid contact JSON: %w", err)
	}

	now := time.Now()
	contacts := make([]*model.Contact, 0, len(parsed))
	for _, rc := range parsed {
		email := strings.ToLower(strings.TrimSpace(rc.Email))
		if email == "" {
			continue
		}
		contacts = append(contacts, &model.Contact{
			Email:            email,
			Name:             strings.TrimSpace(rc.Name),
			RelationshipType: rc.RelationshipType,
			FormalityLevel:   rc.FormalityLevel,
			InteractionCount: rc.InteractionCount,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return contacts, nil
}
